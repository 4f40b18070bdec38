package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMalformedInput is the sentinel wrapped by every construction failure.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports a payload that cannot be turned into a Workflow.
type MalformedInputError struct {
	Field   string
	Message string
	Err     error
}

func (e *MalformedInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Message)
	}
	return "malformed input: " + e.Message
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("nodekind", func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("vartype", func(fl validator.FieldLevel) bool {
		return VariableType(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("retrystrategy", func(fl validator.FieldLevel) bool {
		return RetryStrategy(fl.Field().String()).IsValid()
	})
}

// Parse decodes a JSON workflow definition.
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &MalformedInputError{Message: err.Error(), Err: err}
	}
	return New(&w)
}

// ParseYAML decodes a YAML workflow definition.
func ParseYAML(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, &MalformedInputError{Message: err.Error(), Err: err}
	}
	return New(&w)
}

// New checks the structural shape of an already-decoded workflow. Only fields
// required to interpret the graph at all are enforced here; semantic problems
// are reported by validation as diagnostics.
func New(w *Workflow) (*Workflow, error) {
	if w == nil {
		return nil, &MalformedInputError{Message: "workflow is nil"}
	}
	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fieldError(verrs[0])
		}
		return nil, &MalformedInputError{Message: err.Error(), Err: err}
	}
	return w, nil
}

func fieldError(fe validator.FieldError) *MalformedInputError {
	field := strings.TrimPrefix(fe.Namespace(), "Workflow.")
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "field is required"
	case "nodekind":
		msg = fmt.Sprintf("unknown node kind %q", fe.Value())
	case "vartype":
		msg = fmt.Sprintf("unknown variable type %q", fe.Value())
	case "retrystrategy":
		msg = fmt.Sprintf("unknown retry strategy %q", fe.Value())
	default:
		msg = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return &MalformedInputError{Field: field, Message: msg, Err: fe}
}
