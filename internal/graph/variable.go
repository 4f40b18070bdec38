package graph

// VariableType is the declared type of a workflow variable.
type VariableType string

const (
	VarString  VariableType = "string"
	VarNumber  VariableType = "number"
	VarBoolean VariableType = "boolean"
	VarArray   VariableType = "array"
	VarObject  VariableType = "object"
)

func (t VariableType) IsValid() bool {
	switch t {
	case VarString, VarNumber, VarBoolean, VarArray, VarObject:
		return true
	}
	return false
}

// Variable is a named, typed value available to every node of the workflow.
type Variable struct {
	Name         string       `json:"name" yaml:"name" validate:"required"`
	Type         VariableType `json:"type" yaml:"type" validate:"required,vartype"`
	DefaultValue any          `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Required     bool         `json:"required,omitempty" yaml:"required,omitempty"`
}
