package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvVarSpec is a parsed config value that may reference the environment.
type EnvVarSpec struct {
	// VarName is the environment variable name (e.g., "TSC_PATH")
	VarName string

	// HasDefault indicates if a default value was provided
	HasDefault bool

	// DefaultValue is the default value if HasDefault is true
	DefaultValue string

	// IsLiteral indicates if this is a literal value (not an env var)
	IsLiteral bool

	// LiteralValue is the literal value if IsLiteral is true
	LiteralValue string
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// ParseEnvVar parses a config value that may contain environment variable syntax
//
// Supported formats:
//   - ${VAR}         - Required environment variable
//   - ${VAR:default} - Optional environment variable with default
//   - literal        - Plain literal value (no env var)
//
// Examples:
//
//	ParseEnvVar("${VERIFIER_URL}") -> required env var "VERIFIER_URL"
//	ParseEnvVar("${OTLP_ENDPOINT:localhost:4317}") -> env var with default
//	ParseEnvVar("localhost:4317") -> literal value
func ParseEnvVar(value string) (*EnvVarSpec, error) {
	m := envVarPattern.FindStringSubmatch(value)
	if m == nil {
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			return nil, fmt.Errorf("invalid environment variable reference: %s", value)
		}
		return &EnvVarSpec{IsLiteral: true, LiteralValue: value}, nil
	}

	spec := &EnvVarSpec{
		VarName:    m[1],
		HasDefault: m[2] != "",
	}
	if spec.HasDefault {
		spec.DefaultValue = strings.TrimPrefix(m[2], ":")
	}
	return spec, nil
}

// Resolve returns the value the spec stands for in the current environment.
// A required variable that is unset is an error.
func (s *EnvVarSpec) Resolve() (string, error) {
	if s.IsLiteral {
		return s.LiteralValue, nil
	}
	if v, ok := os.LookupEnv(s.VarName); ok {
		return v, nil
	}
	if s.HasDefault {
		return s.DefaultValue, nil
	}
	return "", fmt.Errorf("required environment variable %s is not set", s.VarName)
}

// expandEnv walks a decoded YAML tree and resolves every string value.
// path names the current key for error messages.
func expandEnv(value any, path string) (any, error) {
	switch v := value.(type) {
	case string:
		spec, err := ParseEnvVar(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		resolved, err := spec.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return resolved, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			expanded, err := expandEnv(child, joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			expanded, err := expandEnv(child, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
