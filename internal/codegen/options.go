package codegen

import "fmt"

// Level controls how much the generator restructures the emitted steps.
type Level string

const (
	// LevelNone emits one step per node.
	LevelNone Level = "none"
	// LevelBasic collapses straight-line runs into a single step.
	LevelBasic Level = "basic"
	// LevelAggressive also prunes unreachable nodes and constant branches.
	LevelAggressive Level = "aggressive"
)

// ParseLevel converts a raw option value, treating "" as LevelNone.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "", LevelNone:
		return LevelNone, nil
	case LevelBasic, LevelAggressive:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown optimization level %q", s)
}

func (l Level) collapses() bool { return l == LevelBasic || l == LevelAggressive }

func (l Level) prunes() bool { return l == LevelAggressive }

// Options tune code generation. The zero value is a valid configuration.
type Options struct {
	IncludeComments   bool  `json:"includeComments"`
	StrictMode        bool  `json:"strictMode"`
	OptimizationLevel Level `json:"optimizationLevel"`
	// WorkflowName overrides the workflow's own name for generated identifiers.
	WorkflowName string `json:"workflowName,omitempty"`
	// DefaultTimeout applies when neither a node nor the workflow settings set one.
	DefaultTimeout string `json:"defaultTimeout,omitempty"`
}
