package codegen

import (
	"fmt"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
)

// Error is a generation failure attributed to a node.
type Error struct {
	Code    diagnostic.Code
	NodeID  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (node: %s)", e.Code, e.Message, e.NodeID)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts the failure into a generation-phase diagnostic.
func (e *Error) Diagnostic() diagnostic.Diagnostic {
	return diagnostic.Errorf(diagnostic.PhaseGeneration, e.Code, "%s", e.Message).OnNode(e.NodeID)
}

func internalError(nodeID, format string, args ...any) *Error {
	return &Error{Code: diagnostic.CodeGenerationInternalError, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

func strictError(nodeID, format string, args ...any) *Error {
	return &Error{Code: diagnostic.CodeStrictModeViolation, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}
