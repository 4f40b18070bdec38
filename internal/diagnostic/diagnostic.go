package diagnostic

import (
	"fmt"
	"sort"
)

// Code identifies a class of problem found while compiling a workflow.
type Code string

const (
	// Construction.
	CodeMalformedInput Code = "MALFORMED_INPUT"

	// Reference integrity and entry points.
	CodeEmptyWorkflow   Code = "EMPTY_WORKFLOW"
	CodeDuplicateNodeID Code = "DUPLICATE_NODE_ID"
	CodeDuplicateEdgeID Code = "DUPLICATE_EDGE_ID"
	CodeDanglingEdge    Code = "DANGLING_EDGE"
	CodeNoStartNode     Code = "NO_START_NODE"

	// Reachability.
	CodeUnreachableNode Code = "UNREACHABLE_NODE"
	CodeDeadEnd         Code = "DEAD_END"

	// Cycles.
	CodeCyclicGraph Code = "CYCLIC_GRAPH"

	// Per-kind semantics.
	CodeMissingCallableReference Code = "MISSING_CALLABLE_REFERENCE"
	CodeMissingRequiredField     Code = "MISSING_REQUIRED_FIELD"
	CodeInvalidRetryPolicy       Code = "INVALID_RETRY_POLICY"
	CodeInvalidTimeout           Code = "INVALID_TIMEOUT"
	CodeInvalidNodeConfig        Code = "INVALID_NODE_CONFIG"
	CodeDuplicateVariable        Code = "DUPLICATE_VARIABLE"
	CodeMissingCondition         Code = "MISSING_CONDITION"
	CodeUnusedVariable           Code = "UNUSED_VARIABLE"
	CodeUnknownReference         Code = "UNKNOWN_REFERENCE"

	// Generation.
	CodeUnsupportedNodeKind     Code = "UNSUPPORTED_NODE_KIND"
	CodeStrictModeViolation     Code = "STRICT_MODE_VIOLATION"
	CodeGenerationInternalError Code = "GENERATION_INTERNAL_ERROR"
)

// Severity separates blocking problems from advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Phase is the check stage that produced a diagnostic. Diagnostics are
// reported in phase order.
type Phase int

const (
	PhaseIntegrity Phase = iota
	PhaseReachability
	PhaseCycles
	PhaseSemantics
	PhaseGeneration
)

func (p Phase) String() string {
	switch p {
	case PhaseIntegrity:
		return "integrity"
	case PhaseReachability:
		return "reachability"
	case PhaseCycles:
		return "cycles"
	case PhaseSemantics:
		return "semantics"
	case PhaseGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Diagnostic is a single finding. It is JSON-serializable as part of a
// compilation result.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
	Phase    Phase    `json:"-"`
}

func (d Diagnostic) Error() string {
	switch {
	case d.NodeID != "":
		return fmt.Sprintf("[%s] %s (node: %s)", d.Code, d.Message, d.NodeID)
	case d.EdgeID != "":
		return fmt.Sprintf("[%s] %s (edge: %s)", d.Code, d.Message, d.EdgeID)
	default:
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
}

// Errorf builds an error-severity diagnostic.
func Errorf(phase Phase, code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(phase Phase, code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

// OnNode attaches a node id.
func (d Diagnostic) OnNode(id string) Diagnostic {
	d.NodeID = id
	return d
}

// OnEdge attaches an edge id.
func (d Diagnostic) OnEdge(id string) Diagnostic {
	d.EdgeID = id
	return d
}

// Sort orders diagnostics by phase, then node id, then edge id, then code.
// The sort is stable so equal keys keep their discovery order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		if a.NodeID != b.NodeID {
			return a.NodeID < b.NodeID
		}
		if a.EdgeID != b.EdgeID {
			return a.EdgeID < b.EdgeID
		}
		return a.Code < b.Code
	})
}

// Split separates errors from warnings, preserving order. Both results are
// non-nil so they serialize as empty arrays.
func Split(ds []Diagnostic) (errs, warnings []Diagnostic) {
	errs, warnings = []Diagnostic{}, []Diagnostic{}
	for _, d := range ds {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return errs, warnings
}
