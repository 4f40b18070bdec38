package graph

import "fmt"

// Kind identifies the behaviour of a node. The set is closed: a payload that
// names any other kind is rejected at construction.
type Kind string

const (
	KindTrigger       Kind = "trigger"
	KindActivity      Kind = "activity"
	KindAgent         Kind = "agent"
	KindConditional   Kind = "conditional"
	KindLoop          Kind = "loop"
	KindChildWorkflow Kind = "child-workflow"
	KindSignal        Kind = "signal"
	KindPhase         Kind = "phase"
	KindRetry         Kind = "retry"
	KindStateVariable Kind = "state-variable"
	KindAPIEndpoint   Kind = "api-endpoint"
	KindCondition     Kind = "condition"
	KindEnd           Kind = "end"
)

var kinds = []Kind{
	KindTrigger,
	KindActivity,
	KindAgent,
	KindConditional,
	KindLoop,
	KindChildWorkflow,
	KindSignal,
	KindPhase,
	KindRetry,
	KindStateVariable,
	KindAPIEndpoint,
	KindCondition,
	KindEnd,
}

// Kinds returns every supported node kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// IsValid reports whether k belongs to the closed kind set.
func (k Kind) IsValid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsBranching reports whether the kind selects between outgoing edges at
// runtime instead of following all of them.
func (k Kind) IsBranching() bool {
	switch k {
	case KindConditional, KindCondition, KindLoop:
		return true
	}
	return false
}

// IsCallable reports whether the kind invokes an activity by name.
func (k Kind) IsCallable() bool {
	return k == KindActivity || k == KindAgent
}

// ParseKind converts a raw type string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}
