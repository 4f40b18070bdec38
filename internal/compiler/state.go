package compiler

// State is a pipeline stage.
type State int

const (
	StateReceived State = iota
	StateValidating
	StateInvalid
	StateGenerating
	StateGenerated
	StateVerifying
	StateVerified
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidating:
		return "validating"
	case StateInvalid:
		return "invalid"
	case StateGenerating:
		return "generating"
	case StateGenerated:
		return "generated"
	case StateVerifying:
		return "verifying"
	case StateVerified:
		return "verified"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// timed reports whether a state does measurable work and is reported to
// observers as a stage.
func (s State) timed() bool {
	return s == StateValidating || s == StateGenerating || s == StateVerifying
}
