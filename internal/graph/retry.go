package graph

import "fmt"

// RetryStrategy selects how failed invocations are retried.
type RetryStrategy string

const (
	RetryKeepTrying         RetryStrategy = "keep-trying"
	RetryFailAfterX         RetryStrategy = "fail-after-x"
	RetryExponentialBackoff RetryStrategy = "exponential-backoff"
	RetryNone               RetryStrategy = "none"
)

func (s RetryStrategy) IsValid() bool {
	switch s {
	case RetryKeepTrying, RetryFailAfterX, RetryExponentialBackoff, RetryNone:
		return true
	}
	return false
}

// RequiresMaxAttempts reports whether the strategy is bounded by an attempt count.
func (s RetryStrategy) RequiresMaxAttempts() bool {
	return s == RetryFailAfterX || s == RetryExponentialBackoff
}

// RetryPolicy is the retry configuration attached to a node or to the
// workflow settings. Pointer fields distinguish "absent" from zero.
type RetryPolicy struct {
	Strategy           RetryStrategy `json:"strategy" yaml:"strategy" validate:"required,retrystrategy"`
	MaxAttempts        *int          `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	InitialInterval    string        `json:"initialInterval,omitempty" yaml:"initialInterval,omitempty"`
	MaxInterval        string        `json:"maxInterval,omitempty" yaml:"maxInterval,omitempty"`
	BackoffCoefficient *float64      `json:"backoffCoefficient,omitempty" yaml:"backoffCoefficient,omitempty"`
}

// Attempts returns the configured attempt count, or 0 when unset.
func (p *RetryPolicy) Attempts() int {
	if p == nil || p.MaxAttempts == nil {
		return 0
	}
	return *p.MaxAttempts
}

// Coefficient returns the backoff coefficient, defaulting to 2.
func (p *RetryPolicy) Coefficient() float64 {
	if p == nil || p.BackoffCoefficient == nil {
		return 2
	}
	return *p.BackoffCoefficient
}

func (p *RetryPolicy) String() string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%s/%d/%s/%s/%g", p.Strategy, p.Attempts(), p.InitialInterval, p.MaxInterval, p.Coefficient())
}
