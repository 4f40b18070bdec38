// Package verifier checks generated bundles with the TypeScript toolchain,
// either locally through tsc and eslint or through a remote checker service.
package verifier

import (
	"context"

	"github.com/sflowg/workflow-compiler/internal/codegen"
)

// Verifier type-checks and lints a generated bundle.
//
// Verify reports findings in the Result. A non-nil error means the check
// could not run at all (cancelled context, unusable workspace, unreachable
// service).
type Verifier interface {
	Verify(ctx context.Context, b *codegen.Bundle) (*Result, error)
}

// Result is the outcome of verifying one bundle.
type Result struct {
	Success    bool        `json:"success"`
	TypeErrors []TypeError `json:"typeErrors"`
	LintIssues []LintIssue `json:"lintIssues"`
	DurationMs int64       `json:"durationMs"`
	Error      string      `json:"error,omitempty"`
}

// TypeError is one tsc diagnostic.
type TypeError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LintIssue is one eslint message.
type LintIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Rule     string `json:"rule,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Lint severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// settle fills Success from the findings. Lint warnings do not fail a bundle.
func (r *Result) settle() {
	if r.TypeErrors == nil {
		r.TypeErrors = []TypeError{}
	}
	if r.LintIssues == nil {
		r.LintIssues = []LintIssue{}
	}
	r.Success = r.Error == "" && len(r.TypeErrors) == 0
	for _, issue := range r.LintIssues {
		if issue.Severity == SeverityError {
			r.Success = false
		}
	}
}

// Func adapts a function to the Verifier interface.
type Func func(ctx context.Context, b *codegen.Bundle) (*Result, error)

func (f Func) Verify(ctx context.Context, b *codegen.Bundle) (*Result, error) {
	return f(ctx, b)
}
