// Package validation checks a workflow graph for structural and semantic
// problems before code generation. It is pure: no I/O, no mutation.
package validation

import (
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

// Result is the outcome of validating one workflow.
type Result struct {
	Valid    bool                    `json:"valid"`
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
}

type checker struct {
	w     *graph.Workflow
	x     *graph.Index
	a     *graph.Analysis
	found []diagnostic.Diagnostic
}

func (c *checker) add(d diagnostic.Diagnostic) {
	c.found = append(c.found, d)
}

// Validate runs every check phase in order and returns the sorted findings.
// The same input always yields the same diagnostics in the same order.
func Validate(w *graph.Workflow) Result {
	c := &checker{w: w, x: graph.NewIndex(w)}

	if len(w.Nodes) == 0 {
		c.add(diagnostic.Errorf(diagnostic.PhaseIntegrity, diagnostic.CodeEmptyWorkflow, "workflow has no nodes"))
	} else {
		hasStart := c.integrity()
		if hasStart {
			c.reachability()
		}
		c.cycles()
		c.semantics()
	}

	diagnostic.Sort(c.found)
	errs, warnings := diagnostic.Split(c.found)
	return Result{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}
