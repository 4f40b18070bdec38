package compiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sflowg/workflow-compiler/internal/codegen"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
	"github.com/sflowg/workflow-compiler/internal/validation"
	"github.com/sflowg/workflow-compiler/internal/verifier"
)

// run carries one compilation through the state machine.
type run struct {
	c      *Compiler
	w      *graph.Workflow
	opts   Options
	start  time.Time
	bundle *codegen.Bundle
	result *Result
	// stageErr is the outcome reported to observers for the current stage.
	stageErr error
}

type transition func(r *run, ctx context.Context) (State, error)

var transitions = map[State]transition{
	StateReceived:   (*run).received,
	StateValidating: (*run).validating,
	StateInvalid:    (*run).invalid,
	StateGenerating: (*run).generating,
	StateGenerated:  (*run).generated,
	StateVerifying:  (*run).verifying,
	StateVerified:   (*run).verified,
}

// Compile validates w and, when it is valid, generates and optionally
// verifies its code. Findings are reported in the Result; the error is
// non-nil only for malformed options or when ctx ends before the pipeline
// does.
func (c *Compiler) Compile(ctx context.Context, w *graph.Workflow, opts Options) (*Result, error) {
	r := &run{
		c:     c,
		w:     w,
		opts:  opts,
		start: time.Now(),
		result: &Result{
			Errors:   []diagnostic.Diagnostic{},
			Warnings: []diagnostic.Diagnostic{},
			Metadata: Metadata{
				NodeCount: w.NodeCount(),
				EdgeCount: w.EdgeCount(),
				Version:   c.version,
			},
		},
	}
	ctx = c.observer.OnCompileStart(ctx, w, opts)

	state := StateReceived
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			c.observer.OnCompileCompleted(ctx, nil, err)
			return nil, err
		}

		var stageStart time.Time
		if state.timed() {
			c.observer.OnStageStart(ctx, state)
			stageStart = time.Now()
		}

		r.stageErr = nil
		next, err := transitions[state](r, ctx)
		if state.timed() {
			stageErr := r.stageErr
			if err != nil {
				stageErr = err
			}
			c.observer.OnStageCompleted(ctx, state, stageErr, time.Since(stageStart))
		}
		if err != nil {
			c.observer.OnCompileCompleted(ctx, nil, err)
			return nil, err
		}

		c.logger.DebugContext(ctx, "Pipeline transition", "from", state.String(), "to", next.String())
		state = next
	}

	r.result.Metadata.CompilationTimeMs = time.Since(r.start).Milliseconds()
	c.observer.OnCompileCompleted(ctx, r.result, nil)
	return r.result, nil
}

func (r *run) received(ctx context.Context) (State, error) {
	if _, err := codegen.ParseLevel(string(r.opts.OptimizationLevel)); err != nil {
		return StateDone, &graph.MalformedInputError{Field: "options.optimizationLevel", Message: err.Error(), Err: err}
	}
	return StateValidating, nil
}

func (r *run) validating(ctx context.Context) (State, error) {
	v := validation.Validate(r.w)
	r.result.Errors = v.Errors
	r.result.Warnings = v.Warnings

	switch {
	case !v.Valid:
		r.stageErr = ErrInvalidWorkflow
		return StateInvalid, nil
	case r.opts.ValidateOnly:
		r.result.Success = true
		return StateDone, nil
	default:
		return StateGenerating, nil
	}
}

func (r *run) invalid(ctx context.Context) (State, error) {
	r.result.Success = false
	return StateDone, nil
}

func (r *run) generating(ctx context.Context) (State, error) {
	timeout := r.opts.DefaultTimeout
	if timeout == "" {
		timeout = r.c.defaultTimeout
	}
	bundle, err := codegen.Generate(r.w, codegen.Options{
		IncludeComments:   r.opts.IncludeComments,
		StrictMode:        r.opts.StrictMode,
		OptimizationLevel: r.opts.OptimizationLevel,
		WorkflowName:      r.opts.WorkflowName,
		DefaultTimeout:    timeout,
	})
	if err != nil {
		r.stageErr = err
		var genErr *codegen.Error
		if !errors.As(err, &genErr) {
			genErr = &codegen.Error{Code: diagnostic.CodeGenerationInternalError, Message: err.Error(), Err: err}
		}
		r.result.Errors = append(r.result.Errors, genErr.Diagnostic())
		r.result.Success = false
		return StateDone, nil
	}
	r.bundle = bundle
	return StateGenerated, nil
}

func (r *run) generated(ctx context.Context) (State, error) {
	level, _ := codegen.ParseLevel(string(r.opts.OptimizationLevel))
	r.result.Success = true
	r.result.Code = r.bundle
	r.result.Steps = r.bundle.Steps
	r.result.Metadata.StepCount = len(r.bundle.Steps)
	r.result.Metadata.OptimizationLevel = level
	r.result.Metadata.ContentHash = r.bundle.Hash()

	if r.opts.Verify {
		return StateVerifying, nil
	}
	return StateDone, nil
}

// verifying records the verifier outcome. Only cancellation of the
// caller's context aborts the pipeline.
func (r *run) verifying(ctx context.Context) (State, error) {
	res, err := r.c.Verify(ctx, r.bundle)
	if ctx.Err() != nil {
		return StateDone, ctx.Err()
	}
	r.stageErr = err
	r.result.Verification = res
	return StateVerified, nil
}

// Verify checks a bundle with the configured verifier under the verify
// timeout. Unless ctx ends, the result is always populated and err says why
// the bundle did not pass: ErrNoVerifier, ErrVerificationFailed, or the
// verifier's own failure.
func (c *Compiler) Verify(ctx context.Context, b *codegen.Bundle) (*verifier.Result, error) {
	if c.verifier == nil {
		return &verifier.Result{
			TypeErrors: []verifier.TypeError{},
			LintIssues: []verifier.LintIssue{},
			Error:      ErrNoVerifier.Error(),
		}, ErrNoVerifier
	}

	vctx := ctx
	if c.verifyTimeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, c.verifyTimeout)
		defer cancel()
	}

	res, err := c.verifier.Verify(vctx, b)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("verification timed out after %s", c.verifyTimeout)
		}
		return &verifier.Result{
			TypeErrors: []verifier.TypeError{},
			LintIssues: []verifier.LintIssue{},
			Error:      msg,
		}, err
	}
	if !res.Success {
		return res, ErrVerificationFailed
	}
	return res, nil
}

func (r *run) verified(ctx context.Context) (State, error) {
	return StateDone, nil
}
