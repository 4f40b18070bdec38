package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

// Observer receives pipeline callbacks for logging, tracing and metrics.
// Implementations must be safe for concurrent use and should return quickly.
type Observer interface {
	// OnCompileStart is called once before validation begins.
	OnCompileStart(ctx context.Context, w *graph.Workflow, opts Options) context.Context

	// OnStageStart is called when a timed stage (validating, generating,
	// verifying) is entered.
	OnStageStart(ctx context.Context, stage State)

	// OnStageCompleted is called when a timed stage ends. err is non-nil when
	// the stage did not succeed.
	OnStageCompleted(ctx context.Context, stage State, err error, d time.Duration)

	// OnCompileCompleted is called with the final result, or with a nil
	// result and the cancellation error.
	OnCompileCompleted(ctx context.Context, r *Result, err error)
}

// NoopObserver is an Observer that does nothing.
type NoopObserver struct{}

func (NoopObserver) OnCompileStart(ctx context.Context, w *graph.Workflow, opts Options) context.Context {
	return ctx
}
func (NoopObserver) OnStageStart(ctx context.Context, stage State) {}
func (NoopObserver) OnStageCompleted(ctx context.Context, stage State, err error, d time.Duration) {
}
func (NoopObserver) OnCompileCompleted(ctx context.Context, r *Result, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

// OnCompileStart threads the context through each observer in turn, so a
// tracing observer's span is visible to the ones after it.
func (c *CompositeObserver) OnCompileStart(ctx context.Context, w *graph.Workflow, opts Options) context.Context {
	for _, o := range c.observers {
		ctx = o.OnCompileStart(ctx, w, opts)
	}
	return ctx
}

func (c *CompositeObserver) OnStageStart(ctx context.Context, stage State) {
	for _, o := range c.observers {
		o.OnStageStart(ctx, stage)
	}
}

func (c *CompositeObserver) OnStageCompleted(ctx context.Context, stage State, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStageCompleted(ctx, stage, err, d)
	}
}

func (c *CompositeObserver) OnCompileCompleted(ctx context.Context, r *Result, err error) {
	for _, o := range c.observers {
		o.OnCompileCompleted(ctx, r, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver logs pipeline events to logger, or slog.Default when nil.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnCompileStart(ctx context.Context, w *graph.Workflow, opts Options) context.Context {
	o.Logger.DebugContext(ctx, "compile_start",
		slog.String("workflow", w.Name),
		slog.Int("nodes", w.NodeCount()),
		slog.Int("edges", w.EdgeCount()),
		slog.String("optimization_level", string(opts.OptimizationLevel)),
		slog.Bool("validate_only", opts.ValidateOnly),
		slog.Bool("verify", opts.Verify),
	)
	return ctx
}

func (o *LoggingObserver) OnStageStart(ctx context.Context, stage State) {
	o.Logger.DebugContext(ctx, "stage_start", slog.String("stage", stage.String()))
}

func (o *LoggingObserver) OnStageCompleted(ctx context.Context, stage State, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "stage_completed",
		slog.String("stage", stage.String()),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnCompileCompleted(ctx context.Context, r *Result, err error) {
	if err != nil {
		o.Logger.WarnContext(ctx, "compile_aborted", slog.Any("error", err))
		return
	}
	o.Logger.InfoContext(ctx, "compile_completed",
		slog.Bool("success", r.Success),
		slog.Int("errors", len(r.Errors)),
		slog.Int("warnings", len(r.Warnings)),
		slog.Int64("compilation_time_ms", r.Metadata.CompilationTimeMs),
	)
}
