package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/constants"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

type spanKey struct{}

// Observer turns pipeline events into spans and metrics. One compile span
// covers a compilation; each timed stage becomes a child span.
type Observer struct {
	compiler.NoopObserver

	tracer       trace.Tracer
	compilations metric.Int64Counter
	stageTime    metric.Float64Histogram
	compileTime  metric.Float64Histogram
}

// NewObserver creates an Observer on the given providers.
func NewObserver(tp trace.TracerProvider, mp metric.MeterProvider) (*Observer, error) {
	meter := mp.Meter(constants.ModulePath + "/compiler")

	compilations, err := meter.Int64Counter("compiler.compilations",
		metric.WithDescription("Compilations by outcome"))
	if err != nil {
		return nil, err
	}
	stageTime, err := meter.Float64Histogram("compiler.stage.duration",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	compileTime, err := meter.Float64Histogram("compiler.compilation.duration",
		metric.WithDescription("End-to-end compilation time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:       tp.Tracer(constants.ModulePath + "/compiler"),
		compilations: compilations,
		stageTime:    stageTime,
		compileTime:  compileTime,
	}, nil
}

func (o *Observer) OnCompileStart(ctx context.Context, w *graph.Workflow, opts compiler.Options) context.Context {
	ctx, span := o.tracer.Start(ctx, "compile", trace.WithAttributes(
		attribute.String("workflow.name", w.Name),
		attribute.Int("workflow.nodes", w.NodeCount()),
		attribute.Int("workflow.edges", w.EdgeCount()),
		attribute.String("compile.optimization_level", string(opts.OptimizationLevel)),
		attribute.Bool("compile.validate_only", opts.ValidateOnly),
		attribute.Bool("compile.verify", opts.Verify),
	))
	return context.WithValue(ctx, spanKey{}, span)
}

// OnStageCompleted records the stage span after the fact, back-dated to the
// stage's start, so no per-call state is kept between callbacks.
func (o *Observer) OnStageCompleted(ctx context.Context, stage compiler.State, err error, d time.Duration) {
	end := time.Now()
	_, span := o.tracer.Start(ctx, stage.String(), trace.WithTimestamp(end.Add(-d)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))

	o.stageTime.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("stage", stage.String()),
		attribute.Bool("ok", err == nil),
	))
}

func (o *Observer) OnCompileCompleted(ctx context.Context, r *compiler.Result, err error) {
	outcome := "aborted"
	switch {
	case err != nil:
	case r.Success:
		outcome = "success"
	case generationFailed(r):
		outcome = "failed"
	default:
		outcome = "invalid"
	}
	o.compilations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if r != nil {
		o.compileTime.Record(ctx, float64(r.Metadata.CompilationTimeMs))
	}

	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("compile.outcome", outcome))
	if r != nil {
		span.SetAttributes(
			attribute.Int("compile.errors", len(r.Errors)),
			attribute.Int("compile.warnings", len(r.Warnings)),
		)
		if r.Metadata.ContentHash != "" {
			span.SetAttributes(attribute.String("compile.content_hash", r.Metadata.ContentHash))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if !r.Success {
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

func generationFailed(r *compiler.Result) bool {
	for _, d := range r.Errors {
		if d.Phase == diagnostic.PhaseGeneration {
			return true
		}
	}
	return false
}
