package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunContext holds observability state for one batch or stream run.
type RunContext struct {
	RunID     string
	Mode      string
	Path      string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunContext creates a run context. If metrics is nil, metric recording
// is skipped.
func NewRunContext(runID, mode, path string, metrics *Metrics) *RunContext {
	return &RunContext{
		RunID:     runID,
		Mode:      mode,
		Path:      path,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpanForRun starts a span tagged with the run attributes and stores the
// run context in the returned context.
func (rc *RunContext) StartSpanForRun(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrRunID, rc.RunID),
		attribute.String(AttrMode, rc.Mode),
	)
	if rc.Path != "" {
		span.SetAttributes(attribute.String(AttrPath, rc.Path))
	}
	return WithRunContext(ctx, rc), span
}

// EndRun ends the span and records the run duration.
func (rc *RunContext) EndRun(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(rc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	rc.Metrics.RecordRun(ctx, rc.Mode, status, duration)
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
