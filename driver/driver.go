package driver

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/linetally/aggregate"
	apperrors "github.com/kbukum/linetally/errors"
	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
	"github.com/kbukum/linetally/pipeline"
	"github.com/kbukum/linetally/processor"
)

// Run modes.
const (
	ModeBatch  = "batch"
	ModeStream = "stream"
)

// Driver runs a Processor over line iterators with run-scoped logging,
// metrics and tracing.
type Driver struct {
	proc    *processor.Processor
	log     *logger.Logger
	metrics *observability.Metrics
	runID   func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Defaults to the "driver" registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithMetrics records line and run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// New creates a Driver for proc. A nil proc counts every line unchanged.
func New(proc *processor.Processor, opts ...Option) *Driver {
	if proc == nil {
		proc = processor.New(nil, nil)
	}
	d := &Driver{proc: proc, runID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get(logger.ComponentDriver)
	}
	return d
}

// Batch counts every line of lines and returns the final table.
func (d *Driver) Batch(ctx context.Context, lines pipeline.Iterator[string]) (aggregate.Snapshot, error) {
	r := d.startRun(ctx, ModeBatch, observability.SpanDriverBatch, lines)
	snap, err := ProcessBatch(r.ctx, lines, d.proc.Decorator(), r.observe(d.proc.Filter()))
	r.finish(err)
	return snap, err
}

// Stream returns the lazy snapshot pipeline for lines. The run starts when
// the pipeline's iterator is created and finishes when it is closed.
func (d *Driver) Stream(lines pipeline.Iterator[string]) *pipeline.Pipeline[aggregate.Snapshot] {
	return pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[aggregate.Snapshot] {
		r := d.startRun(ctx, ModeStream, observability.SpanDriverStream, lines)
		inner := ProcessStream(lines, d.proc.Decorator(), r.observe(d.proc.Filter())).Iter(r.ctx)
		return &streamIter{inner: inner, run: r}
	})
}

type streamIter struct {
	inner pipeline.Iterator[aggregate.Snapshot]
	run   *run
	err   error
	once  sync.Once
}

func (it *streamIter) Next(ctx context.Context) (aggregate.Snapshot, bool, error) {
	snap, ok, err := it.inner.Next(trace.ContextWithSpan(ctx, it.run.span))
	if err != nil {
		it.err = err
	}
	return snap, ok, err
}

func (it *streamIter) Close() error {
	err := it.inner.Close()
	it.once.Do(func() { it.run.finish(it.err) })
	return err
}

// run carries the state of one Batch or Stream call.
type run struct {
	ctx     context.Context
	rc      *observability.RunContext
	span    trace.Span
	log     *logger.Logger
	read    int
	counted int
}

type pathed interface {
	Path() string
}

func (d *Driver) startRun(ctx context.Context, mode, spanName string, lines any) *run {
	var path string
	if p, ok := lines.(pathed); ok {
		path = p.Path()
	}
	rc := observability.NewRunContext(d.runID(), mode, path, d.metrics)
	ctx, span := rc.StartSpanForRun(ctx, spanName)

	fields := logger.Fields(logger.FieldRunID, rc.RunID, logger.FieldMode, mode)
	if path != "" {
		fields[logger.FieldPath] = path
	}
	r := &run{ctx: ctx, rc: rc, span: span, log: d.log.WithFields(fields)}
	r.log.Info("run started")
	return r
}

// observe wraps filter to count processed and accepted lines.
func (r *run) observe(filter processor.Predicate) processor.Predicate {
	if filter == nil {
		filter = processor.AcceptAll
	}
	return func(s string) bool {
		ok := filter(s)
		r.read++
		if ok {
			r.counted++
		}
		r.rc.Metrics.RecordLine(r.ctx, r.rc.Mode, ok)
		return ok
	}
}

func (r *run) finish(err error) {
	status := "ok"
	spanErr := err
	switch {
	case err == nil:
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
		spanErr = nil
	default:
		status = "error"
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		r.rc.Metrics.RecordError(r.ctx, code, logger.ComponentDriver)
	}

	r.span.SetAttributes(
		attribute.Int(observability.AttrLinesRead, r.read),
		attribute.Int(observability.AttrLinesCounted, r.counted),
	)
	r.rc.EndRun(r.ctx, r.span, status, spanErr)

	fields := logger.Fields(
		"status", status,
		"lines_read", r.read,
		"lines_counted", r.counted,
		logger.FieldDuration, r.rc.Duration().Milliseconds(),
	)
	if spanErr != nil {
		r.log.WithError(spanErr).Error("run failed", fields)
		return
	}
	r.log.Info("run finished", fields)
}
