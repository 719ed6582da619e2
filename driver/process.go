package driver

import (
	"context"

	"github.com/kbukum/linetally/aggregate"
	"github.com/kbukum/linetally/pipeline"
	"github.com/kbukum/linetally/processor"
)

// ProcessBatch drains lines through decorator and filter and returns the
// final table. lines is closed on every exit path. On error the snapshot
// holds the lines counted before the failure.
func ProcessBatch(ctx context.Context, lines pipeline.Iterator[string], decorator processor.Transform, filter processor.Predicate) (aggregate.Snapshot, error) {
	table := aggregate.NewTable()
	_, _, err := pipeline.Last(ctx, pipeline.Reduce(pipeline.From(lines), table, counter(decorator, filter)))
	return table.Snapshot(), err
}

// ProcessStream returns a lazy pipeline of cumulative snapshots, one per
// line. Pulling a snapshot pulls exactly one line from lines, and the
// snapshot after line n reflects lines 1..n only. Closing the pipeline's
// iterator closes lines.
//
// lines is consumed by the first run; the pipeline is not restartable.
func ProcessStream(lines pipeline.Iterator[string], decorator processor.Transform, filter processor.Predicate) *pipeline.Pipeline[aggregate.Snapshot] {
	return pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[aggregate.Snapshot] {
		tables := pipeline.Scan(pipeline.From(lines), aggregate.NewTable(), counter(decorator, filter))
		return pipeline.Map(tables, func(_ context.Context, t *aggregate.Table) (aggregate.Snapshot, error) {
			return t.Snapshot(), nil
		}).Iter(ctx)
	})
}

// counter is the fold step shared by batch and stream: one raw line in,
// the same table out, incremented when the line survives the filter.
func counter(decorator processor.Transform, filter processor.Predicate) func(*aggregate.Table, string) *aggregate.Table {
	return func(t *aggregate.Table, raw string) *aggregate.Table {
		line, ok := processor.ProcessLine(raw, decorator, filter)
		return aggregate.Update(t, line, ok)
	}
}
