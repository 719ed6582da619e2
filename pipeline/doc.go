// Package pipeline provides lazy, pull-based stream operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, ForEach or an Iter handle. Each stage pulls exactly one value from
// the previous stage per value it yields, so a stage over an infinite source
// stays in lockstep with its consumer and stopping the consumer stops the
// source. Everything runs on the caller's goroutine.
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value (logging, metrics)
//   - Scan: emit the running accumulator after every value
//   - Reduce: accumulate all values into one result
//   - Take: stop after n values
//
// # Usage
//
//	lines := pipeline.From[string](src)
//	lengths := pipeline.Map(lines, func(_ context.Context, s string) (int, error) {
//	    return len(s), nil
//	})
//	running := pipeline.Scan(lengths, 0, func(acc, n int) int { return acc + n })
//	first3, _ := pipeline.Collect(ctx, pipeline.Take(running, 3))
package pipeline
