// Package driver turns a line iterator into frequency tables.
//
// ProcessBatch drains the lines and returns one final table. ProcessStream
// yields a cumulative snapshot after every line, lazily: nothing is read
// until a snapshot is pulled, so it works on a source that never ends.
// For a finite source the last streamed snapshot equals the batch result.
//
// Driver wraps both with a run id, a trace span, structured logs and
// line counters.
package driver
