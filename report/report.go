package report

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/linetally/aggregate"
	"github.com/kbukum/linetally/pipeline"
)

const (
	BatchHeader     = "Total count:"
	StreamHeader    = "Cumulative count:"
	StreamSeparator = "----"
)

// WriteTable writes one "<line>: <count>" row per entry in first-occurrence order.
func WriteTable(w io.Writer, snap aggregate.Snapshot) error {
	var err error
	snap.Each(func(line string, count int) bool {
		_, err = fmt.Fprintf(w, "%s: %d\n", line, count)
		return err == nil
	})
	return err
}

// WriteBatch writes the final table under the batch header.
func WriteBatch(w io.Writer, snap aggregate.Snapshot) error {
	if _, err := fmt.Fprintln(w, BatchHeader); err != nil {
		return err
	}
	return WriteTable(w, snap)
}

// StreamWriter writes the stream header once, then a separator and the full
// table for every snapshot.
type StreamWriter struct {
	w       io.Writer
	started bool
}

// NewStreamWriter creates a StreamWriter on w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Start writes the stream header if it has not been written yet.
func (s *StreamWriter) Start() error {
	if s.started {
		return nil
	}
	if _, err := fmt.Fprintln(s.w, StreamHeader); err != nil {
		return err
	}
	s.started = true
	return nil
}

// Write renders one snapshot, preceded by the header on first use.
func (s *StreamWriter) Write(snap aggregate.Snapshot) error {
	if err := s.Start(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, StreamSeparator); err != nil {
		return err
	}
	return WriteTable(s.w, snap)
}

// WriteStream writes the header, then renders every snapshot pulled from p
// until it is exhausted, ctx is cancelled, or a write fails. The header is
// out before the first pull, so an idle source still shows it. p's iterator
// is closed on every path.
func WriteStream(ctx context.Context, w io.Writer, p *pipeline.Pipeline[aggregate.Snapshot]) error {
	it := p.Iter(ctx)
	sw := NewStreamWriter(w)
	if err := sw.Start(); err != nil {
		it.Close()
		return err
	}
	return pipeline.ForEach(ctx, pipeline.From(it), func(_ context.Context, snap aggregate.Snapshot) error {
		return sw.Write(snap)
	})
}
