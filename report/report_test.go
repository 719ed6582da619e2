package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/kbukum/linetally/aggregate"
	"github.com/kbukum/linetally/pipeline"
)

func tableOf(lines ...string) *aggregate.Table {
	t := aggregate.NewTable()
	for _, l := range lines {
		t.Add(l)
	}
	return t
}

func TestWriteBatch(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"empty", nil, "Total count:\n"},
		{"example", []string{"txt", "csv"}, "Total count:\ntxt: 1\ncsv: 1\n"},
		{"repeated", []string{"b", "a", "b"}, "Total count:\nb: 2\na: 1\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteBatch(&buf, tableOf(tc.lines...).Snapshot()); err != nil {
				t.Fatalf("WriteBatch: %v", err)
			}
			if buf.String() != tc.want {
				t.Errorf("got %q, want %q", buf.String(), tc.want)
			}
		})
	}
}

func TestStreamWriterHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)

	table := aggregate.NewTable()
	table.Add("txt")
	if err := sw.Write(table.Snapshot()); err != nil {
		t.Fatal(err)
	}
	table.Add("csv")
	if err := sw.Write(table.Snapshot()); err != nil {
		t.Fatal(err)
	}

	want := "Cumulative count:\n----\ntxt: 1\n----\ntxt: 1\ncsv: 1\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteStream(t *testing.T) {
	snaps := []aggregate.Snapshot{
		tableOf("a").Snapshot(),
		tableOf("a", "a").Snapshot(),
	}
	var buf bytes.Buffer
	if err := WriteStream(context.Background(), &buf, pipeline.FromSlice(snaps)); err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	want := "Cumulative count:\n----\na: 1\n----\na: 2\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteStreamHeaderBeforeFirstPull(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStream(context.Background(), &buf, pipeline.FromSlice[aggregate.Snapshot](nil)); err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	if buf.String() != StreamHeader+"\n" {
		t.Errorf("got %q, want header only", buf.String())
	}
}

// blockingIter fails the test if it is pulled, and records Close.
type blockingIter struct {
	t      *testing.T
	closed bool
}

func (it *blockingIter) Next(context.Context) (aggregate.Snapshot, bool, error) {
	it.t.Error("snapshot pulled after the header write failed")
	return aggregate.Snapshot{}, false, nil
}

func (it *blockingIter) Close() error {
	it.closed = true
	return nil
}

func TestWriteStreamHeaderError(t *testing.T) {
	it := &blockingIter{t: t}
	if err := WriteStream(context.Background(), &failingWriter{after: 0}, pipeline.From[aggregate.Snapshot](it)); err == nil {
		t.Fatal("expected header write error")
	}
	if !it.closed {
		t.Error("iterator not closed after header write error")
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestWriteErrorsPropagate(t *testing.T) {
	snap := tableOf("a", "b").Snapshot()

	if err := WriteBatch(&failingWriter{after: 0}, snap); err == nil {
		t.Error("expected header write error")
	}
	if err := WriteBatch(&failingWriter{after: 1}, snap); err == nil {
		t.Error("expected row write error")
	}
	if err := NewStreamWriter(&failingWriter{after: 1}).Write(snap); err == nil {
		t.Error("expected separator write error")
	}
}
