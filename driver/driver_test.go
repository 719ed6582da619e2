package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/linetally/aggregate"
	apperrors "github.com/kbukum/linetally/errors"
	"github.com/kbukum/linetally/linefunc"
	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
	"github.com/kbukum/linetally/pipeline"
	"github.com/kbukum/linetally/source"
)

// lineIter yields items, then either ends, fails with failAt, or repeats
// "x" forever when infinite is set.
type lineIter struct {
	items    []string
	pos      int
	failAt   int
	err      error
	infinite bool
	pulls    int
	closed   int
}

func (it *lineIter) Next(context.Context) (string, bool, error) {
	it.pulls++
	if it.err != nil && it.pos == it.failAt {
		return "", false, it.err
	}
	if it.pos < len(it.items) {
		it.pos++
		return it.items[it.pos-1], true, nil
	}
	if it.infinite {
		return "x", true, nil
	}
	return "", false, nil
}

func (it *lineIter) Close() error {
	it.closed++
	return nil
}

func entries(s aggregate.Snapshot) map[string]int {
	m := map[string]int{}
	s.Each(func(line string, count int) bool {
		m[line] = count
		return true
	})
	return m
}

func sameSnapshot(a, b aggregate.Snapshot) bool {
	ak, bk := a.Keys(), b.Keys()
	if len(ak) != len(bk) {
		return false
	}
	for i := range ak {
		if ak[i] != bk[i] || a.Count(ak[i]) != b.Count(bk[i]) {
			return false
		}
	}
	return true
}

func TestProcessBatchEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.log")
	content := strings.Join([]string{
		"2024-01-01 open test.TXT",
		"2024-01-01 open test.debug",
		"unrelated line",
		"2024-01-01 open test.CSV",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := source.ReadAll(path, 0, source.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	proc := linefunc.DefaultProcessor()

	snap, err := ProcessBatch(context.Background(), f, proc.Decorator(), proc.Filter())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	want := []aggregate.Entry{{Line: "txt", Count: 1}, {Line: "csv", Count: 1}}
	got := snap.Entries()
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestProcessBatchNilFunctions(t *testing.T) {
	it := &lineIter{items: []string{"a", "b", "a"}}
	snap, err := ProcessBatch(context.Background(), it, nil, nil)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if snap.Count("a") != 2 || snap.Count("b") != 1 {
		t.Errorf("got %v", entries(snap))
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	it := &lineIter{}
	snap, err := ProcessBatch(context.Background(), it, nil, nil)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("expected empty snapshot, got %v", entries(snap))
	}
	if it.pulls != 1 || it.closed != 1 {
		t.Errorf("pulls = %d, closed = %d, want 1 and 1", it.pulls, it.closed)
	}
}

func TestProcessStreamSnapshots(t *testing.T) {
	proc := linefunc.DefaultProcessor()
	it := &lineIter{items: []string{"test.txt\n", "test.csv\n", "test.debug\n"}}

	snaps, err := pipeline.Collect(context.Background(),
		ProcessStream(it, proc.Decorator(), proc.Filter()))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []map[string]int{
		{"txt": 1},
		{"txt": 1, "csv": 1},
		{"txt": 1, "csv": 1},
	}
	if len(snaps) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), len(want))
	}
	for i := range want {
		got := entries(snaps[i])
		if len(got) != len(want[i]) {
			t.Errorf("snapshot %d = %v, want %v", i, got, want[i])
			continue
		}
		for k, v := range want[i] {
			if got[k] != v {
				t.Errorf("snapshot %d[%q] = %d, want %d", i, k, got[k], v)
			}
		}
	}
	if it.closed != 1 {
		t.Errorf("source closed %d times, want 1", it.closed)
	}
}

func TestProcessStreamIsLazy(t *testing.T) {
	it := &lineIter{infinite: true}

	snaps, err := pipeline.Collect(context.Background(),
		pipeline.Take(ProcessStream(it, nil, nil), 3))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots", len(snaps))
	}
	if it.pulls != 3 {
		t.Errorf("source pulled %d times, want 3", it.pulls)
	}
	for i, s := range snaps {
		if s.Count("x") != i+1 {
			t.Errorf("snapshot %d count = %d, want %d", i, s.Count("x"), i+1)
		}
	}
	if it.closed != 1 {
		t.Errorf("source closed %d times, want 1", it.closed)
	}
}

func TestBatchEqualsLastStreamSnapshot(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"alpha", "beta", "gamma", "debug", ""}
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(50)
		lines := make([]string, n)
		for i := range lines {
			lines[i] = "test." + words[rng.Intn(len(words))] + "\n"
		}
		proc := linefunc.DefaultProcessor()

		batch, err := ProcessBatch(context.Background(), &lineIter{items: lines}, proc.Decorator(), proc.Filter())
		if err != nil {
			t.Fatal(err)
		}
		last, ok, err := pipeline.Last(context.Background(),
			ProcessStream(&lineIter{items: lines}, proc.Decorator(), proc.Filter()))
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			if batch.Len() != 0 {
				t.Errorf("trial %d: empty stream but batch has %d keys", trial, batch.Len())
			}
			continue
		}
		if !sameSnapshot(batch, last) {
			t.Errorf("trial %d: batch %v != last stream %v", trial, batch.Entries(), last.Entries())
		}
	}
}

func TestIteratorClosedOnError(t *testing.T) {
	boom := errors.New("boom")

	t.Run("batch", func(t *testing.T) {
		it := &lineIter{items: []string{"a", "b", "c"}, failAt: 2, err: boom}
		snap, err := ProcessBatch(context.Background(), it, nil, nil)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if snap.Total() != 2 {
			t.Errorf("partial total = %d, want 2", snap.Total())
		}
		if it.closed != 1 {
			t.Errorf("closed %d times, want 1", it.closed)
		}
	})

	t.Run("stream", func(t *testing.T) {
		it := &lineIter{items: []string{"a", "b"}, failAt: 1, err: boom}
		snaps, err := pipeline.Collect(context.Background(), ProcessStream(it, nil, nil))
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if len(snaps) != 1 {
			t.Errorf("got %d snapshots before error, want 1", len(snaps))
		}
		if it.closed != 1 {
			t.Errorf("closed %d times, want 1", it.closed)
		}
	})
}

func TestStreamSnapshotsAreIsolated(t *testing.T) {
	it := &lineIter{items: []string{"a", "a", "b"}}
	snaps, err := pipeline.Collect(context.Background(), ProcessStream(it, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if snaps[0].Count("a") != 1 || snaps[0].Len() != 1 {
		t.Errorf("first snapshot changed after later lines: %v", snaps[0].Entries())
	}
}

func newTestDriver(t *testing.T, buf *bytes.Buffer) (*Driver, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "linetally", buf)
	d := New(linefunc.DefaultProcessor(), WithLogger(log), WithMetrics(metrics))
	d.runID = func() string { return "run-1" }
	return d, exporter, reader
}

func counterSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestDriverBatch(t *testing.T) {
	var buf bytes.Buffer
	d, exporter, reader := newTestDriver(t, &buf)

	it := &lineIter{items: []string{"test.txt", "test.debug", "noise", "test.csv"}}
	snap, err := d.Batch(context.Background(), it)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("got %v", snap.Entries())
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != observability.SpanDriverBatch {
		t.Fatalf("expected one %q span, got %v", observability.SpanDriverBatch, spans)
	}

	sums := counterSums(t, reader)
	if sums["lines.counted"] != 2 || sums["lines.rejected"] != 2 {
		t.Errorf("metrics = %v", sums)
	}

	records := logRecords(t, &buf)
	if len(records) != 2 {
		t.Fatalf("expected start and finish records, got %d", len(records))
	}
	for _, rec := range records {
		if rec[logger.FieldRunID] != "run-1" || rec[logger.FieldMode] != ModeBatch {
			t.Errorf("missing run fields in %v", rec)
		}
	}
	if records[1]["lines_read"] != float64(4) || records[1]["lines_counted"] != float64(2) {
		t.Errorf("finish record = %v", records[1])
	}
}

func TestDriverBatchError(t *testing.T) {
	var buf bytes.Buffer
	d, exporter, reader := newTestDriver(t, &buf)

	failure := apperrors.InternalRelease("in.log", "reopen", errors.New("gone"))
	it := &lineIter{items: []string{"test.a"}, failAt: 1, err: failure}
	if _, err := d.Batch(context.Background(), it); !apperrors.Is(err, apperrors.ErrCodeInternalRelease) {
		t.Fatalf("expected INTERNAL_RELEASE_ERROR, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || len(spans[0].Events) == 0 {
		t.Fatalf("expected span with recorded error, got %v", spans)
	}
	if counterSums(t, reader)["error.total"] != 1 {
		t.Error("expected one error recorded")
	}
	if !strings.Contains(buf.String(), "run failed") {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}

func TestDriverStream(t *testing.T) {
	var buf bytes.Buffer
	d, exporter, _ := newTestDriver(t, &buf)

	it := &lineIter{items: []string{"test.txt", "test.csv"}}
	snaps, err := pipeline.Collect(context.Background(), d.Stream(it))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snaps) != 2 || snaps[1].Len() != 2 {
		t.Fatalf("got %d snapshots", len(snaps))
	}
	if it.closed != 1 {
		t.Errorf("source closed %d times", it.closed)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != observability.SpanDriverStream {
		t.Fatalf("expected one %q span, got %v", observability.SpanDriverStream, spans)
	}
}

func TestDriverStreamCancelled(t *testing.T) {
	var buf bytes.Buffer
	d, _, reader := newTestDriver(t, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	it := &lineIter{infinite: true}
	n := 0
	err := pipeline.ForEach(ctx, d.Stream(it), func(context.Context, aggregate.Snapshot) error {
		n++
		if n == 5 {
			cancel()
			return ctx.Err()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if it.closed != 1 {
		t.Errorf("source closed %d times", it.closed)
	}
	if counterSums(t, reader)["error.total"] != 0 {
		t.Error("cancellation must not count as an error")
	}
	if strings.Contains(buf.String(), "run failed") {
		t.Error("cancellation must not log a failure")
	}
}

func TestNewDefaults(t *testing.T) {
	d := New(nil)
	snap, err := d.Batch(context.Background(), &lineIter{items: []string{"a", "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Count("a") != 2 {
		t.Errorf("count = %d", snap.Count("a"))
	}
	if d.runID() == d.runID() {
		t.Error("expected distinct run ids")
	}
}
