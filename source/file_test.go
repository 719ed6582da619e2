package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/kbukum/linetally/errors"
	"github.com/kbukum/linetally/logger"
)

const testPoll = 10 * time.Millisecond

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Errorf("open for append: %v", err)
		return
	}
	defer fh.Close()
	if _, err := fh.WriteString(content); err != nil {
		t.Errorf("append: %v", err)
	}
}

func nextLine(t *testing.T, ctx context.Context, f *File) string {
	t.Helper()
	line, ok, err := f.Next(ctx)
	if err != nil {
		t.Fatalf("Next: unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("Next: unexpected end of input")
	}
	return line
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFiniteRead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"terminated", "a\nb\n", []string{"a\n", "b\n"}},
		{"crlf preserved", "a\r\nb\r\n", []string{"a\r\n", "b\r\n"}},
		{"unterminated last line", "a\nb", []string{"a\n", "b"}},
		{"blank lines", "\n\nx\n", []string{"\n", "\n", "x\n"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.txt")
			writeFile(t, path, tc.content)

			f, err := ReadAll(path, 0, WithLogger(logger.Nop()))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			defer f.Close()

			var got []string
			for {
				line, ok, err := f.Next(context.Background())
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if !ok {
					break
				}
				got = append(got, line)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
			if f.offset != int64(len(tc.content)) {
				t.Errorf("offset = %d, want %d", f.offset, len(tc.content))
			}

			// exhausted stays exhausted
			if _, ok, err := f.Next(context.Background()); ok || err != nil {
				t.Errorf("expected exhausted iterator, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestLongLineSpansBufferRefills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	long := string(make([]byte, 10000)) + "\n"
	writeFile(t, path, long+"tail\n")

	f, err := Open(path, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	if got := nextLine(t, ctx, f); got != long {
		t.Errorf("long line length = %d, want %d", len(got), len(long))
	}
	if got := nextLine(t, ctx, f); got != "tail\n" {
		t.Errorf("got %q, want %q", got, "tail\n")
	}
}

func TestMaxLineLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	writeFile(t, path, "short\nthis line is far too long\n")

	f, err := Open(path, WithMaxLineLength(8), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	if got := nextLine(t, ctx, f); got != "short\n" {
		t.Fatalf("got %q", got)
	}
	_, ok, err := f.Next(ctx)
	if ok || !apperrors.Is(err, apperrors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got ok=%v err=%v", ok, err)
	}
	if f.file != nil {
		t.Error("expected handle released after fatal error")
	}
	if _, _, again := f.Next(ctx); !errors.Is(again, err) {
		t.Errorf("expected sticky error, got %v", again)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.txt")},
		{"directory", dir},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Open(tc.path)
			if f != nil {
				t.Error("expected nil File")
			}
			if !apperrors.Is(err, apperrors.ErrCodeNotFoundOrUnreadable) {
				t.Fatalf("expected NOT_FOUND_OR_UNREADABLE, got %v", err)
			}
			if apperrors.ExitCode(err) != apperrors.ExitFailure {
				t.Errorf("exit code = %d, want %d", apperrors.ExitCode(err), apperrors.ExitFailure)
			}
		})
	}
}

func TestTailResumption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.log")
	writeFile(t, path, "l1\nl2\nl3\n")

	f, err := ReadAll(path, testPoll, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	for _, want := range []string{"l1\n", "l2\n", "l3\n"} {
		if got := nextLine(t, ctx, f); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}

	go func() {
		time.Sleep(5 * testPoll)
		appendFile(t, path, "l4\nl5\n")
	}()

	for _, want := range []string{"l4\n", "l5\n"} {
		if got := nextLine(t, ctx, f); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if f.offset != int64(len("l1\nl2\nl3\nl4\nl5\n")) {
		t.Errorf("offset = %d", f.offset)
	}
}

func TestTailHoldsBackPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.log")
	writeFile(t, path, "one\npar")

	f, err := ReadAll(path, testPoll, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	if got := nextLine(t, ctx, f); got != "one\n" {
		t.Fatalf("got %q", got)
	}

	go func() {
		time.Sleep(5 * testPoll)
		appendFile(t, path, "tial\n")
	}()

	if got := nextLine(t, ctx, f); got != "partial\n" {
		t.Fatalf("got %q, want %q", got, "partial\n")
	}
}

func TestTailEmptyFileStartsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	writeFile(t, path, "")

	f, err := ReadAll(path, testPoll, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	go func() {
		time.Sleep(5 * testPoll)
		appendFile(t, path, "first\n")
	}()

	ctx := testContext(t)
	if got := nextLine(t, ctx, f); got != "first\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTailCancelDuringSleep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle.log")
	writeFile(t, path, "")

	f, err := ReadAll(path, time.Hour, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok, err := f.Next(ctx)
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got ok=%v err=%v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	if f.file != nil {
		t.Error("expected no handle held during sleep")
	}

	// cancellation is not fatal; a fresh context resumes
	appendFile(t, path, "later\n")
	if got := nextLine(t, testContext(t), f); got != "later\n" {
		t.Errorf("got %q", got)
	}
}

func TestTailReopenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.log")
	writeFile(t, path, "x\n")

	f, err := ReadAll(path, testPoll, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	nextLine(t, ctx, f)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, ok, err := f.Next(ctx)
	if ok || !apperrors.Is(err, apperrors.ErrCodeInternalRelease) {
		t.Fatalf("expected INTERNAL_RELEASE_ERROR, got ok=%v err=%v", ok, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected cause to wrap os.ErrNotExist, got %v", err)
	}
}

func TestTailResetOnTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotate.log")
	writeFile(t, path, "aaaa\nbbbb\n")

	f, err := ReadAll(path, testPoll, WithResetOnTruncate(true), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	nextLine(t, ctx, f)
	nextLine(t, ctx, f)

	writeFile(t, path, "c\n")
	if got := nextLine(t, ctx, f); got != "c\n" {
		t.Fatalf("got %q, want %q", got, "c\n")
	}
	if f.offset != 2 {
		t.Errorf("offset = %d, want 2", f.offset)
	}
}

func TestTailTruncateWithoutReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotate.log")
	writeFile(t, path, "aaaa\nbbbb\n")

	f, err := ReadAll(path, testPoll, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer f.Close()

	ctx := testContext(t)
	nextLine(t, ctx, f)
	nextLine(t, ctx, f)

	// The cursor stays at 10, past the end of the shorter file.
	writeFile(t, path, "c\n")
	idle, cancel := context.WithTimeout(ctx, 5*testPoll)
	defer cancel()
	if line, ok, err := f.Next(idle); ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Next on truncated file = (%q, %v, %v), want deadline exceeded", line, ok, err)
	}
	if f.offset != 10 {
		t.Errorf("offset = %d, want 10", f.offset)
	}

	// Once the file grows past the cursor, reading resumes there.
	appendFile(t, path, "dddddddddd\n")
	if got := nextLine(t, ctx, f); got != "dd\n" {
		t.Errorf("got %q, want %q", got, "dd\n")
	}
}

func TestCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	writeFile(t, path, "a\n")

	f, err := Open(path, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := f.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	if _, ok, err := f.Next(context.Background()); ok || err != nil {
		t.Errorf("Next after Close: ok=%v err=%v", ok, err)
	}
}

func TestModeAccessors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	writeFile(t, path, "")

	finite, err := ReadAll(path, 0)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer finite.Close()
	tail, err := ReadAll(path, time.Second)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	defer tail.Close()

	if finite.Tailing() || !tail.Tailing() {
		t.Errorf("Tailing: finite=%v tail=%v", finite.Tailing(), tail.Tailing())
	}
	if finite.Path() != path {
		t.Errorf("Path = %q", finite.Path())
	}
}
