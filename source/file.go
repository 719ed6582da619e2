package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	apperrors "github.com/kbukum/linetally/errors"
	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
	"github.com/kbukum/linetally/pipeline"
)

var _ pipeline.Iterator[string] = (*File)(nil)

// File yields the lines of a file in order, terminators preserved.
//
// In finite mode Next reports exhaustion at end of file. In tail mode the
// handle is released whenever no complete line is available, and after the
// poll interval the same path is reopened and positioned at the cursor, so a
// growing file is followed indefinitely.
//
// A File is not safe for concurrent use.
type File struct {
	path string
	opts options
	log  *logger.Logger

	file   *os.File
	reader *bufio.Reader
	// offset is the byte position right after the last complete line handed out.
	offset int64

	done   bool
	closed bool
	fatal  error
}

// Open opens path for reading. It fails with NOT_FOUND_OR_UNREADABLE if
// the path cannot be opened or names a directory.
func Open(path string, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logger.Get(logger.ComponentSource)
	}

	fh, err := openRegular(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		path:   path,
		opts:   o,
		log:    log.WithFields(logger.Fields(logger.FieldPath, path)),
		file:   fh,
		reader: bufio.NewReader(fh),
	}
	f.log.Debug("source opened", logger.Fields(logger.FieldMode, f.mode()))
	return f, nil
}

// ReadAll opens path in finite mode when pollInterval <= 0, and in tail mode
// polling every pollInterval otherwise.
func ReadAll(path string, pollInterval time.Duration, opts ...Option) (*File, error) {
	return Open(path, append(opts, WithPollInterval(pollInterval))...)
}

func openRegular(path string) (*os.File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NotFoundOrUnreadable(path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, apperrors.NotFoundOrUnreadable(path, err)
	}
	if info.IsDir() {
		_ = fh.Close()
		return nil, apperrors.NotFoundOrUnreadable(path, errors.New("is a directory"))
	}
	return fh, nil
}

// Path returns the path the File reads from.
func (f *File) Path() string { return f.path }

// Tailing reports whether the File follows the file past its end.
func (f *File) Tailing() bool { return f.opts.pollInterval > 0 }

func (f *File) mode() string {
	if f.Tailing() {
		return "tail"
	}
	return "finite"
}

// Next returns the next line. In tail mode it blocks until a complete line is
// written, ctx is cancelled, or the handle cannot be reacquired.
func (f *File) Next(ctx context.Context) (string, bool, error) {
	if f.fatal != nil {
		return "", false, f.fatal
	}
	if f.closed || f.done {
		return "", false, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if f.file == nil {
			if err := f.reacquire(ctx); err != nil {
				return "", false, f.fail(ctx, err)
			}
		}

		line, complete, err := f.readLine()
		if err != nil {
			return "", false, f.fail(ctx, err)
		}
		if complete {
			f.offset += int64(len(line))
			f.opts.metrics.RecordLineRead(ctx, f.path)
			return line, true, nil
		}

		if !f.Tailing() {
			f.done = true
			f.release()
			if line == "" {
				return "", false, nil
			}
			f.offset += int64(len(line))
			f.opts.metrics.RecordLineRead(ctx, f.path)
			return line, true, nil
		}

		// The fragment is not consumed; it is read again after the reopen.
		f.release()
		if err := sleep(ctx, f.opts.pollInterval); err != nil {
			return "", false, err
		}
	}
}

// readLine reads up to and including the next '\n'. complete is false when
// end of file was reached first; line then holds the unterminated fragment.
func (f *File) readLine() (line string, complete bool, err error) {
	var buf []byte
	for {
		chunk, err := f.reader.ReadSlice('\n')
		if len(buf)+len(chunk) > f.opts.maxLineLength {
			return "", false, apperrors.Internal(
				fmt.Errorf("line at offset %d exceeds %d bytes", f.offset, f.opts.maxLineLength),
			).WithDetail("path", f.path)
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return string(buf), true, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return string(buf), false, nil
		default:
			return "", false, apperrors.Internal(fmt.Errorf("reading %s: %w", f.path, err)).
				WithDetail("path", f.path)
		}
	}
}

// release closes the handle. The cursor is kept in f.offset.
func (f *File) release() {
	if f.file == nil {
		return
	}
	if err := f.file.Close(); err != nil {
		f.log.Debug("close failed", logger.ErrorFields("release", err))
	}
	f.file = nil
	f.log.Debug("handle released", logger.Fields(logger.FieldOffset, f.offset))
}

// reacquire reopens the path and positions it at the cursor.
func (f *File) reacquire(ctx context.Context) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return apperrors.InternalRelease(f.path, "reopen", err)
	}

	if f.opts.resetOnTruncate {
		info, err := fh.Stat()
		if err != nil {
			_ = fh.Close()
			return apperrors.InternalRelease(f.path, "stat", err)
		}
		if info.Size() < f.offset {
			f.log.Info("file truncated, restarting from the beginning", logger.Fields(
				logger.FieldOffset, f.offset,
				"size", info.Size(),
			))
			f.offset = 0
		}
	}

	if _, err := fh.Seek(f.offset, io.SeekStart); err != nil {
		_ = fh.Close()
		return apperrors.InternalRelease(f.path, "seek", err)
	}

	f.file = fh
	if f.reader == nil {
		f.reader = bufio.NewReader(fh)
	} else {
		f.reader.Reset(fh)
	}

	f.opts.metrics.RecordReopen(ctx, f.path)
	observability.SpanFromContext(ctx).AddEvent(observability.EventSourceReopen)
	f.log.Debug("handle reacquired", logger.Fields(logger.FieldOffset, f.offset))
	return nil
}

// fail records err as terminal, releases the handle and returns err.
func (f *File) fail(ctx context.Context, err error) error {
	f.fatal = err
	f.release()
	code := string(apperrors.ErrCodeInternal)
	if appErr, ok := apperrors.AsAppError(err); ok {
		code = string(appErr.Code)
	}
	f.opts.metrics.RecordError(ctx, code, logger.ComponentSource)
	f.log.Error("source failed", logger.ErrorFields("next", err))
	return err
}

// Close releases the handle. It is safe to call more than once.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err != nil {
		return apperrors.Internal(fmt.Errorf("closing %s: %w", f.path, err))
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
