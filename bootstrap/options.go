package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/linetally/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	logWriter       io.Writer
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the logger is built from the
// config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithLogWriter builds the logger from config but writes to w instead of
// the configured output.
func WithLogWriter(w io.Writer) Option {
	return func(o *appOptions) { o.logWriter = w }
}

// WithGracefulTimeout bounds the time the stop hooks may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}
