package source

import (
	"time"

	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
)

// DefaultMaxLineLength bounds a single line, terminator included.
const DefaultMaxLineLength = 1 << 20

// Option configures a File.
type Option func(*options)

type options struct {
	pollInterval    time.Duration
	resetOnTruncate bool
	maxLineLength   int
	log             *logger.Logger
	metrics         *observability.Metrics
}

func defaultOptions() options {
	return options{
		maxLineLength: DefaultMaxLineLength,
	}
}

// WithPollInterval selects tail mode with the given sleep between reopen
// attempts. Zero or negative selects finite mode.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithResetOnTruncate restarts from offset 0 when a reopened file is shorter
// than the cursor.
func WithResetOnTruncate(enabled bool) Option {
	return func(o *options) { o.resetOnTruncate = enabled }
}

// WithMaxLineLength overrides DefaultMaxLineLength. Non-positive values are ignored.
func WithMaxLineLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineLength = n
		}
	}
}

// WithLogger sets the logger. Defaults to the "source" registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records line and reopen counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
