package coalesce

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a Coalescer.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	metrics       *Metrics
	timeout       time.Duration
	failureTTL    time.Duration
	prefetchLimit int
}

func defaultOptions() *options {
	return &options{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:       10 * time.Second,
		failureTTL:    30 * time.Second,
		prefetchLimit: 4,
	}
}

// WithLogger sets the logger used for fetch failures.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches shared Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTimeout bounds each fetch. A timeout is an ordinary fetch failure.
// Default: 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithFailureTTL sets how long the fallback value of a failed fetch is served
// before a Get fetches again. Non-positive values are ignored.
// Default: 30 seconds.
func WithFailureTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.failureTTL = d
		}
	}
}

// WithPrefetchLimit caps the number of keys Prefetch loads in parallel.
// Default: 4.
func WithPrefetchLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.prefetchLimit = n
		}
	}
}
