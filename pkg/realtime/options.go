package realtime

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	metrics     *Metrics
	limits      Limits
	emitTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		limits: Limits{
			MaxAttempts:   5,
			RetryDelay:    time.Second,
			MaxRetryDelay: 5 * time.Second,
		},
		emitTimeout: 5 * time.Second,
	}
}

// WithLogger sets the logger for connection and replay events.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxAttempts sets how many consecutive failed handshakes are tolerated
// before the manager degrades.
// Default: 5.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limits.MaxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts and its cap.
// The n-th retry waits min(delay*n, maxDelay). Pass maxDelay equal to delay
// for a fixed delay.
// Default: 1s, capped at 5s.
func WithRetryDelay(delay, maxDelay time.Duration) Option {
	return func(o *options) {
		if delay > 0 {
			o.limits.RetryDelay = delay
		}
		if maxDelay >= 0 {
			o.limits.MaxRetryDelay = maxDelay
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEmitTimeout bounds join and leave frames sent during replay.
// Default: 5 seconds.
func WithEmitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.emitTimeout = d
		}
	}
}
