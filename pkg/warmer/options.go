package warmer

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/pulse/pkg/logger"
)

// Option configures a Warmer.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	timeout time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:  logger.NewNope(),
		timeout: 30 * time.Second,
	}
}

// WithLogger sets the logger.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeout bounds one scheduled run across all of its keys.
// Default: 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}
