package cache

import (
	"io"
	"log/slog"
	"time"
)

// TieredOption configures a Tiered cache.
type TieredOption func(*tieredOptions)

type tieredOptions struct {
	clock      Clock
	logger     *slog.Logger
	metrics    *Metrics
	name       string
	memory     []MemoryOption
	defaultTTL time.Duration
}

func defaultTieredOptions() *tieredOptions {
	return &tieredOptions{
		clock:      time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		name:       "default",
		defaultTTL: 5 * time.Minute,
	}
}

// WithName sets the cache name. It namespaces durable keys as "{name}:{key}"
// and labels logs and metrics.
// Default: "default".
func WithName(name string) TieredOption {
	return func(o *tieredOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used to report degraded durability.
// Default: discard.
func WithLogger(l *slog.Logger) TieredOption {
	return func(o *tieredOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches shared Prometheus collectors.
func WithMetrics(m *Metrics) TieredOption {
	return func(o *tieredOptions) {
		o.metrics = m
	}
}

// WithTieredDefaultTTL sets the TTL used when Put is called with zero.
// Default: 5 minutes.
func WithTieredDefaultTTL(d time.Duration) TieredOption {
	return func(o *tieredOptions) {
		o.defaultTTL = d
	}
}

// WithTieredClock overrides the time source of both tiers.
func WithTieredClock(c Clock) TieredOption {
	return func(o *tieredOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMemoryOptions passes options through to the memory tier,
// e.g. WithMaxEntries or WithCleanupInterval.
func WithMemoryOptions(opts ...MemoryOption) TieredOption {
	return func(o *tieredOptions) {
		o.memory = append(o.memory, opts...)
	}
}
