package pulse

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/pulse/pkg/cache"
	"github.com/dmitrymomot/pulse/pkg/coalesce"
	"github.com/dmitrymomot/pulse/pkg/realtime"
)

// Option configures the client.
type Option func(*Client)

// WithLogger sets the client logger. Resources and the realtime manager log
// through it with a "component" attribute.
// If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStore sets the durable tier shared by every resource.
// Defaults to memory-only caching.
func WithStore(s cache.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithRegisterer registers cache, fetch and realtime metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = r
	}
}

// WithRealtime enables the realtime connection. It is dialed on Start.
//
// Example:
//
//	pulse.WithRealtime(&realtime.WebSocketDialer{URL: "wss://api.example.com/ws"},
//	    realtime.WithMaxAttempts(5),
//	)
func WithRealtime(d realtime.Dialer, opts ...realtime.Option) Option {
	return func(c *Client) {
		c.dialer = d
		c.realtimeOpts = append(c.realtimeOpts, opts...)
	}
}

// WithShutdownHook registers a function called on Close, after resources and
// the realtime connection are released. Hooks run in registration order.
func WithShutdownHook(fn func(context.Context) error) Option {
	return func(c *Client) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// ResourceOption configures one resource.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	cache    []cache.TieredOption
	coalesce []coalesce.Option
}

// WithCacheOptions passes options to the resource cache,
// e.g. cache.WithMemoryOptions(cache.WithMaxEntries(500)).
func WithCacheOptions(opts ...cache.TieredOption) ResourceOption {
	return func(o *resourceOptions) {
		o.cache = append(o.cache, opts...)
	}
}

// WithCoalesceOptions passes options to the resource coalescer,
// e.g. coalesce.WithTimeout(3*time.Second).
func WithCoalesceOptions(opts ...coalesce.Option) ResourceOption {
	return func(o *resourceOptions) {
		o.coalesce = append(o.coalesce, opts...)
	}
}
