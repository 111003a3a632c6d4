package pulse

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/pulse/pkg/cache"
	"github.com/dmitrymomot/pulse/pkg/coalesce"
	"github.com/dmitrymomot/pulse/pkg/logger"
	"github.com/dmitrymomot/pulse/pkg/realtime"
)

// Client is the process-wide owner of the resource caches, their coalescers
// and the realtime connection. Create one with New, inject it where needed,
// and release it with Close.
type Client struct {
	logger        *slog.Logger
	store         cache.Store
	registerer    prometheus.Registerer
	dialer        realtime.Dialer
	realtimeOpts  []realtime.Option
	shutdownHooks []func(ctx context.Context) error

	cacheMetrics *cache.Metrics
	fetchMetrics *coalesce.Metrics
	realtime     *realtime.Manager
	resources    map[string]ResourceHandle

	mu     sync.Mutex
	closed bool
}

// New creates a client.
//
// Example:
//
//	client, err := pulse.New(
//	    pulse.WithLogger(log),
//	    pulse.WithStore(cache.NewRedisStore(rdb, "pulse")),
//	    pulse.WithRegisterer(prometheus.DefaultRegisterer),
//	    pulse.WithRealtime(&realtime.WebSocketDialer{URL: wsURL}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(opts ...Option) (*Client, error) {
	c := &Client{
		logger:    logger.NewNope(),
		resources: make(map[string]ResourceHandle),
	}

	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.cacheMetrics, err = cache.NewMetrics(c.registerer); err != nil {
		return nil, err
	}
	if c.fetchMetrics, err = coalesce.NewMetrics(c.registerer); err != nil {
		return nil, err
	}

	if c.dialer != nil {
		rtMetrics, err := realtime.NewMetrics(c.registerer)
		if err != nil {
			return nil, err
		}
		opts := append([]realtime.Option{
			realtime.WithLogger(c.logger.With(slog.String("component", "realtime"))),
			realtime.WithMetrics(rtMetrics),
		}, c.realtimeOpts...)
		c.realtime = realtime.NewManager(c.dialer, opts...)
	}

	return c, nil
}

// Start dials the realtime connection when one is configured.
// ctx bounds the lifetime of the connection.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if c.realtime == nil {
		return nil
	}
	return c.realtime.Start(ctx)
}

// Realtime returns the connection manager, or ErrRealtimeDisabled when the
// client was built without WithRealtime.
func (c *Client) Realtime() (*realtime.Manager, error) {
	if c.realtime == nil {
		return nil, ErrRealtimeDisabled
	}
	return c.realtime, nil
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Resource looks up a registered resource by name.
func (c *Client) Resource(name string) (ResourceHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.resources[name]
	if !ok {
		return nil, ErrUnknownResource
	}
	return r, nil
}

// Resources returns every registered resource sorted by name.
func (c *Client) Resources() []ResourceHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ResourceHandle, 0, len(c.resources))
	for _, r := range c.resources {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b ResourceHandle) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Close releases the realtime connection and every resource cache, then runs
// the shutdown hooks. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	resources := make([]ResourceHandle, 0, len(c.resources))
	for _, r := range c.resources {
		resources = append(resources, r)
	}
	c.mu.Unlock()

	var errs []error

	if c.realtime != nil {
		if err := c.realtime.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, r := range resources {
		if err := r.close(); err != nil {
			errs = append(errs, err)
		}
	}

	ctx := context.Background()
	for _, hook := range c.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			c.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Client) register(r ResourceHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, ok := c.resources[r.Name()]; ok {
		return ErrDuplicateResource
	}
	c.resources[r.Name()] = r
	return nil
}
