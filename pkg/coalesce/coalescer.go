package coalesce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pulse/pkg/cache"
)

// FetchFunc loads the value for key from the origin.
// On failure the value returned next to the error is cached as the fallback.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Result is what every caller of Get receives.
type Result[V any] struct {
	Value     V
	FromCache bool
}

// call is one in-flight fetch. done is closed once val and err are final.
// seq orders calls of one coalescer by start time.
type call[V any] struct {
	done       chan struct{}
	val        V
	err        error
	seq        uint64
	revalidate bool
}

// Coalescer is the single entry point that writes to a resource cache.
// At most one fetch per key is outstanding; every caller that arrives while it
// runs receives the same value or the same error.
type Coalescer[V any] struct {
	cache  *cache.Tiered[V]
	fetch  FetchFunc[V]
	policy Policy[V]
	opts   *options
	calls  map[string]*call[V]
	seq    uint64
	mu     sync.Mutex
}

// New creates a coalescer that fills c through fetch and picks TTLs with policy.
// A nil policy caches values with the cache default TTL.
//
// Example:
//
//	ads := coalesce.New(adsCache, fetchAds, coalesce.Fixed[[]Ad](time.Minute),
//	    coalesce.WithTimeout(5*time.Second),
//	)
//	res, err := ads.Get(ctx, "ads?limit=1&position=sidebar")
func New[V any](c *cache.Tiered[V], fetch FetchFunc[V], policy Policy[V], opts ...Option) *Coalescer[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if policy == nil {
		policy = Fixed[V](0)
	}

	return &Coalescer[V]{
		cache:  c,
		fetch:  fetch,
		policy: policy,
		opts:   o,
		calls:  make(map[string]*call[V]),
	}
}

// Get returns the fresh cached value for key or waits for the shared fetch.
//
// Cancelling ctx only stops this caller from waiting; the fetch keeps running
// and still populates the cache.
func (c *Coalescer[V]) Get(ctx context.Context, key string) (Result[V], error) {
	if v, err := c.cache.Get(ctx, key); err == nil {
		return Result[V]{Value: v, FromCache: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result[V]{}, err
	}

	cl, hit, ok := c.acquire(ctx, key)
	if ok {
		return Result[V]{Value: hit, FromCache: true}, nil
	}
	return c.wait(ctx, cl)
}

// Refresh drops the cached value for key and fetches it again, typically
// after a mutation of the underlying data.
//
// Only a fetch started after Refresh was called is shared. A fetch already in
// flight may carry pre-mutation data, so Refresh waits for it to settle and
// then starts (or joins) a newer one; at most one fetch per key runs at a time.
func (c *Coalescer[V]) Refresh(ctx context.Context, key string) (Result[V], error) {
	c.mu.Lock()
	since := c.seq
	c.mu.Unlock()

	if err := c.cache.Invalidate(ctx, key); err != nil {
		c.opts.logger.WarnContext(ctx, "invalidate before refresh failed",
			slog.String("resource", c.cache.Name()),
			slog.String("key", key),
			slog.Any("error", err),
		)
	}

	c.mu.Lock()
	for {
		cl, ok := c.calls[key]
		switch {
		case !ok:
			cl = c.start(ctx, key, false)
			c.mu.Unlock()
			return c.wait(ctx, cl)
		case cl.seq > since:
			c.opts.metrics.recordCoalesced(c.cache.Name())
			c.mu.Unlock()
			return c.wait(ctx, cl)
		}
		c.mu.Unlock()

		select {
		case <-cl.done:
		case <-ctx.Done():
			return Result[V]{}, ctx.Err()
		}
		c.mu.Lock()
	}
}

// Revalidate fetches key again without dropping the cached value first.
// A failed fetch keeps a still fresh entry in place instead of overwriting it
// with the fallback, so background refreshes never degrade good data.
// A fetch already in flight is shared.
func (c *Coalescer[V]) Revalidate(ctx context.Context, key string) (Result[V], error) {
	c.mu.Lock()
	cl, ok := c.calls[key]
	if ok {
		c.opts.metrics.recordCoalesced(c.cache.Name())
	} else {
		cl = c.start(ctx, key, true)
	}
	c.mu.Unlock()

	return c.wait(ctx, cl)
}

// Peek reads the memory tier without fetching. ok reports whether a fresh
// value is present; the entry state is loading while a fetch is in flight.
func (c *Coalescer[V]) Peek(key string) (cache.Entry[V], bool) {
	return c.cache.Peek(key)
}

// Invalidate drops key from both cache tiers without refetching.
func (c *Coalescer[V]) Invalidate(ctx context.Context, key string) error {
	return c.cache.Invalidate(ctx, key)
}

// Prefetch loads keys concurrently, at most WithPrefetchLimit at a time.
// It returns the first fetch error; the remaining keys are still populated.
func (c *Coalescer[V]) Prefetch(ctx context.Context, keys ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.prefetchLimit)

	for _, key := range keys {
		g.Go(func() error {
			_, err := c.Get(gctx, key)
			return err
		})
	}

	return g.Wait()
}

// InFlight returns the number of keys with an outstanding fetch.
func (c *Coalescer[V]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// acquire returns the in-flight call for key, registering a new one if needed.
// Registration happens under the mutex before any blocking work, so callers
// racing on the same key always observe the same call. A value written by a
// call that settled after the caller's cache miss is returned directly.
func (c *Coalescer[V]) acquire(ctx context.Context, key string) (*call[V], V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.calls[key]; ok {
		c.opts.metrics.recordCoalesced(c.cache.Name())
		return cl, zero, false
	}

	if e, ok := c.cache.Peek(key); ok {
		return nil, e.Value, true
	}

	return c.start(ctx, key, false), zero, false
}

// start registers a call and runs the fetch in the background.
// Caller must hold the mutex.
func (c *Coalescer[V]) start(ctx context.Context, key string, revalidate bool) *call[V] {
	c.seq++
	cl := &call[V]{done: make(chan struct{}), seq: c.seq, revalidate: revalidate}
	c.calls[key] = cl
	c.cache.MarkLoading(key)

	go c.run(context.WithoutCancel(ctx), key, cl)

	return cl
}

func (c *Coalescer[V]) run(ctx context.Context, key string, cl *call[V]) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	started := time.Now()
	val, err := c.invoke(ctx, key)
	c.opts.metrics.recordFetch(c.cache.Name(), time.Since(started), err)

	ttl := c.opts.failureTTL
	write := true
	if err == nil {
		ttl = c.policy(val)
	} else {
		err = &FetchError{Key: key, Err: err}
		if cur, gerr := c.cache.Get(context.WithoutCancel(ctx), key); gerr == nil && cl.revalidate {
			val, write = cur, false
			c.opts.logger.WarnContext(ctx, "revalidation failed, keeping cached value",
				slog.String("resource", c.cache.Name()),
				slog.String("key", key),
				slog.Any("error", err),
			)
		} else {
			c.opts.logger.WarnContext(ctx, "fetch failed, serving fallback",
				slog.String("resource", c.cache.Name()),
				slog.String("key", key),
				slog.Duration("fallback_ttl", ttl),
				slog.Any("error", err),
			)
		}
	}

	if write {
		// The write uses its own context so a timed out fetch can still be cached.
		if perr := c.cache.Put(context.WithoutCancel(ctx), key, val, ttl); perr != nil {
			c.opts.logger.ErrorContext(ctx, "cache write failed",
				slog.String("resource", c.cache.Name()),
				slog.String("key", key),
				slog.Any("error", perr),
			)
		}
	}

	c.mu.Lock()
	delete(c.calls, key)
	c.cache.ClearLoading(key)
	c.mu.Unlock()

	cl.val, cl.err = val, err
	close(cl.done)
}

func (c *Coalescer[V]) invoke(ctx context.Context, key string) (val V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(ErrFetchPanic, fmt.Errorf("%v", r))
		}
	}()
	return c.fetch(ctx, key)
}

func (c *Coalescer[V]) wait(ctx context.Context, cl *call[V]) (Result[V], error) {
	select {
	case <-cl.done:
		return Result[V]{Value: cl.val}, cl.err
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}
