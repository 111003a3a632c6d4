package pulse

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/pulse/pkg/cache"
	"github.com/dmitrymomot/pulse/pkg/coalesce"
)

// Snapshot is the synchronous view of one resource instance.
type Snapshot[V any] struct {
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Data      V         `json:"data"`
	Loading   bool      `json:"loading"`
	Ready     bool      `json:"ready"`
}

// ResourceHandle is the type-erased view of a resource used by the warmer and
// the debug server.
type ResourceHandle interface {
	Name() string
	FetchAny(ctx context.Context, params Params) (any, bool, error)
	PeekAny(params Params) Snapshot[any]
	RefreshKey(ctx context.Context, key string) error
	RevalidateKey(ctx context.Context, key string) error
	InFlight() int
	close() error
}

// Resource is one cached, coalesced resource type, such as ads or live scores.
type Resource[V any] struct {
	name      string
	cache     *cache.Tiered[V]
	coalescer *coalesce.Coalescer[V]
}

// NewResource registers a resource on client. fetch receives keys built by Key;
// policy picks the TTL of each fetched value.
//
// Example:
//
//	ads, err := pulse.NewResource(client, "ads", httpfetch.New[[]Ad](apiURL),
//	    coalesce.Fixed[[]Ad](5*time.Minute),
//	)
//	res, err := ads.Fetch(ctx, pulse.Params{"position": "sidebar", "limit": "1"})
func NewResource[V any](
	client *Client,
	name string,
	fetch coalesce.FetchFunc[V],
	policy coalesce.Policy[V],
	opts ...ResourceOption,
) (*Resource[V], error) {
	o := &resourceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	log := client.logger.With(slog.String("component", "resource"), slog.String("resource", name))

	c := cache.NewTiered[V](client.store, nil, append([]cache.TieredOption{
		cache.WithName(name),
		cache.WithLogger(log),
		cache.WithMetrics(client.cacheMetrics),
	}, o.cache...)...)

	r := &Resource[V]{
		name:  name,
		cache: c,
		coalescer: coalesce.New(c, fetch, policy, append([]coalesce.Option{
			coalesce.WithLogger(log),
			coalesce.WithMetrics(client.fetchMetrics),
		}, o.coalesce...)...),
	}

	if err := client.register(r); err != nil {
		_ = c.Close()
		return nil, err
	}
	return r, nil
}

// Name returns the resource name.
func (r *Resource[V]) Name() string {
	return r.name
}

// Fetch returns the cached instance for params or fetches it, sharing one
// request among concurrent callers.
func (r *Resource[V]) Fetch(ctx context.Context, params Params) (coalesce.Result[V], error) {
	return r.coalescer.Get(ctx, Key(r.name, params))
}

// Peek is a synchronous read that never fetches.
func (r *Resource[V]) Peek(params Params) Snapshot[V] {
	e, ok := r.coalescer.Peek(Key(r.name, params))
	s := Snapshot[V]{Loading: e.State == cache.StateLoading, Ready: ok}
	if ok {
		s.Data = e.Value
		s.ExpiresAt = e.ExpiresAt
	}
	return s
}

// InvalidateAndRefetch drops the cached instance and fetches it again.
// Call it after a mutation of the underlying data.
func (r *Resource[V]) InvalidateAndRefetch(ctx context.Context, params Params) (coalesce.Result[V], error) {
	return r.coalescer.Refresh(ctx, Key(r.name, params))
}

// Revalidate refetches the instance without dropping it first. The cached
// value stays readable meanwhile and survives a failed fetch.
func (r *Resource[V]) Revalidate(ctx context.Context, params Params) (coalesce.Result[V], error) {
	return r.coalescer.Revalidate(ctx, Key(r.name, params))
}

// Invalidate drops the cached instance without refetching.
func (r *Resource[V]) Invalidate(ctx context.Context, params Params) error {
	return r.coalescer.Invalidate(ctx, Key(r.name, params))
}

// Prefetch loads several instances concurrently.
func (r *Resource[V]) Prefetch(ctx context.Context, params ...Params) error {
	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = Key(r.name, p)
	}
	return r.coalescer.Prefetch(ctx, keys...)
}

// FetchAny is Fetch with the value boxed in any.
func (r *Resource[V]) FetchAny(ctx context.Context, params Params) (any, bool, error) {
	res, err := r.Fetch(ctx, params)
	return res.Value, res.FromCache, err
}

// PeekAny is Peek with the value boxed in any.
func (r *Resource[V]) PeekAny(params Params) Snapshot[any] {
	s := r.Peek(params)
	return Snapshot[any]{Data: s.Data, Loading: s.Loading, Ready: s.Ready, ExpiresAt: s.ExpiresAt}
}

// RefreshKey refetches the instance stored under key.
func (r *Resource[V]) RefreshKey(ctx context.Context, key string) error {
	_, err := r.coalescer.Refresh(ctx, key)
	return err
}

// RevalidateKey revalidates the instance stored under key. Scheduled warming
// uses it so an origin outage never replaces good data with a fallback.
func (r *Resource[V]) RevalidateKey(ctx context.Context, key string) error {
	_, err := r.coalescer.Revalidate(ctx, key)
	return err
}

// InFlight returns the number of instances being fetched.
func (r *Resource[V]) InFlight() int {
	return r.coalescer.InFlight()
}

func (r *Resource[V]) close() error {
	return r.cache.Close()
}
