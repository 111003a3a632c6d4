package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// envelope is the persisted form of an entry in the durable tier.
type envelope struct {
	Value     []byte `json:"val"`
	ExpiresAt int64  `json:"exp,omitempty"` // unix milliseconds, 0 = never
}

// Tiered is the resource cache: a memory tier in front of an optional durable Store.
//
// Reads check memory first and fall back to the store, promoting durable hits into
// memory with their original deadline. Writes go to both tiers; a failing durable
// write is logged and skipped so the live process keeps the value.
type Tiered[V any] struct {
	memory    *Memory[V]
	store     Store
	marshaler Marshaler[V]
	opts      *tieredOptions
	loading   map[string]struct{}
	reads     singleflight.Group
	mu        sync.Mutex
}

// NewTiered creates a resource cache. A nil store keeps the cache memory-only.
// A nil Marshaler selects JSON for the durable tier.
//
// Example:
//
//	store := cache.NewRedisStore(client, "pulse")
//	ads := cache.NewTiered[[]Ad](store, nil,
//	    cache.WithName("ads"),
//	    cache.WithLogger(log),
//	)
//	defer ads.Close()
func NewTiered[V any](store Store, m Marshaler[V], opts ...TieredOption) *Tiered[V] {
	o := defaultTieredOptions()
	for _, opt := range opts {
		opt(o)
	}

	memOpts := append([]MemoryOption{
		WithClock(o.clock),
		WithDefaultTTL(o.defaultTTL),
	}, o.memory...)

	if m == nil {
		m = JSONMarshaler[V]{}
	}

	return &Tiered[V]{
		memory:    NewMemory[V](memOpts...),
		store:     store,
		marshaler: m,
		opts:      o,
		loading:   make(map[string]struct{}),
	}
}

// Name returns the cache name used for store keys, logs and metrics.
func (t *Tiered[V]) Name() string {
	return t.opts.name
}

// Get returns the cached value while now < expiresAt, otherwise ErrNotFound.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, error) {
	if e, ok := t.memory.Lookup(key); ok {
		t.opts.metrics.recordLookup(t.opts.name, resultHit)
		return e.Value, nil
	}

	if t.store == nil {
		t.opts.metrics.recordLookup(t.opts.name, resultMiss)
		var zero V
		return zero, ErrNotFound
	}

	// Concurrent misses on the same key share one durable read. The read does
	// not inherit the caller's cancellation, so a caller that gives up cannot
	// fail the read for the others.
	ch := t.reads.DoChan(key, func() (any, error) {
		return t.readDurable(context.WithoutCancel(ctx), key)
	})

	var zero V
	select {
	case res := <-ch:
		if res.Err != nil {
			t.opts.metrics.recordLookup(t.opts.name, resultMiss)
			return zero, ErrNotFound
		}
		t.opts.metrics.recordLookup(t.opts.name, resultDurableHit)
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, errors.Join(ErrNotFound, ctx.Err())
	}
}

func (t *Tiered[V]) readDurable(ctx context.Context, key string) (V, error) {
	var zero V

	raw, err := t.store.GetItem(ctx, t.storeKey(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.opts.metrics.recordStorageError(t.opts.name, "read")
			t.opts.logger.WarnContext(ctx, "durable cache read failed",
				slog.String("cache", t.opts.name),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		return zero, ErrNotFound
	}

	value, expiresAt, err := t.decode(raw)
	if err != nil {
		t.opts.metrics.recordCorrupt(t.opts.name)
		t.opts.logger.WarnContext(ctx, "dropping corrupt durable cache entry",
			slog.String("cache", t.opts.name),
			slog.String("key", key),
			slog.Any("error", errors.Join(ErrCorruptEntry, err)),
		)
		t.removeDurable(ctx, key)
		return zero, ErrNotFound
	}

	if !expiresAt.IsZero() && !t.opts.clock().Before(expiresAt) {
		t.removeDurable(ctx, key)
		return zero, ErrNotFound
	}

	if err := t.memory.SetUntil(ctx, key, value, expiresAt); err != nil {
		return zero, err
	}

	return value, nil
}

// Put writes value to both tiers. ttl follows the Cache TTL semantics.
// Only ErrClosed is returned; durable failures degrade to memory-only.
func (t *Tiered[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl == 0 {
		ttl = t.opts.defaultTTL
	}
	expiresAt := resolveExpiry(t.opts.clock(), ttl, t.opts.defaultTTL)

	if err := t.memory.SetUntil(ctx, key, value, expiresAt); err != nil {
		return err
	}
	t.opts.metrics.recordWrite(t.opts.name)

	if t.store != nil {
		if err := t.writeDurable(ctx, key, value, expiresAt, ttl); err != nil {
			t.opts.metrics.recordStorageError(t.opts.name, "write")
			t.opts.logger.WarnContext(ctx, "durable cache write skipped",
				slog.String("cache", t.opts.name),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

func (t *Tiered[V]) writeDurable(ctx context.Context, key string, value V, expiresAt time.Time, ttl time.Duration) error {
	raw, err := t.encode(value, expiresAt)
	if err != nil {
		return errors.Join(ErrStorageWrite, err)
	}

	if ts, ok := t.store.(TTLStore); ok && ttl > 0 {
		err = ts.SetItemTTL(ctx, t.storeKey(key), raw, ttl)
	} else {
		err = t.store.SetItem(ctx, t.storeKey(key), raw)
	}
	if err != nil {
		return errors.Join(ErrStorageWrite, err)
	}
	return nil
}

// Invalidate removes key from both tiers. Invalidating a missing key is a no-op.
// A failed durable removal is returned so callers can log it; the memory tier is
// already cleared at that point.
func (t *Tiered[V]) Invalidate(ctx context.Context, key string) error {
	if err := t.memory.Delete(ctx, key); err != nil {
		return err
	}
	t.opts.metrics.recordInvalidation(t.opts.name)

	if t.store == nil {
		return nil
	}
	if err := t.store.RemoveItem(ctx, t.storeKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
		t.opts.metrics.recordStorageError(t.opts.name, "remove")
		return errors.Join(ErrStorageWrite, err)
	}
	return nil
}

func (t *Tiered[V]) removeDurable(ctx context.Context, key string) {
	if err := t.store.RemoveItem(ctx, t.storeKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
		t.opts.metrics.recordStorageError(t.opts.name, "remove")
		t.opts.logger.WarnContext(ctx, "durable cache remove failed",
			slog.String("cache", t.opts.name),
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// MarkLoading flags key as having a fetch in flight.
func (t *Tiered[V]) MarkLoading(key string) {
	t.mu.Lock()
	t.loading[key] = struct{}{}
	t.mu.Unlock()
}

// ClearLoading drops the in-flight flag for key.
func (t *Tiered[V]) ClearLoading(key string) {
	t.mu.Lock()
	delete(t.loading, key)
	t.mu.Unlock()
}

// Peek is a synchronous, memory-only read that never triggers a fetch.
// ok reports whether a fresh value is present; a loading entry may still
// carry the previous value.
func (t *Tiered[V]) Peek(key string) (Entry[V], bool) {
	e, ok := t.memory.Lookup(key)

	t.mu.Lock()
	_, loading := t.loading[key]
	t.mu.Unlock()

	switch {
	case loading:
		e.State = StateLoading
	case ok:
		e.State = StateReady
	default:
		e.State = StateEmpty
	}
	return e, ok
}

// Set implements Cache by delegating to Put.
func (t *Tiered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return t.Put(ctx, key, value, ttl)
}

// Delete implements Cache by delegating to Invalidate.
func (t *Tiered[V]) Delete(ctx context.Context, key string) error {
	return t.Invalidate(ctx, key)
}

// Has reports whether Get would return a value.
func (t *Tiered[V]) Has(ctx context.Context, key string) (bool, error) {
	_, err := t.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Clear empties the memory tier and, when the store supports it, every durable
// key owned by this cache.
func (t *Tiered[V]) Clear(ctx context.Context) error {
	if err := t.memory.Clear(ctx); err != nil {
		return err
	}
	if pc, ok := t.store.(PrefixClearer); ok {
		if err := pc.ClearPrefix(ctx, t.opts.name+":"); err != nil {
			return errors.Join(ErrStorageWrite, err)
		}
	}
	return nil
}

// Close stops the memory tier. The store lifecycle belongs to the caller.
func (t *Tiered[V]) Close() error {
	return t.memory.Close()
}

func (t *Tiered[V]) storeKey(key string) string {
	return t.opts.name + ":" + key
}

func (t *Tiered[V]) encode(value V, expiresAt time.Time) (string, error) {
	data, err := t.marshaler.Marshal(value)
	if err != nil {
		return "", err
	}

	env := envelope{Value: data}
	if !expiresAt.IsZero() {
		env.ExpiresAt = expiresAt.UnixMilli()
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", errors.Join(ErrMarshal, err)
	}
	return string(raw), nil
}

func (t *Tiered[V]) decode(raw string) (V, time.Time, error) {
	var zero V

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return zero, time.Time{}, errors.Join(ErrUnmarshal, err)
	}
	if env.Value == nil {
		return zero, time.Time{}, ErrUnmarshal
	}

	value, err := t.marshaler.Unmarshal(env.Value)
	if err != nil {
		return zero, time.Time{}, err
	}

	var expiresAt time.Time
	if env.ExpiresAt > 0 {
		expiresAt = time.UnixMilli(env.ExpiresAt)
	}
	return value, expiresAt, nil
}

var _ Cache[any] = (*Tiered[any])(nil)
