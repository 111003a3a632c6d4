package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// item is a single memory-tier record kept in the LRU list.
type item[V any] struct {
	expiresAt time.Time // zero value = never expires
	value     V
	key       string
}

func (it *item[V]) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// Memory is the in-process tier of the resource cache: TTL-based expiration
// plus optional LRU eviction when a maximum entry count is configured.
//
// Lookups go through a hash map; recency is tracked by a doubly-linked list
// with the most recently used items at the front.
type Memory[V any] struct {
	items    map[string]*list.Element
	eviction *list.List
	opts     *memoryOptions
	onEvict  func(key string, value V)
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
}

// NewMemory creates a new in-memory cache.
//
// Example:
//
//	c := cache.NewMemory[[]Ad](
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithMaxEntries(10000),
//	)
//	defer c.Close()
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory[V]{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		opts:     o,
		done:     make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go m.janitor()
	}

	return m
}

// SetEvictCallback sets a callback invoked whenever an item leaves the cache:
// LRU eviction, expiry, deletion and clearing.
func (m *Memory[V]) SetEvictCallback(fn func(key string, value V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Get retrieves a value by key and marks it as recently used.
// Returns ErrNotFound if the key does not exist or has expired.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	e, ok := m.lookup(key, true)
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return e.Value, nil
}

// Lookup returns the fresh entry for key without touching LRU order.
// Expired items are dropped on the way.
func (m *Memory[V]) Lookup(key string) (Entry[V], bool) {
	return m.lookup(key, false)
}

func (m *Memory[V]) lookup(key string, touch bool) (Entry[V], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return Entry[V]{Key: key}, false
	}

	it := elem.Value.(*item[V])
	if it.expired(m.opts.clock()) {
		m.removeElement(elem)
		return Entry[V]{Key: key}, false
	}

	if touch {
		m.eviction.MoveToFront(elem)
	}

	return Entry[V]{Key: key, Value: it.value, ExpiresAt: it.expiresAt, State: StateReady}, true
}

// Set stores a value with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = never expires.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	return m.setUntil(key, value, resolveExpiry(m.opts.clock(), ttl, m.opts.defaultTTL))
}

// SetUntil stores a value that expires at an absolute time. A zero time never expires.
// Used when promoting durable entries so they keep their original deadline.
func (m *Memory[V]) SetUntil(_ context.Context, key string, value V, expiresAt time.Time) error {
	return m.setUntil(key, value, expiresAt)
}

func (m *Memory[V]) setUntil(key string, value V, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		it := elem.Value.(*item[V])
		it.value = value
		it.expiresAt = expiresAt
		m.eviction.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		m.evictOldest()
	}

	m.items[key] = m.eviction.PushFront(&item[V]{key: key, value: value, expiresAt: expiresAt})

	return nil
}

// Delete removes a key from the cache. Deleting a missing key is not an error.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}

	return nil
}

// Has checks whether a key exists and has not expired.
func (m *Memory[V]) Has(_ context.Context, key string) (bool, error) {
	_, ok := m.lookup(key, false)
	return ok, nil
}

// Len returns the number of stored items, including expired ones
// the janitor has not collected yet.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear removes all entries from the cache.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.onEvict != nil {
		for _, elem := range m.items {
			it := elem.Value.(*item[V])
			m.onEvict(it.key, it.value)
		}
	}

	m.items = make(map[string]*list.Element)
	m.eviction.Init()

	return nil
}

// Close stops the janitor and marks the cache as closed. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)

	return nil
}

func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

// deleteExpired walks the list from the least recently used end.
func (m *Memory[V]) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.clock()
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*item[V]).expired(now) {
			m.removeElement(elem)
		}
		elem = prev
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the mutex.
func (m *Memory[V]) evictOldest() {
	if elem := m.eviction.Back(); elem != nil {
		m.removeElement(elem)
	}
}

// removeElement unlinks elem and fires the eviction callback.
// Caller must hold the mutex.
func (m *Memory[V]) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	it := elem.Value.(*item[V])
	delete(m.items, it.key)

	if m.onEvict != nil {
		m.onEvict(it.key, it.value)
	}
}

var _ Cache[any] = (*Memory[any])(nil)
