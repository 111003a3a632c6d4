package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store is the durable tier: a string key-value store that survives restarts.
// Implementations return ErrNotFound from GetItem for absent keys.
type Store interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// TTLStore is implemented by stores that can expire items on their own.
// Tiered uses it so the durable copy does not outlive the cached entry.
type TTLStore interface {
	Store
	SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// PrefixClearer is implemented by stores that can drop every key under a prefix.
type PrefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string) error
}

// MemoryStore is a process-local Store with an optional byte quota.
// It stands in for browser-style persisted storage in tests and development.
type MemoryStore struct {
	items map[string]string
	quota int
	used  int
	mu    sync.RWMutex
}

// NewMemoryStore creates a store. quota is the maximum total size of keys and
// values in bytes; zero means unlimited.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]string),
		quota: quota,
	}
}

func (s *MemoryStore) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + len(key) + len(value)
	if old, ok := s.items[key]; ok {
		used -= len(key) + len(old)
	}
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, used, s.quota)
	}

	s.items[key] = value
	s.used = used
	return nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryStore) ClearPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.items {
		if strings.HasPrefix(k, prefix) {
			s.used -= len(k) + len(v)
			delete(s.items, k)
		}
	}
	return nil
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ PrefixClearer = (*MemoryStore)(nil)
)
