package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a durable Store backed by Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store.
// The client is usually obtained from pkg/redis.Open.
// A non-empty prefix namespaces keys as "{prefix}:{key}".
//
// Example:
//
//	client, err := redis.Open(ctx, os.Getenv("REDIS_URL"))
//	store := cache.NewRedisStore(client, "pulse")
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) GetItem(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefixedKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// SetItem stores a value without expiration.
func (s *RedisStore) SetItem(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefixedKey(key), value, 0).Err()
}

// SetItemTTL stores a value that Redis expires after ttl.
// Non-positive TTLs persist until removed.
func (s *RedisStore) SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefixedKey(key), value, max(ttl, 0)).Err()
}

func (s *RedisStore) RemoveItem(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefixedKey(key)).Err()
}

// ClearPrefix removes all keys under the store prefix followed by prefix, using SCAN
// so the server is never blocked.
func (s *RedisStore) ClearPrefix(ctx context.Context, prefix string) error {
	pattern := s.prefixedKey(prefix) + "*"
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *RedisStore) prefixedKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

var (
	_ TTLStore      = (*RedisStore)(nil)
	_ PrefixClearer = (*RedisStore)(nil)
)
