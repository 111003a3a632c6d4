//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse/pkg/cache"
	"github.com/dmitrymomot/pulse/pkg/redis"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, url)
	require.NoError(t, err, "failed to connect to Redis")

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	t.Run("missing key returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		s := cache.NewRedisStore(newTestRedisClient(t), "test-miss")

		_, err := s.GetItem(context.Background(), "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("set get remove", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := cache.NewRedisStore(newTestRedisClient(t), "test-crud")

		require.NoError(t, s.SetItem(ctx, "k", "v"))
		got, err := s.GetItem(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", got)

		require.NoError(t, s.RemoveItem(ctx, "k"))
		require.NoError(t, s.RemoveItem(ctx, "k"))
		_, err = s.GetItem(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("ttl expires item", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := cache.NewRedisStore(newTestRedisClient(t), "test-ttl")

		require.NoError(t, s.SetItemTTL(ctx, "k", "v", 100*time.Millisecond))

		require.Eventually(t, func() bool {
			_, err := s.GetItem(ctx, "k")
			return err != nil
		}, 2*time.Second, 50*time.Millisecond)
	})

	t.Run("clear prefix", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := cache.NewRedisStore(newTestRedisClient(t), "test-clear")

		require.NoError(t, s.SetItem(ctx, "ads:a", "1"))
		require.NoError(t, s.SetItem(ctx, "ads:b", "2"))
		require.NoError(t, s.SetItem(ctx, "scores:a", "3"))

		require.NoError(t, s.ClearPrefix(ctx, "ads:"))

		_, err := s.GetItem(ctx, "ads:a")
		require.ErrorIs(t, err, cache.ErrNotFound)
		got, err := s.GetItem(ctx, "scores:a")
		require.NoError(t, err)
		require.Equal(t, "3", got)
	})
}

func TestTiered_Redis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewRedisStore(newTestRedisClient(t), "test-tiered")

	first := cache.NewTiered[[]ad](store, nil, cache.WithName("ads"))
	ads := []ad{{ID: "1", Title: "Banner"}}
	require.NoError(t, first.Put(ctx, "ads?position=top", ads, time.Minute))
	require.NoError(t, first.Close())

	second := cache.NewTiered[[]ad](store, nil, cache.WithName("ads"))
	defer second.Close()

	got, err := second.Get(ctx, "ads?position=top")
	require.NoError(t, err)
	require.Equal(t, ads, got)

	require.NoError(t, second.Invalidate(ctx, "ads?position=top"))
	require.NoError(t, second.Invalidate(ctx, "ads?position=top"))
}
