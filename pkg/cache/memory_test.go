package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse/pkg/cache"
)

// --- Memory: Get ---

func TestMemory_Get(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNotFound for missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		_, err := c.Get(context.Background(), "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("returns stored value", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", 42, time.Minute))

		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, 42, val)
	})

	t.Run("returns ErrNotFound once ttl has elapsed", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](cache.WithClock(clock.Now), cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", time.Second))

		clock.Advance(999 * time.Millisecond)
		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "value", val)

		clock.Advance(time.Millisecond)
		_, err = c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("marks entry as recently used", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithMaxEntries(2))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
		require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

		_, err := c.Get(ctx, "a")
		require.NoError(t, err)

		// "b" is now least recently used.
		require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

		has, err := c.Has(ctx, "a")
		require.NoError(t, err)
		require.True(t, has)

		has, err = c.Has(ctx, "b")
		require.NoError(t, err)
		require.False(t, has)
	})
}

func TestMemory_Lookup(t *testing.T) {
	t.Parallel()

	t.Run("returns entry with deadline", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](cache.WithClock(clock.Now))
		defer c.Close()

		require.NoError(t, c.Set(context.Background(), "key", "value", time.Minute))

		e, ok := c.Lookup("key")
		require.True(t, ok)
		require.Equal(t, "value", e.Value)
		require.Equal(t, cache.StateReady, e.State)
		require.Equal(t, clock.Now().Add(time.Minute), e.ExpiresAt)
	})

	t.Run("does not change LRU order", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](cache.WithMaxEntries(2))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "b", 2, time.Minute))

		_, ok := c.Lookup("a")
		require.True(t, ok)

		require.NoError(t, c.Set(ctx, "c", 3, time.Minute))

		_, ok = c.Lookup("a")
		require.False(t, ok, "a stays least recently used after Lookup")
	})
}

// --- Memory: Set ---

func TestMemory_Set(t *testing.T) {
	t.Parallel()

	t.Run("zero TTL uses default", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](
			cache.WithClock(clock.Now),
			cache.WithDefaultTTL(50*time.Millisecond),
			cache.WithCleanupInterval(0),
		)
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", 0))

		clock.Advance(60 * time.Millisecond)

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("negative TTL never expires", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](cache.WithClock(clock.Now), cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "forever", -1))

		clock.Advance(365 * 24 * time.Hour)

		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "forever", val)
	})

	t.Run("overwrite replaces value and deadline", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[int](cache.WithClock(clock.Now), cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", 1, time.Second))
		require.NoError(t, c.Set(ctx, "key", 2, time.Hour))

		clock.Advance(time.Minute)

		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, 2, val)
	})

	t.Run("SetUntil keeps absolute deadline", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](cache.WithClock(clock.Now), cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.SetUntil(ctx, "key", "value", clock.Now().Add(10*time.Second)))

		clock.Advance(10 * time.Second)

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("returns ErrClosed after Close", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		require.NoError(t, c.Close())

		err := c.Set(context.Background(), "key", "value", time.Minute)
		require.ErrorIs(t, err, cache.ErrClosed)
	})
}

// --- Memory: Delete / Clear / Close ---

func TestMemory_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes existing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
		require.NoError(t, c.Delete(ctx, "key"))

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("no error for missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		require.NoError(t, c.Delete(context.Background(), "missing"))
		require.NoError(t, c.Delete(context.Background(), "missing"))
	})
}

func TestMemory_Clear(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

	require.NoError(t, c.Clear(ctx))
	require.Equal(t, 0, c.Len())
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

// --- Memory: Eviction ---

func TestMemory_EvictCallback(t *testing.T) {
	t.Parallel()

	t.Run("called on LRU eviction", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](cache.WithMaxEntries(2))
		defer c.Close()

		var mu sync.Mutex
		evicted := make(map[string]int)
		c.SetEvictCallback(func(key string, value int) {
			mu.Lock()
			evicted[key] = value
			mu.Unlock()
		})

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
		require.NoError(t, c.Set(ctx, "c", 3, time.Minute))

		mu.Lock()
		require.Equal(t, 1, evicted["a"])
		mu.Unlock()
	})

	t.Run("called when an expired entry is read", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := cache.NewMemory[string](cache.WithClock(clock.Now), cache.WithCleanupInterval(0))
		defer c.Close()

		var evictedKey string
		c.SetEvictCallback(func(key string, _ string) {
			evictedKey = key
		})

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", time.Second))
		clock.Advance(2 * time.Second)

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
		require.Equal(t, "key", evictedKey)
	})
}

func TestMemory_Janitor(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string](cache.WithCleanupInterval(10 * time.Millisecond))
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", "value", 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "long", "value", time.Minute))

	require.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 5*time.Millisecond, "janitor should drop the expired entry")

	has, _ := c.Has(ctx, "long")
	require.True(t, has)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[int](cache.WithMaxEntries(100))
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Go(func() {
			_ = c.Set(ctx, "key", i, time.Minute)
		})
	}
	for range 50 {
		wg.Go(func() {
			_, _ = c.Get(ctx, "key")
		})
	}
	for range 10 {
		wg.Go(func() {
			_ = c.Delete(ctx, "key")
		})
	}

	wg.Wait()
}
