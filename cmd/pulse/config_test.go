package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := loadConfig(map[string]string{"API_BASE_URL": "http://api.local"})
		require.NoError(t, err)
		require.Equal(t, ":8080", cfg.Addr)
		require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		require.Equal(t, 5, cfg.Realtime.MaxAttempts)
		require.Equal(t, time.Second, cfg.Realtime.RetryDelay)
		require.Equal(t, "json", cfg.Log.Format)
		require.Equal(t, 10, cfg.Redis.PoolSize)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()

		cfg, err := loadConfig(map[string]string{
			"API_BASE_URL":          "http://api.local",
			"REALTIME_URL":          "ws://api.local/ws",
			"REALTIME_MAX_ATTEMPTS": "3",
			"REDIS_URL":             "redis://localhost:6379/1",
			"LOG_LEVEL":             "debug",
		})
		require.NoError(t, err)
		require.Equal(t, "ws://api.local/ws", cfg.Realtime.URL)
		require.Equal(t, 3, cfg.Realtime.MaxAttempts)
		require.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
		require.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("api base url is required", func(t *testing.T) {
		t.Parallel()

		_, err := loadConfig(map[string]string{})
		require.ErrorIs(t, err, errConfig)
	})
}

func TestLoadResources(t *testing.T) {
	t.Parallel()

	t.Run("no file uses defaults", func(t *testing.T) {
		t.Parallel()

		res, err := loadResources("")
		require.NoError(t, err)
		require.Equal(t, defaultResources(), res)
	})

	t.Run("example file", func(t *testing.T) {
		t.Parallel()

		res, err := loadResources("resources.example.yaml")
		require.NoError(t, err)
		require.Equal(t, 5*time.Minute, res.Ads.TTL)
		require.Len(t, res.Ads.Warm, 1)
		require.Equal(t, "@every 4m", res.Ads.Warm[0].Schedule)
		require.Equal(t, map[string]string{"position": "sidebar", "limit": "1"}, res.Ads.Warm[0].Params[0])
		require.Equal(t, 10*time.Second, res.Scores.LiveTTL)
		require.Equal(t, []string{"9", "12"}, res.Scores.Watch)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "resources.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ads:\n  ttl: 2m\n"), 0o600))

		res, err := loadResources(path)
		require.NoError(t, err)
		require.Equal(t, 2*time.Minute, res.Ads.TTL)
		require.Equal(t, time.Hour, res.Scores.TTL)
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "resources.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scores:\n  live_ttl: 0s\n"), 0o600))

		_, err := loadResources(path)
		require.ErrorIs(t, err, errConfig)
	})
}
