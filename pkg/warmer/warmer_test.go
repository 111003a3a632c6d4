package warmer_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse"
	"github.com/dmitrymomot/pulse/pkg/coalesce"
	"github.com/dmitrymomot/pulse/pkg/warmer"
)

type fakeTarget struct {
	fail map[string]bool
	keys []string
	mu   sync.Mutex
}

func (f *fakeTarget) Name() string { return "ads" }

func (f *fakeTarget) RevalidateKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.fail[key] {
		return errors.New("origin down")
	}
	return nil
}

func (f *fakeTarget) refreshed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestWarmer_RunNow(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{fail: map[string]bool{"ads?position=top": true}}
	w := warmer.New()

	require.NoError(t, w.Add("@every 1h", target, "ads?position=sidebar", "ads?position=top"))

	err := w.RunNow(context.Background())
	require.ErrorContains(t, err, "origin down")
	require.Equal(t, []string{"ads?position=sidebar", "ads?position=top"}, target.refreshed())
}

func TestWarmer_Schedule(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{}
	w := warmer.New()

	require.NoError(t, w.Add("@every 1s", target, "ads?position=sidebar"))
	w.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, w.Stop(ctx))
	}()

	require.Eventually(t, func() bool {
		return len(target.refreshed()) > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWarmer_InvalidSchedule(t *testing.T) {
	t.Parallel()

	w := warmer.New()
	err := w.Add("every minute", &fakeTarget{}, "ads")
	require.ErrorIs(t, err, warmer.ErrInvalidSchedule)
}

func TestWarmer_OutageKeepsCachedValue(t *testing.T) {
	t.Parallel()

	client, err := pulse.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var down atomic.Bool
	ads, err := pulse.NewResource(client, "ads",
		func(context.Context, string) ([]string, error) {
			if down.Load() {
				return []string{}, errors.New("origin down")
			}
			return []string{"ad1"}, nil
		},
		coalesce.Fixed[[]string](time.Hour),
	)
	require.NoError(t, err)

	ctx := context.Background()
	params := pulse.Params{"position": "sidebar"}
	_, err = ads.Fetch(ctx, params)
	require.NoError(t, err)

	w := warmer.New()
	require.NoError(t, w.Add("@every 1h", ads, pulse.Key("ads", params)))

	down.Store(true)
	require.ErrorContains(t, w.RunNow(ctx), "origin down")

	res, err := ads.Fetch(ctx, params)
	require.NoError(t, err)
	require.True(t, res.FromCache)
	require.Equal(t, []string{"ad1"}, res.Value)
}
