package httpfetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse/pkg/httpfetch"
)

type ad struct {
	ID string `json:"id"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("gets key path and decodes body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/ads", r.URL.Path)
			require.Equal(t, "sidebar", r.URL.Query().Get("position"))
			require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"ad1"}]`))
		}))
		defer srv.Close()

		fetch := httpfetch.New[[]ad](srv.URL+"/v1/", httpfetch.WithHeader("X-Api-Key", "secret"))

		got, err := fetch(context.Background(), "ads?limit=1&position=sidebar")
		require.NoError(t, err)
		require.Equal(t, []ad{{ID: "ad1"}}, got)
	})

	t.Run("unwraps data field", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":"ad2"}],"total":1}`))
		}))
		defer srv.Close()

		fetch := httpfetch.New[[]ad](srv.URL, httpfetch.WithDataField("data"))

		got, err := fetch(context.Background(), "ads")
		require.NoError(t, err)
		require.Equal(t, []ad{{ID: "ad2"}}, got)
	})

	t.Run("non-2xx is a StatusError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		fetch := httpfetch.New[[]ad](srv.URL)

		_, err := fetch(context.Background(), "ads")
		var se *httpfetch.StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
		require.Contains(t, se.Body, "maintenance")
	})

	t.Run("bad body is a decode error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		_, err := httpfetch.New[[]ad](srv.URL)(context.Background(), "ads")
		require.ErrorIs(t, err, httpfetch.ErrDecode)
	})

	t.Run("timeout is a request error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		fetch := httpfetch.New[[]ad](srv.URL, httpfetch.WithTimeout(20*time.Millisecond))

		_, err := fetch(context.Background(), "ads")
		require.ErrorIs(t, err, httpfetch.ErrRequest)
	})

	t.Run("rate limit spaces requests", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		fetch := httpfetch.New[[]ad](srv.URL, httpfetch.WithRateLimit(20, 1))

		started := time.Now()
		for range 3 {
			_, err := fetch(context.Background(), "ads")
			require.NoError(t, err)
		}
		require.GreaterOrEqual(t, time.Since(started), 90*time.Millisecond)
		require.Equal(t, int32(3), hits.Load())
	})

	t.Run("invalid base url", func(t *testing.T) {
		t.Parallel()

		_, err := httpfetch.New[[]ad]("not a url")(context.Background(), "ads")
		require.ErrorIs(t, err, httpfetch.ErrBaseURL)
	})
}
