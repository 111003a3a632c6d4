package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse"
	"github.com/dmitrymomot/pulse/internal/server"
	"github.com/dmitrymomot/pulse/pkg/coalesce"
	"github.com/dmitrymomot/pulse/pkg/health"
)

type ad struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

func newServer(t *testing.T, fetch coalesce.FetchFunc[[]ad]) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	client, err := pulse.New(pulse.WithRegisterer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = pulse.NewResource(client, "ads", fetch, coalesce.Fixed[[]ad](time.Minute))
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(server.Deps{
		Client:   client,
		Gatherer: reg,
		Checks:   health.Checks{"noop": func(context.Context) error { return nil }},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestResources(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(_ context.Context, key string) ([]ad, error) {
		calls.Add(1)
		assert.Equal(t, "ads?position=sidebar", key)
		return []ad{{ID: "a1", Position: "sidebar"}}, nil
	})

	resp, body := do(t, http.MethodGet, srv.URL+"/resources/ads/peek?position=sidebar")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["ready"])

	resp, body = do(t, http.MethodGet, srv.URL+"/resources/ads?position=sidebar")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["from_cache"])

	_, body = do(t, http.MethodGet, srv.URL+"/resources/ads?position=sidebar")
	require.Equal(t, true, body["from_cache"])
	require.Equal(t, int32(1), calls.Load())

	resp, body = do(t, http.MethodPost, srv.URL+"/resources/ads/refresh?position=sidebar")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ready"])
	require.Equal(t, int32(2), calls.Load())

	resp, _ = do(t, http.MethodGet, srv.URL+"/resources/news")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetchFailure(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(context.Context, string) ([]ad, error) {
		return []ad{}, errors.New("origin down")
	})

	resp, body := do(t, http.MethodGet, srv.URL+"/resources/ads")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, body["error"], "origin down")
	require.Equal(t, []any{}, body["data"])
}

func TestOperations(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(context.Context, string) ([]ad, error) { return nil, nil })

	resp, _ := do(t, http.MethodGet, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/resources/ads")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, body["realtime"])
	require.Len(t, body["resources"], 1)

	resp, _ = do(t, http.MethodPost, srv.URL+"/realtime/reconnect")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMounts(t *testing.T) {
	t.Parallel()

	client, err := pulse.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(server.New(server.Deps{
		Client: client,
		Mounts: map[string]http.Handler{
			"/scores": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(r.URL.Path))
			}),
		},
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/scores/9")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
