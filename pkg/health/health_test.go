package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse/pkg/health"
)

func ok(context.Context) error { return nil }

func fail(context.Context) error { return errors.New("connection refused") }

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		report, err := health.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Equal(t, health.StatusHealthy, report.Status)
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		t.Parallel()

		report, err := health.Run(context.Background(), health.Checks{
			"redis":    ok,
			"realtime": health.Optional(fail),
		})
		require.NoError(t, err)
		require.True(t, report.Ready())
		require.Equal(t, health.StatusDegraded, report.Status)
		require.Equal(t, health.StatusDegraded, report.Checks["realtime"].Status)
		require.Contains(t, report.Checks["realtime"].Error, "connection refused")
	})

	t.Run("required failure is unhealthy", func(t *testing.T) {
		t.Parallel()

		report, err := health.Run(context.Background(), health.Checks{
			"redis":    fail,
			"realtime": health.Optional(fail),
		})
		require.ErrorIs(t, err, health.ErrCheckFailed)
		require.False(t, report.Ready())
		require.Equal(t, health.StatusUnhealthy, report.Status)
	})

	t.Run("timeout cancels slow checks", func(t *testing.T) {
		t.Parallel()

		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}

		start := time.Now()
		report, err := health.Run(context.Background(), health.Checks{"slow": slow},
			health.WithTimeout(20*time.Millisecond))
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, health.StatusUnhealthy, report.Status)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("readiness degraded is 200", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"realtime": health.Optional(fail)})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/readyz?format=json", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var report health.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		require.Equal(t, health.StatusDegraded, report.Status)
	})

	t.Run("readiness unhealthy is 503", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"redis": fail})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "Unhealthy", rec.Body.String())
	})
}
