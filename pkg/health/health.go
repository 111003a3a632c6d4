package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/pulse/pkg/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// Checks maps a check name to its function.
type Checks map[string]CheckFunc

// Optional wraps check so that its failure degrades the service instead of
// making it unready. A process serving cached data with a dead realtime
// connection is degraded, not down.
func Optional(check CheckFunc) CheckFunc {
	return func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return errors.Join(ErrDegraded, err)
		}
		return nil
	}
}

// Report is the aggregated result of a check run.
type Report struct {
	Checks map[string]Result `json:"checks,omitempty"`
	Status string            `json:"status"`
}

// Ready reports whether every required check passed.
func (r *Report) Ready() bool {
	return r.Status != StatusUnhealthy
}

// Result is the outcome of one check.
type Result struct {
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a check run.
type Option func(*config)

// WithTimeout bounds the whole run.
// Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger failed checks are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: 5 * time.Second,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes checks concurrently. The returned error wraps ErrCheckFailed
// when any required check failed; optional failures only set the degraded
// status.
func Run(ctx context.Context, checks Checks, opts ...Option) (*Report, error) {
	cfg := newConfig(opts...)
	report := &Report{Status: StatusHealthy, Checks: make(map[string]Result, len(checks))}
	if len(checks) == 0 {
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)

	for name, check := range checks {
		wg.Go(func() {
			started := time.Now()
			err := check(ctx)
			res := Result{Status: StatusHealthy, Duration: time.Since(started)}

			if err != nil {
				res.Status = StatusUnhealthy
				if errors.Is(err, ErrDegraded) {
					res.Status = StatusDegraded
				}
				res.Error = err.Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("status", res.Status),
					slog.Any("error", err),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = res
			switch res.Status {
			case StatusUnhealthy:
				report.Status = StatusUnhealthy
				errs = append(errs, err)
			case StatusDegraded:
				if report.Status == StatusHealthy {
					report.Status = StatusDegraded
				}
			}
		})
	}

	wg.Wait()

	if len(errs) > 0 {
		return report, errors.Join(ErrCheckFailed, errors.Join(errs...))
	}
	return report, nil
}
