package warmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned by Add for an unparsable cron expression.
var ErrInvalidSchedule = errors.New("warmer: invalid schedule")

// Target revalidates cached keys. pulse resources implement it.
// A failed revalidation must leave a fresh cached value in place.
type Target interface {
	Name() string
	RevalidateKey(ctx context.Context, key string) error
}

type job struct {
	target   Target
	schedule string
	keys     []string
}

// Warmer refreshes hot keys on a cron schedule so they are fresh before
// anyone asks for them.
type Warmer struct {
	cron *cron.Cron
	opts *options
	jobs []job
	mu   sync.Mutex
}

// New creates a warmer. Schedules accept five-field cron expressions and
// descriptors such as "@every 30s".
//
// Example:
//
//	w := warmer.New(warmer.WithLogger(log))
//	_ = w.Add("@every 1m", ads, "ads?limit=1&position=sidebar")
//	w.Start()
//	defer w.Stop(ctx)
func New(opts ...Option) *Warmer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	l := cronLogger{o.logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	return &Warmer{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		opts: o,
	}
}

// Add schedules a refresh of keys on target.
func (w *Warmer) Add(schedule string, target Target, keys ...string) error {
	j := job{target: target, schedule: schedule, keys: keys}

	if _, err := w.cron.AddFunc(schedule, func() { w.run(context.Background(), j) }); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, schedule, err)
	}

	w.mu.Lock()
	w.jobs = append(w.jobs, j)
	w.mu.Unlock()
	return nil
}

// Start runs the scheduler in the background.
func (w *Warmer) Start() {
	w.cron.Start()
}

// Stop stops scheduling and waits for running refreshes or ctx.
func (w *Warmer) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow refreshes every scheduled key once, e.g. at startup.
// It returns the refresh errors joined.
func (w *Warmer) RunNow(ctx context.Context) error {
	w.mu.Lock()
	jobs := append([]job(nil), w.jobs...)
	w.mu.Unlock()

	var errs []error
	for _, j := range jobs {
		errs = append(errs, w.run(ctx, j)...)
	}
	return errors.Join(errs...)
}

func (w *Warmer) run(ctx context.Context, j job) []error {
	ctx, cancel := context.WithTimeout(ctx, w.opts.timeout)
	defer cancel()

	var errs []error
	for _, key := range j.keys {
		if err := j.target.RevalidateKey(ctx, key); err != nil {
			errs = append(errs, err)
			w.opts.logger.WarnContext(ctx, "warm refresh failed",
				slog.String("resource", j.target.Name()),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}

	w.opts.logger.DebugContext(ctx, "warm run finished",
		slog.String("resource", j.target.Name()),
		slog.String("schedule", j.schedule),
		slog.Int("keys", len(j.keys)),
		slog.Int("failed", len(errs)),
	)
	return errs
}

// cronLogger routes cron's logr-style output to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
