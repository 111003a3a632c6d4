// Command pulse serves cached, coalesced API resources and keeps them in step
// with a realtime feed.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/pulse"
	"github.com/dmitrymomot/pulse/internal/feeds"
	"github.com/dmitrymomot/pulse/internal/server"
	"github.com/dmitrymomot/pulse/pkg/cache"
	"github.com/dmitrymomot/pulse/pkg/health"
	"github.com/dmitrymomot/pulse/pkg/httpfetch"
	"github.com/dmitrymomot/pulse/pkg/logger"
	"github.com/dmitrymomot/pulse/pkg/realtime"
	"github.com/dmitrymomot/pulse/pkg/redis"
	"github.com/dmitrymomot/pulse/pkg/warmer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pulse stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	res, err := loadResources(cfg.ResourcesFile)
	if err != nil {
		return err
	}

	log, flush, err := logger.New(os.Stdout, cfg.Log, logger.RequestID, logger.ContextAttrs)
	if err != nil {
		return err
	}
	defer flush(2 * time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []pulse.Option{
		pulse.WithLogger(log),
		pulse.WithRegisterer(reg),
	}
	checks := health.Checks{}

	if cfg.Redis.URL != "" {
		rdb, err := redis.Open(ctx, cfg.Redis.URL, append(cfg.Redis.Options(), redis.WithLogger(log))...)
		if err != nil {
			return err
		}
		opts = append(opts,
			pulse.WithStore(cache.NewRedisStore(rdb, "pulse")),
			pulse.WithShutdownHook(redis.Shutdown(rdb)),
		)
		checks["redis"] = redis.Healthcheck(rdb)
	}

	if cfg.Realtime.URL != "" {
		opts = append(opts, pulse.WithRealtime(
			&realtime.WebSocketDialer{URL: cfg.Realtime.URL},
			realtime.WithMaxAttempts(cfg.Realtime.MaxAttempts),
			realtime.WithRetryDelay(cfg.Realtime.RetryDelay, cfg.Realtime.MaxRetryDelay),
		))
	}

	client, err := pulse.New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error("client close failed", slog.Any("error", err))
		}
	}()

	fetchOpts := []httpfetch.Option{httpfetch.WithRateLimit(cfg.APIRateLimit, max(int(cfg.APIRateLimit), 1))}
	if cfg.APIToken != "" {
		fetchOpts = append(fetchOpts, httpfetch.WithHeader("Authorization", "Bearer "+cfg.APIToken))
	}

	ads, err := pulse.NewResource(client, feeds.AdsResource,
		httpfetch.New[[]feeds.Ad](cfg.APIBaseURL, fetchOpts...),
		feeds.AdsPolicy(res.Ads.TTL),
	)
	if err != nil {
		return err
	}
	scores, err := pulse.NewResource(client, feeds.ScoresResource,
		httpfetch.New[feeds.Score](cfg.APIBaseURL, fetchOpts...),
		feeds.ScorePolicy(res.Scores.LiveTTL, res.Scores.TTL),
	)
	if err != nil {
		return err
	}

	w := warmer.New(warmer.WithLogger(log.With(slog.String("component", "warmer"))))
	if err := addWarmJobs(w, ads, res.Ads.Warm); err != nil {
		return err
	}
	if err := addWarmJobs(w, scores, res.Scores.Warm); err != nil {
		return err
	}

	if err := client.Start(ctx); err != nil {
		return err
	}
	mounts := map[string]http.Handler{}
	if m, err := client.Realtime(); err == nil {
		checks["realtime"] = health.Optional(realtime.Healthcheck(m))
		board := feeds.NewBoard(m, scores, log.With(slog.String("component", "board")))
		for _, id := range res.Scores.Watch {
			if _, err := board.Watch(ctx, id); err != nil {
				return err
			}
		}
		mounts["/scores"] = board.Handler()
	}

	if err := w.RunNow(ctx); err != nil {
		log.WarnContext(ctx, "initial warm-up incomplete", slog.Any("error", err))
	}
	w.Start()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(server.Deps{Client: client, Gatherer: reg, Checks: checks, Logger: log, Mounts: mounts}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	return errors.Join(
		srv.Shutdown(shutdownCtx),
		w.Stop(shutdownCtx),
	)
}

func addWarmJobs(w *warmer.Warmer, target pulse.ResourceHandle, jobs []warmConfig) error {
	for _, job := range jobs {
		keys := make([]string, len(job.Params))
		for i, p := range job.Params {
			keys[i] = pulse.Key(target.Name(), p)
		}
		if err := w.Add(job.Schedule, target, keys...); err != nil {
			return err
		}
	}
	return nil
}
