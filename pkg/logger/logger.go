package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// New creates a logger from cfg writing to w (stdout when nil).
// When cfg.Sentry.DSN is set, warnings and errors are also sent to Sentry;
// the returned flush func drains the Sentry buffer and must run on shutdown.
//
// Example:
//
//	log, flush, err := logger.New(os.Stdout, cfg.Log, logger.RequestID)
//	if err != nil {
//	    return err
//	}
//	defer flush(2 * time.Second)
func New(w io.Writer, cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration), error) {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var base slog.Handler
	switch cfg.Format {
	case "", "json":
		base = slog.NewJSONHandler(w, opts)
	case "text":
		base = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}

	flush := func(time.Duration) {}

	if cfg.Sentry.DSN != "" {
		sh, err := newSentryHandler(cfg.Sentry)
		if err != nil {
			// Sentry is optional; keep logging locally.
			slog.New(base).Error("sentry init failed", slog.Any("error", err))
		} else {
			base = fanout(base, sh)
			flush = func(d time.Duration) { sentry.Flush(d) }
		}
	}

	return slog.New(withContext(base, extractors...)), flush, nil
}
