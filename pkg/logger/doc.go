// Package logger builds the slog loggers used across pulse.
//
// New picks a JSON or text handler from Config, optionally fans records out
// to Sentry (github.com/getsentry/sentry-go) and runs context extractors on
// every record:
//
//	log, flush, err := logger.New(os.Stdout, cfg, logger.RequestID, logger.ContextAttrs)
//	if err != nil {
//	    return err
//	}
//	defer flush(2 * time.Second)
//
//	ctx = logger.WithAttrs(ctx, slog.String("resource", "ads"))
//	log.InfoContext(ctx, "refreshed") // includes resource=ads
//
// An empty Sentry DSN disables the Sentry handler. A Sentry init failure is
// logged locally and does not fail New.
//
// NewNope returns a discarding logger for defaults and tests.
package logger
