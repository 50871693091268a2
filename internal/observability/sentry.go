package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"

	"github.com/waabox/autolog/internal/config"
)

// InitSentry initialises the global Sentry client in production. It returns a
// flush function to defer; outside production it does nothing.
func InitSentry(cfg config.Config, version string) (func(), error) {
	if !cfg.IsEnvProd() {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Log.SentryDSN,
		Environment:      cfg.EnvironmentOrDefault(),
		Release:          "autolog@" + version,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, fmt.Errorf("initializing sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Shutdown closes the Sentry writer (if any) and flushes pending events.
func Shutdown(writer *sentryzerolog.Writer, flush func()) {
	if writer != nil {
		writer.Close()
	}
	if flush != nil {
		flush()
	}
}
