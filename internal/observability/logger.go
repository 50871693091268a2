// Package observability sets up logging and error reporting for autolog.
//
// The TUI owns the terminal, so logs go to a file. In production, error-level
// entries are also shipped to Sentry.
package observability

import (
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"

	"github.com/waabox/autolog/internal/config"
)

// NewLogger creates a zerolog logger writing to out. Development uses console
// formatting without colour; production writes JSON and, when the Sentry client
// is initialised, tees error levels into a Sentry writer (nil otherwise).
func NewLogger(cfg config.Config, version string, out io.Writer) (zerolog.Logger, *sentryzerolog.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevelOrDefault())
	if err != nil {
		level = zerolog.InfoLevel
	}

	if !cfg.IsEnvProd() {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
		return zerolog.New(consoleWriter).
			Level(level).
			With().
			Timestamp().
			Caller().
			Logger(), nil
	}

	base := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("version", version).
		Str("environment", cfg.EnvironmentOrDefault()).
		Logger()

	if sentry.CurrentHub().Client() == nil {
		return base, nil
	}

	sentryWriter, err := sentryzerolog.New(sentryzerolog.Config{
		Options: sentryzerolog.Options{
			Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
			WithBreadcrumbs: true,
			FlushTimeout:    3 * time.Second,
		},
	})
	if err != nil {
		base.Error().Err(err).Msg("Failed to initialize Sentry writer, logging to file only")
		return base, nil
	}

	return zerolog.New(zerolog.MultiLevelWriter(out, sentryWriter)).
		Level(level).
		With().
		Timestamp().
		Str("version", version).
		Str("environment", cfg.EnvironmentOrDefault()).
		Logger(), sentryWriter
}
