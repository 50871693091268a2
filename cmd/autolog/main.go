package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/waabox/autolog/internal/auth"
	"github.com/waabox/autolog/internal/config"
	"github.com/waabox/autolog/internal/domain"
	"github.com/waabox/autolog/internal/observability"
	"github.com/waabox/autolog/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "print version and exit")
	configFlag := flag.String("config", config.DefaultConfigPath(), "path to the config file")
	initFlag := flag.Bool("init-config", false, "write a default config file and exit")
	flag.Parse()
	if *versionFlag {
		fmt.Println("autolog", version)
		os.Exit(0)
	}

	configPath := *configFlag
	if *initFlag {
		if err := initConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Config written to %s\n", configPath)
		os.Exit(0)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Google.ClientID == "" {
		fmt.Fprintf(os.Stderr, "google.client_id is not set; add it to %s or set AUTOLOG_GOOGLE_CLIENT_ID\n", configPath)
		os.Exit(1)
	}

	logPath := cfg.LogFileOrDefault()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "error creating log directory: %v\n", err)
		os.Exit(1)
	}
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	flush, err := observability.InitSentry(cfg, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (errors will only be logged to %s)\n", err, logPath)
	}
	logger, sentryWriter := observability.NewLogger(cfg, version, logFile)
	defer observability.Shutdown(sentryWriter, flush)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	flow := auth.NewGoogleDeviceFlow(cfg.Google.ClientID, cfg.Google.ClientSecret, "")
	provider := auth.NewPopupProvider(flow, cfg.Google.ClientID, logger)

	logger.Info().Str("version", version).Msg("Sign-in screen opened")
	identity, err := tui.Run(ctx, tui.RunOptions{
		Greeting: cfg.GreetingOrDefault(),
		Timing:   cfg.Timing(),
		Provider: provider,
		Reporter: observability.NewFailureReporter(logger),
		Logger:   logger,
		OnLogin: func(identity domain.Identity) {
			logger.Info().Str("subject", identity.Subject).Msg("Signed in")
		},
	})
	if errors.Is(err, tui.ErrNotSignedIn) {
		logger.Info().Msg("Sign-in screen closed without signing in")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Sign-in screen failed")
		fmt.Fprintf(os.Stderr, "autolog error: %v\n", err)
		observability.Shutdown(sentryWriter, flush)
		os.Exit(1)
	}

	fmt.Printf("Signed in as %s\n", identity.DisplayName())
}

// initConfig writes the default config unless a file already exists at path.
func initConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.Save(path, config.Default())
}
