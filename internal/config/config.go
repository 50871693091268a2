package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/waabox/autolog/internal/reveal"
)

// GoogleConfig holds the OAuth client used for "Sign in with Google".
type GoogleConfig struct {
	ClientID     string `toml:"client_id" env:"AUTOLOG_GOOGLE_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"AUTOLOG_GOOGLE_CLIENT_SECRET"`
}

// GreetingConfig tunes the typed greeting on the sign-in screen.
type GreetingConfig struct {
	Text   string        `toml:"text" env:"AUTOLOG_GREETING"`
	Delay  time.Duration `toml:"delay" env:"AUTOLOG_GREETING_DELAY"`
	Period time.Duration `toml:"period" env:"AUTOLOG_GREETING_PERIOD"`
}

// LogConfig holds logging and error reporting settings.
type LogConfig struct {
	Level       string `toml:"level" env:"AUTOLOG_LOG_LEVEL"`
	File        string `toml:"file" env:"AUTOLOG_LOG_FILE"`
	Environment string `toml:"environment" env:"AUTOLOG_ENVIRONMENT"`
	SentryDSN   string `toml:"sentry_dsn" env:"SENTRY_DSN"`
}

// Config holds all autolog configuration.
type Config struct {
	Google   GoogleConfig   `toml:"google"`
	Greeting GreetingConfig `toml:"greeting"`
	Log      LogConfig      `toml:"log"`
}

const (
	defaultLogLevel    = "info"
	defaultEnvironment = "dev"
)

// Default returns the configuration written by -init-config.
func Default() Config {
	timing := reveal.DefaultTiming()
	return Config{
		Greeting: GreetingConfig{
			Text:   reveal.DefaultGreeting,
			Delay:  timing.Delay,
			Period: timing.Period,
		},
		Log: LogConfig{
			Level:       defaultLogLevel,
			Environment: defaultEnvironment,
		},
	}
}

// GreetingOrDefault returns the greeting text, falling back to reveal.DefaultGreeting.
func (c Config) GreetingOrDefault() string {
	if c.Greeting.Text != "" {
		return c.Greeting.Text
	}
	return reveal.DefaultGreeting
}

// Timing returns the reveal timing; zero values are filled in by reveal.New.
func (c Config) Timing() reveal.Timing {
	return reveal.Timing{Delay: c.Greeting.Delay, Period: c.Greeting.Period}
}

// LogLevelOrDefault returns Log.Level if set, otherwise "info".
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return defaultLogLevel
}

// EnvironmentOrDefault returns Log.Environment if set, otherwise "dev".
func (c Config) EnvironmentOrDefault() string {
	if c.Log.Environment != "" {
		return c.Log.Environment
	}
	return defaultEnvironment
}

// IsEnvProd reports whether errors should be shipped to Sentry.
func (c Config) IsEnvProd() bool {
	return c.EnvironmentOrDefault() == "prod" && c.Log.SentryDSN != ""
}

// LogFileOrDefault returns Log.File if set, otherwise autolog.log next to the config file.
func (c Config) LogFileOrDefault() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "autolog.log")
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values; see the env
// tags on the config structs (AUTOLOG_GOOGLE_CLIENT_ID, SENTRY_DSN, ...).
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the default path for the autolog config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/autolog/config.toml"
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
