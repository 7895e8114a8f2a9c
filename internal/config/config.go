// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Host      string `env:"HOST" default:"0.0.0.0"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// YelpAPIKey enables the Fusion API path; empty selects HTML fallback.
	YelpAPIKey string `env:"YELP_API_KEY"`

	// ScraperTimeout bounds a single fetch attempt per source. The
	// aggregation cycle itself enforces no timeout of its own.
	ScraperTimeout time.Duration `env:"SCRAPER_TIMEOUT" default:"15s"`

	// StopGraceTimeout bounds how long stop/supersede waits for a running
	// poll job to acknowledge cancellation.
	StopGraceTimeout time.Duration `env:"STOP_GRACE_TIMEOUT" default:"5s"`

	ScraperUserAgent string `env:"SCRAPER_USER_AGENT" default:"Mozilla/5.0 (compatible; reviewpulse/1.0)"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.ScraperTimeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT must be positive, got %s", cfg.ScraperTimeout)
	}
	if cfg.StopGraceTimeout <= 0 {
		return fmt.Errorf("STOP_GRACE_TIMEOUT must be positive, got %s", cfg.StopGraceTimeout)
	}
	return nil
}
