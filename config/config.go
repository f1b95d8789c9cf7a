package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds crawler configuration. It is passed explicitly into every
// adapter run; nothing reads it from package state.
type Config struct {
	Timeout          time.Duration `envconfig:"TIMEOUT"`
	MaxRetries       int           `envconfig:"MAX_RETRIES"`
	RetryBackoff     time.Duration `envconfig:"RETRY_BACKOFF"`
	RetryBackoffMax  time.Duration `envconfig:"RETRY_BACKOFF_MAX"`
	RetryJitter      bool          `envconfig:"RETRY_JITTER"`
	PageDelay        time.Duration `envconfig:"PAGE_DELAY"`
	Concurrency      int           `envconfig:"CONCURRENCY"`
	PlatformTimeout  time.Duration `envconfig:"PLATFORM_TIMEOUT"`
	DedupeMaxSize    int           `envconfig:"DEDUPE_MAX_SIZE"`
	UserAgent        string        `envconfig:"USER_AGENT"`
	RespectRobotsTxt bool          `envconfig:"RESPECT_ROBOTS"`
	OutputFile       string        `envconfig:"OUTPUT"`
	OutputFormat     string        `envconfig:"FORMAT"` // csv, json, or dual
	Append           bool          `envconfig:"APPEND"`
	DedupeExisting   bool          `envconfig:"DEDUPE_EXISTING"`
	SelectorsFile    string        `envconfig:"SELECTORS"`
	PostgresDSN      string        `envconfig:"PG_DSN"`
	MetricsAddr      string        `envconfig:"METRICS_ADDR"`
	Verbose          bool          `envconfig:"VERBOSE"`
}

// DefaultConfig returns polite defaults for the supported marketplaces.
func DefaultConfig() *Config {
	return &Config{
		Timeout:          20 * time.Second,
		MaxRetries:       3,
		RetryBackoff:     500 * time.Millisecond,
		RetryBackoffMax:  8 * time.Second,
		RetryJitter:      true,
		PageDelay:        1500 * time.Millisecond,
		Concurrency:      10,
		PlatformTimeout:  3 * time.Minute,
		DedupeMaxSize:    10000,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		OutputFile:       "data/multi_platform_results.csv",
		OutputFormat:     "csv",
	}
}

// Load starts from DefaultConfig and overlays a .env file (when present) and
// CRAWLER_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			slog.Warn(".env file found but could not be loaded", slog.Any("error", err))
		}
	}

	cfg := DefaultConfig()
	if err := envconfig.Process("CRAWLER", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Timeout < time.Second || c.Timeout > 2*time.Minute {
		return fmt.Errorf("timeout must be between 1s and 2m, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.PlatformTimeout < 0 {
		return fmt.Errorf("platform timeout cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
