// Package config provides configuration loading and validation for the CLI and
// the dashboard API.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/markitup/internal/retry"
	"github.com/jonathan/markitup/internal/strategy"
)

// Environment variables read by FromEnv.
const (
	EnvBaseURL     = "MARKITUP_API_BASE_URL"
	EnvTimeoutMS   = "MARKITUP_API_TIMEOUT_MS"
	EnvMaxAttempts = "MARKITUP_RETRY_MAX_ATTEMPTS"
	EnvRetryDelay  = "MARKITUP_RETRY_DELAY_MS"
	EnvDatabaseURL = "DATABASE_URL"
	EnvPort        = "PORT"
	EnvChromePath  = "CHROME_PATH"
)

// DefaultPort is the dashboard API port.
const DefaultPort = 8080

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Backend
	BaseURL      string `json:"base_url,omitempty"`       // Strategy generation API root
	TimeoutMS    int    `json:"timeout_ms,omitempty"`     // Per-call timeout in milliseconds
	MaxAttempts  int    `json:"max_attempts,omitempty"`   // Attempts for retried read calls
	RetryDelayMS int    `json:"retry_delay_ms,omitempty"` // Base linear backoff in milliseconds

	// Dashboard
	Port        int    `json:"port,omitempty"`         // Dashboard API port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty keeps history in memory

	// Export
	ChromePath string `json:"chrome_path,omitempty"` // Chrome/Chromium binary for PDF export

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BaseURL:      strategy.DefaultBaseURL,
		TimeoutMS:    int(strategy.DefaultTimeout / time.Millisecond),
		MaxAttempts:  retry.DefaultMaxAttempts,
		RetryDelayMS: int(retry.DefaultBaseDelay / time.Millisecond),
		Port:         DefaultPort,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns the configuration set through environment variables.
// Unset variables leave the matching field empty.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BaseURL:     os.Getenv(EnvBaseURL),
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		ChromePath:  os.Getenv(EnvChromePath),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvTimeoutMS, &cfg.TimeoutMS},
		{EnvMaxAttempts, &cfg.MaxAttempts},
		{EnvRetryDelay, &cfg.RetryDelayMS},
		{EnvPort, &cfg.Port},
	}
	for _, v := range ints {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", v.name, err)
		}
		*v.dst = n
	}

	return cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config error: 'base_url' must be an absolute URL, got %q", c.BaseURL)
		}
	}

	// Validate numeric ranges
	if c.TimeoutMS < 0 {
		return fmt.Errorf("config error: 'timeout_ms' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.RetryDelayMS < 0 {
		return fmt.Errorf("config error: 'retry_delay_ms' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// It is applied in layers: flags over env over file over built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}

	// Int fields: use default if zero
	if result.TimeoutMS == 0 {
		result.TimeoutMS = defaults.TimeoutMS
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.RetryDelayMS == 0 {
		result.RetryDelayMS = defaults.RetryDelayMS
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so only true propagates
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Resolve layers the environment and an optional config file over the
// built-in defaults and validates the result.
func Resolve(path string) (Config, error) {
	layer := Defaults()

	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		layer = fileCfg.MergeWithDefaults(layer)
	}

	envCfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	layer = envCfg.MergeWithDefaults(layer)

	if err := layer.Validate(); err != nil {
		return Config{}, err
	}
	return layer, nil
}

// StrategyConfig converts the configuration into a client configuration.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		BaseURL: c.BaseURL,
		Timeout: time.Duration(c.TimeoutMS) * time.Millisecond,
		Retry: retry.Options{
			MaxAttempts: c.MaxAttempts,
			BaseDelay:   time.Duration(c.RetryDelayMS) * time.Millisecond,
			Verbose:     c.Verbose,
		},
	}
}
