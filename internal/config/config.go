package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/recapforge/recap-studio/pkg/icron"
)

// Config holds all studio configuration, sourced from environment
// variables with sensible defaults.
//
// Environment Variables:
//
// Server:
//   - STUDIO_LISTEN_ADDR: HTTP listen address (default: :8974)
//   - STUDIO_UI_DIR: directory with the built UI bundle (optional)
//   - STUDIO_LOG_LEVEL: debug|info|warn|error (default: info)
//
// Recap service:
//   - RECAP_API_URL: base URL of the rendering service (default:
//     https://api.recapforge.io/v1)
//   - RECAP_API_KEY: API key for the rendering service (required)
//   - RECAP_API_TIMEOUT: request timeout in seconds (default: 30)
//
// Job polling:
//   - POLL_BASE_INTERVAL_MS: base interval between checks (default: 3000)
//   - POLL_MULTIPLIER: backoff multiplier on failed checks (default: 1.5)
//   - POLL_MAX_INTERVAL_MS: backoff ceiling (default: 30000)
//   - POLL_ERROR_CEILING: consecutive failures before giving up (default: 5)
//
// Janitor:
//   - JANITOR_CRON_EXPR: schedule for pruning finished watches and
//     refreshing the credit balance (default: @every 1h)
type Config struct {
	Server ServerConfig `json:"server"`
	Recap  RecapConfig  `json:"recap"`
	Poll   PollConfig   `json:"poll"`

	JanitorCronExpr string `json:"janitor_cron_expr"`
}

type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`
	UIDir      string `json:"ui_dir"`
	LogLevel   string `json:"log_level"`
}

type RecapConfig struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"`
}

func (c RecapConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type PollConfig struct {
	BaseIntervalMs int     `json:"base_interval_ms"`
	Multiplier     float64 `json:"multiplier"`
	MaxIntervalMs  int     `json:"max_interval_ms"`
	ErrorCeiling   int     `json:"error_ceiling"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a Config from environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			ListenAddr: getEnvString("STUDIO_LISTEN_ADDR", ":8974"),
			UIDir:      getEnvString("STUDIO_UI_DIR", ""),
			LogLevel:   getEnvString("STUDIO_LOG_LEVEL", "info"),
		},
		Recap: RecapConfig{
			APIURL:  getEnvString("RECAP_API_URL", "https://api.recapforge.io/v1"),
			APIKey:  getEnvString("RECAP_API_KEY", ""),
			Timeout: getEnvInt("RECAP_API_TIMEOUT", 30),
		},
		Poll: PollConfig{
			BaseIntervalMs: getEnvInt("POLL_BASE_INTERVAL_MS", 3000),
			Multiplier:     getEnvFloat("POLL_MULTIPLIER", 1.5),
			MaxIntervalMs:  getEnvInt("POLL_MAX_INTERVAL_MS", 30000),
			ErrorCeiling:   getEnvInt("POLL_ERROR_CEILING", 5),
		},
		JanitorCronExpr: getEnvString("JANITOR_CRON_EXPR", "@every 1h"),
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Recap.APIKey == "" {
		return fmt.Errorf("RECAP_API_KEY is required")
	}
	if c.Recap.APIURL == "" {
		return fmt.Errorf("RECAP_API_URL must not be empty")
	}
	if c.Poll.BaseIntervalMs <= 0 {
		return fmt.Errorf("POLL_BASE_INTERVAL_MS must be positive")
	}
	if c.Poll.Multiplier <= 1 {
		return fmt.Errorf("POLL_MULTIPLIER must be greater than 1")
	}
	if c.Poll.MaxIntervalMs < c.Poll.BaseIntervalMs {
		return fmt.Errorf("POLL_MAX_INTERVAL_MS must be at least the base interval")
	}
	if c.Poll.ErrorCeiling <= 0 {
		return fmt.Errorf("POLL_ERROR_CEILING must be positive")
	}
	if err := icron.Validate(c.JanitorCronExpr); err != nil {
		return fmt.Errorf("JANITOR_CRON_EXPR: %w", err)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
