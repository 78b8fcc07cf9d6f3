// Package config loads service configuration from the environment and an
// optional YAML file.
//
// Precedence, lowest first: envconfig defaults, environment variables, YAML
// file, command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Preview   PreviewConfig   `yaml:"preview"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000" yaml:"port"`
	Host         string        `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
	Gzip         bool          `envconfig:"SERVER_GZIP" default:"true" yaml:"gzip"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s" yaml:"read_timeout"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s" yaml:"write_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration. Global shares one
// bucket across all clients instead of keeping one per IP.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
	Global            bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false" yaml:"global"`
}

// CORSConfig holds allowed origins for the editor frontend.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*" yaml:"allow_origins"`
}

// PreviewConfig holds preview engine configuration.
type PreviewConfig struct {
	TimeoutMs      int    `envconfig:"PREVIEW_TIMEOUT_MS" default:"5000" yaml:"timeout_ms"`
	MaxTimeoutMs   int    `envconfig:"PREVIEW_MAX_TIMEOUT_MS" default:"30000" yaml:"max_timeout_ms"`
	MaxHistory     int    `envconfig:"PREVIEW_MAX_HISTORY" default:"100" yaml:"max_history"`
	RecentWindow   int    `envconfig:"PREVIEW_RECENT_WINDOW" default:"10" yaml:"recent_window"`
	PoolSize       int    `envconfig:"PREVIEW_POOL_SIZE" default:"4" yaml:"pool_size"`
	HTMLPolicy     string `envconfig:"PREVIEW_HTML_POLICY" default:"denylist" yaml:"html_policy"`
	EnableDOM      bool   `envconfig:"PREVIEW_ENABLE_DOM" default:"true" yaml:"enable_dom"`
	MaxSourceBytes int64  `envconfig:"PREVIEW_MAX_SOURCE_BYTES" default:"1048576" yaml:"max_source_bytes"`
}

// Timeout returns the default execution timeout.
func (p PreviewConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// ClampTimeoutMs bounds a requested timeout. Zero or negative means the default.
func (p PreviewConfig) ClampTimeoutMs(requested int) int {
	if requested <= 0 {
		return p.TimeoutMs
	}
	if p.MaxTimeoutMs > 0 && requested > p.MaxTimeoutMs {
		return p.MaxTimeoutMs
	}
	return requested
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads the environment, then overlays keys present in a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "0.0.0.0",
			Gzip:         true,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
			Global:            false,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
		Preview: PreviewConfig{
			TimeoutMs:      5000,
			MaxTimeoutMs:   30000,
			MaxHistory:     100,
			RecentWindow:   10,
			PoolSize:       4,
			HTMLPolicy:     "denylist",
			EnableDOM:      true,
			MaxSourceBytes: 1 << 20,
		},
	}
}
