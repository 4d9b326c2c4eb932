package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	PosterAPI PosterAPIConfig
	Studio    StudioConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the studio HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"STUDIO_PORT" default:"8090"`
	Host string `envconfig:"STUDIO_HOST" default:"0.0.0.0"`
	// CORSOrigins lists the front end origins allowed to call the studio.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// PosterAPIConfig holds the remote poster service connection settings.
type PosterAPIConfig struct {
	URL          string        `envconfig:"POSTER_API_URL" default:"http://localhost:8000"`
	Prefix       string        `envconfig:"POSTER_API_PREFIX" default:"/api/v1"`
	Timeout      time.Duration `envconfig:"POSTER_API_TIMEOUT" default:"120s"`
	RetryMax     int           `envconfig:"POSTER_API_RETRY_MAX" default:"2"`
	RateLimit    float64       `envconfig:"POSTER_API_RPS" default:"10"`
	RateBurst    int           `envconfig:"POSTER_API_BURST" default:"20"`
	BreakerTrips uint32        `envconfig:"POSTER_API_BREAKER_TRIPS" default:"5"`
}

// StudioConfig holds session behaviour settings.
type StudioConfig struct {
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	StyleDebounce time.Duration `envconfig:"STYLE_DEBOUNCE" default:"500ms"`
	ExportDir     string        `envconfig:"EXPORT_DIR" default:"exports"`
	ThemesFile    string        `envconfig:"THEMES_FILE"`
	MaxUploadMB   int           `envconfig:"MAX_UPLOAD_MB" default:"5"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8090",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		PosterAPI: PosterAPIConfig{
			URL:          "http://localhost:8000",
			Prefix:       "/api/v1",
			Timeout:      120 * time.Second,
			RetryMax:     2,
			RateLimit:    10,
			RateBurst:    20,
			BreakerTrips: 5,
		},
		Studio: StudioConfig{
			PollInterval:  3 * time.Second,
			StyleDebounce: 500 * time.Millisecond,
			ExportDir:     "exports",
			MaxUploadMB:   5,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the studio cannot run with.
func (c *Config) Validate() error {
	if c.PosterAPI.URL == "" {
		return fmt.Errorf("invalid config: POSTER_API_URL is empty")
	}
	if c.Studio.PollInterval <= 0 {
		return fmt.Errorf("invalid config: POLL_INTERVAL must be positive, got %s", c.Studio.PollInterval)
	}
	if c.Studio.StyleDebounce <= 0 {
		return fmt.Errorf("invalid config: STYLE_DEBOUNCE must be positive, got %s", c.Studio.StyleDebounce)
	}
	if c.Studio.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid config: MAX_UPLOAD_MB must be positive, got %d", c.Studio.MaxUploadMB)
	}
	return nil
}

// Addr returns the studio listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Studio.MaxUploadMB) << 20
}
