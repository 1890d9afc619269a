package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LastFM  LastFMConfig  `yaml:"lastfm"`
	Filter  FilterConfig  `yaml:"filter"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LastFMConfig holds the web service settings.
type LastFMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond throttles outbound calls; 0 disables the throttle.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// FilterConfig tunes the candidate filter.
type FilterConfig struct {
	Quota   int `yaml:"quota"`
	Workers int `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int    `yaml:"port"`
	BasePath          string `yaml:"base_path"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`

	// TrustProxy keys the rate limiter on X-Forwarded-For / X-Real-Ip.
	// Enable only behind a reverse proxy that sets them.
	TrustProxy bool `yaml:"trust_proxy"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LastFM: LastFMConfig{
			BaseURL: "http://ws.audioscrobbler.com/2.0/",
			Timeout: 10 * time.Second,
		},
		Filter: FilterConfig{
			Quota:   10,
			Workers: 1,
		},
		Server: ServerConfig{
			Port:              8080,
			BasePath:          "/",
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("RF_LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("RF_LASTFM_BASE_URL"); v != "" {
		c.LastFM.BaseURL = v
	}
	if v := os.Getenv("RF_LASTFM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LastFM.Timeout = d
		}
	}
	if v := os.Getenv("RF_LASTFM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LastFM.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("RF_FILTER_QUOTA"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Filter.Quota = n
		}
	}
	if v := os.Getenv("RF_FILTER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Filter.Workers = n
		}
	}
	if v := os.Getenv("RF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("RF_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("RF_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("RF_TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.TrustProxy = b
		}
	}
	if v := os.Getenv("RF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("RF_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid requests_per_minute: %d", c.Server.RequestsPerMinute)
	}
	if c.LastFM.Timeout <= 0 {
		return fmt.Errorf("invalid lastfm timeout: %s", c.LastFM.Timeout)
	}
	if c.LastFM.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid lastfm requests_per_second: %g", c.LastFM.RequestsPerSecond)
	}
	if c.Filter.Quota < 1 {
		return fmt.Errorf("filter quota must be at least 1, got %d", c.Filter.Quota)
	}
	if c.Filter.Workers < 1 {
		return fmt.Errorf("filter workers must be at least 1, got %d", c.Filter.Workers)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

// RequireAPIKey returns an error when no Last.fm API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.LastFM.APIKey == "" {
		return fmt.Errorf("no Last.fm API key configured: set lastfm.api_key or RF_LASTFM_API_KEY")
	}
	return nil
}
