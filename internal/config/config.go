package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Airtable AirtableConfig `mapstructure:"airtable"`
	Places   PlacesConfig   `mapstructure:"places"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AirtableConfig holds the remote table configuration
type AirtableConfig struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	BaseID          string        `mapstructure:"base_id"`
	TableName       string        `mapstructure:"table_name"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables periodic refresh
}

// PlacesConfig holds places-lookup service configuration
type PlacesConfig struct {
	APIBaseURL        string        `mapstructure:"api_base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	PhotoMaxHeightPx  int           `mapstructure:"photo_max_height_px"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// TelegramConfig holds Telegram presentation configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// VENUESCOUT_AIRTABLE_TOKEN overrides airtable.token, and so on
	v.SetEnvPrefix("VENUESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Secrets default to "" so environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	// Airtable defaults
	v.SetDefault("airtable.api_base_url", "https://api.airtable.com")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("airtable.table_name", "Events")
	v.SetDefault("airtable.token", "")
	v.SetDefault("airtable.timeout", "30s")
	v.SetDefault("airtable.refresh_interval", "0s")

	// Places defaults
	v.SetDefault("places.api_base_url", "https://places.googleapis.com")
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.timeout", "10s")
	v.SetDefault("places.max_concurrency", 8)
	v.SetDefault("places.requests_per_second", 10.0)
	v.SetDefault("places.burst", 5)
	v.SetDefault("places.photo_max_height_px", 400)

	// Server defaults
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "venuescout")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Airtable config
	if c.Airtable.APIBaseURL == "" {
		return fmt.Errorf("airtable.api_base_url is required")
	}
	if c.Airtable.BaseID == "" {
		return fmt.Errorf("airtable.base_id is required")
	}
	if c.Airtable.TableName == "" {
		return fmt.Errorf("airtable.table_name is required")
	}
	if c.Airtable.Token == "" {
		return fmt.Errorf("airtable.token is required")
	}
	if c.Airtable.Timeout < 1*time.Second {
		return fmt.Errorf("airtable.timeout must be at least 1 second")
	}
	if c.Airtable.RefreshInterval != 0 && c.Airtable.RefreshInterval < 10*time.Second {
		return fmt.Errorf("airtable.refresh_interval must be 0 or at least 10 seconds")
	}

	// Validate Places config
	if c.Places.APIBaseURL == "" {
		return fmt.Errorf("places.api_base_url is required")
	}
	if c.Places.APIKey == "" {
		return fmt.Errorf("places.api_key is required")
	}
	if c.Places.Timeout < 1*time.Second {
		return fmt.Errorf("places.timeout must be at least 1 second")
	}
	if c.Places.MaxConcurrency < 1 {
		return fmt.Errorf("places.max_concurrency must be at least 1")
	}
	if c.Places.RequestsPerSecond <= 0 {
		return fmt.Errorf("places.requests_per_second must be positive")
	}
	if c.Places.Burst < 1 {
		return fmt.Errorf("places.burst must be at least 1")
	}
	if c.Places.PhotoMaxHeightPx < 1 || c.Places.PhotoMaxHeightPx > 4800 {
		return fmt.Errorf("places.photo_max_height_px must be between 1 and 4800")
	}

	// Validate Server config
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Tracing config
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
