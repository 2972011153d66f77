package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/export"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/extraction"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Provider          string  `mapstructure:"provider"`
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
	Concurrency       int     `mapstructure:"concurrency"`

	// Output is the default export path
	Output      string `mapstructure:"output"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`

	Server ServerConfig `mapstructure:"server"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment, an optional config file, and defaults.
// Environment variables are prefixed CHEMINV_, e.g. CHEMINV_SERVER_PORT.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("provider", "anthropic")
	v.SetDefault("model", "")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("max_tokens", 1000)
	v.SetDefault("timeout_secs", 120)
	v.SetDefault("requests_per_minute", 0)
	v.SetDefault("concurrency", 1)
	v.SetDefault("output", export.DefaultFilename)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetEnvPrefix("CHEMINV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.chemical-inventory")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if _, err := extraction.NewProvider(c.Provider); err != nil {
		return err
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs cannot be negative")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if _, err := export.ForPath(c.Output); err != nil {
		return err
	}
	return nil
}

// ExtractionOptions maps the configuration onto the extraction service
func (c *Config) ExtractionOptions() extraction.Options {
	return extraction.Options{
		Provider:          c.Provider,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
		RequestsPerMinute: c.RequestsPerMinute,
	}
}
