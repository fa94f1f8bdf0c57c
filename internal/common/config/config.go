// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Images     ImagesConfig     `mapstructure:"images"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig points at the menu backend that hosts the OCR, image search,
// and menu endpoints.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// AuthConfig holds the client-credentials settings for the session provider.
type AuthConfig struct {
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// ExtractionConfig controls the job polling loop.
type ExtractionConfig struct {
	PollInterval        int `mapstructure:"poll_interval"`         // milliseconds
	MaxTransportRetries int `mapstructure:"max_transport_retries"` // consecutive failures before PollingExhausted
}

// ImagesConfig controls image search and object-storage uploads.
type ImagesConfig struct {
	SearchLimit    int    `mapstructure:"search_limit"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	DraftTTL int    `mapstructure:"draft_ttl"` // seconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.Extraction.PollInterval <= 0 {
		return fmt.Errorf("extraction.poll_interval must be positive")
	}
	if cfg.Extraction.MaxTransportRetries <= 0 {
		return fmt.Errorf("extraction.max_transport_retries must be positive")
	}
	return nil
}
