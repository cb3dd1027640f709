// Package config loads daemon configuration from YAML and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/carewatch/carewatch/internal/monitor"
)

// Config represents the root configuration structure
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	// DataDir is where the SQLite database and pidfile live.
	DataDir string `mapstructure:"data_dir"`

	// AlertRetention is how long terminal alerts are kept before pruning.
	// Zero keeps them forever.
	AlertRetention time.Duration `mapstructure:"alert_retention"`
}

// DBPath returns the SQLite database path inside the data directory.
func (s *StorageConfig) DBPath() string {
	return filepath.Join(s.DataDir, "carewatch.db")
}

// PIDPath returns the pidfile path inside the data directory.
func (s *StorageConfig) PIDPath() string {
	return filepath.Join(s.DataDir, "carewatchd.pid")
}

// MonitorConfig holds the inactivity monitor settings
type MonitorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	MaxInactivity time.Duration `mapstructure:"max_inactivity"`
}

// WebhookConfig holds the notification webhook settings
type WebhookConfig struct {
	// URL is the endpoint alert lifecycle events are posted to.
	// Empty disables webhook delivery (events go to the log instead).
	URL string `mapstructure:"url"`

	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging preferences
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// LoadConfig loads configuration from the default search paths and
// CAREWATCH_* environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.config/carewatch")
	viper.AddConfigPath(".")

	return load()
}

// LoadConfigFromPath loads configuration from an explicit file path.
func LoadConfigFromPath(path string) (*Config, error) {
	viper.SetConfigFile(path)
	return load()
}

func load() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CAREWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + environment only
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig validates the configuration values
func ValidateConfig(cfg *Config) error {
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr cannot be empty")
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir cannot be empty")
	}
	if cfg.Storage.AlertRetention < 0 {
		return fmt.Errorf("storage.alert_retention must be >= 0, got %v", cfg.Storage.AlertRetention)
	}

	if cfg.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be positive, got %v", cfg.Monitor.CheckInterval)
	}
	if !monitor.IsPreset(cfg.Monitor.MaxInactivity) {
		return fmt.Errorf("monitor.max_inactivity must be one of %v, got %v", monitor.Presets(), cfg.Monitor.MaxInactivity)
	}

	if cfg.Webhook.MaxRetries < 0 {
		return fmt.Errorf("webhook.max_retries must be >= 0, got %d", cfg.Webhook.MaxRetries)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	validLevel := false
	for _, level := range validLevels {
		if cfg.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("logging.level must be one of: %v, got %s", validLevels, cfg.Logging.Level)
	}

	return nil
}

// applyDefaults sets default configuration values
func applyDefaults() {
	viper.SetDefault("server.listen_addr", "127.0.0.1:8750")

	defaultDataDir := "."
	if homeDir, err := os.UserHomeDir(); err == nil {
		defaultDataDir = filepath.Join(homeDir, ".config", "carewatch")
	}
	viper.SetDefault("storage.data_dir", defaultDataDir)
	viper.SetDefault("storage.alert_retention", "0")

	// Monitor defaults match the presentation surface's presets
	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.check_interval", "30m")
	viper.SetDefault("monitor.max_inactivity", "24h")

	viper.SetDefault("webhook.url", "")
	viper.SetDefault("webhook.max_retries", 3)
	viper.SetDefault("webhook.initial_backoff", "1s")
	viper.SetDefault("webhook.max_backoff", "30s")
	viper.SetDefault("webhook.timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.path", "")
}
