// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
)

// Data sources.
const (
	SourceSQLite = "sqlite"
	SourceSheets = "sheets"
	SourceMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Server    ServerConfig    `mapstructure:"server"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// DataConfig selects the record store.
type DataConfig struct {
	Source     string `mapstructure:"source"` // sqlite, sheets, memory
	SQLitePath string `mapstructure:"sqlite_path"`
}

// SheetsConfig holds the Apps Script backend settings.
type SheetsConfig struct {
	ScriptURL         string        `mapstructure:"script_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BreakerThreshold  int           `mapstructure:"breaker_threshold"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// AnalyticsConfig holds dashboard defaults.
type AnalyticsConfig struct {
	DefaultWindow string `mapstructure:"default_window"` // all, 7d, 30d, 90d, 365d
	ActiveOnly    bool   `mapstructure:"active_only"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trading-journal"
	}
	return filepath.Join(home, ".config", "trading-journal")
}

// Path returns the config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("data.source", SourceSQLite)
	v.SetDefault("data.sqlite_path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("sheets.timeout", "30s")
	v.SetDefault("sheets.max_attempts", 3)
	v.SetDefault("sheets.requests_per_second", 2.0)
	v.SetDefault("sheets.breaker_threshold", 5)
	v.SetDefault("sheets.breaker_cooldown", "30s")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("analytics.default_window", "all")
	v.SetDefault("analytics.active_only", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and then loaded.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_SHEETS_URL"); v != "" {
		cfg.Sheets.ScriptURL = v
	}
	if v := os.Getenv("JOURNAL_DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
	if v := os.Getenv("JOURNAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceSQLite:
		if c.Data.SQLitePath == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "data.sqlite_path is required for the sqlite source")
		}
	case SourceSheets:
		if c.Sheets.ScriptURL == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "sheets.script_url is required for the sheets source (or set JOURNAL_SHEETS_URL)")
		}
	case SourceMemory:
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid data source: %s (must be 'sqlite', 'sheets' or 'memory')", c.Data.Source)
	}

	if c.Sheets.MaxAttempts < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "sheets.max_attempts must be non-negative")
	}
	if c.Sheets.RequestsPerSecond < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "sheets.requests_per_second must be non-negative")
	}
	if c.Sheets.BreakerThreshold < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "sheets.breaker_threshold must be non-negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	kind, err := analytics.ParseWindow(c.Analytics.DefaultWindow)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "analytics.default_window: %v", err)
	}
	if kind == analytics.WindowCustom {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "analytics.default_window cannot be custom")
	}

	return nil
}

// LogConfig converts the logging section into a logging.LogConfig. Log
// files live under the config directory.
func (c *Config) LogConfig() logging.LogConfig {
	dir := c.Dir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    true,
		File:       c.Logging.File,
		FilePath:   filepath.Join(dir, "logs", "journal.log"),
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAgeDays,
	}
}

// DefaultWindow returns the configured dashboard window.
func (c *Config) DefaultWindow() analytics.Window {
	kind, err := analytics.ParseWindow(c.Analytics.DefaultWindow)
	if err != nil || kind == analytics.WindowCustom {
		kind = analytics.WindowAll
	}
	return analytics.Window{Kind: kind}
}
