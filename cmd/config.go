package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ledgertools/capgains"
	"github.com/ledgertools/capgains/logging"
)

// appConfig holds the application configuration, loaded from config.toml in
// the config directory with environment overrides.
type appConfig struct {
	DBPath   string         `mapstructure:"db_path"`
	Currency string         `mapstructure:"currency"`
	Matching matchingConfig `mapstructure:"matching"`
	Logging  logConfig      `mapstructure:"logging"`
}

// matchingConfig holds the matching engine parameters.
type matchingConfig struct {
	Policy                string `mapstructure:"policy"`
	WashSaleWindowDays    int    `mapstructure:"wash_sale_window_days"`
	LongTermThresholdDays int    `mapstructure:"long_term_threshold_days"`
}

// logConfig holds the logging parameters.
type logConfig struct {
	Level    string `mapstructure:"level"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// defaultConfigDir returns the per-user configuration directory.
func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "capgains")
}

// loadConfig reads config.toml from configDir, filling defaults for anything
// unset. A missing file is not an error: defaults apply.
func loadConfig(configDir string) (*appConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	defaults := capgains.DefaultConfig()
	v.SetDefault("db_path", filepath.Join(configDir, "capgains.db"))
	v.SetDefault("currency", "USD")
	v.SetDefault("matching.policy", defaults.Policy.String())
	v.SetDefault("matching.wash_sale_window_days", defaults.WashSaleWindowDays)
	v.SetDefault("matching.long_term_threshold_days", defaults.LongTermThresholdDays)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "capgains.log"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &appConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	if env := os.Getenv("CAPGAINS_DB"); env != "" {
		cfg.DBPath = env
	}
	if env := os.Getenv("CAPGAINS_CURRENCY"); env != "" {
		cfg.Currency = env
	}
	return cfg, nil
}

// engineConfig converts the file representation to the engine configuration.
func (c *appConfig) engineConfig() (capgains.Config, error) {
	policy, err := capgains.ParseMatchingPolicy(c.Matching.Policy)
	if err != nil {
		return capgains.Config{}, err
	}
	if c.Matching.WashSaleWindowDays < 0 {
		return capgains.Config{}, fmt.Errorf("wash_sale_window_days must not be negative, got %d", c.Matching.WashSaleWindowDays)
	}
	if c.Matching.LongTermThresholdDays <= 0 {
		return capgains.Config{}, fmt.Errorf("long_term_threshold_days must be positive, got %d", c.Matching.LongTermThresholdDays)
	}
	return capgains.Config{
		Policy:                policy,
		WashSaleWindowDays:    c.Matching.WashSaleWindowDays,
		LongTermThresholdDays: c.Matching.LongTermThresholdDays,
	}, nil
}

// logConfig converts the file representation to the logging configuration.
func (c *appConfig) loggingConfig() logging.LogConfig {
	cfg := logging.DefaultLogConfig()
	cfg.Level = c.Logging.Level
	cfg.File = c.Logging.File
	cfg.FilePath = c.Logging.FilePath
	return cfg
}
