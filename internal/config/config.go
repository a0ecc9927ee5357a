package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	ExecutorURL    string `mapstructure:"executor_url"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	DBPath         string `mapstructure:"db_path"`
	NotifyTickMS   int    `mapstructure:"notify_tick_ms"`
	WatchSettleMS  int    `mapstructure:"watch_settle_ms"`
}

var Default = Config{
	ExecutorURL:    "http://localhost:8750",
	RequestTimeout: 15,
	DBPath:         "batchup.db",
	NotifyTickMS:   16,
	WatchSettleMS:  500,
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".batchup")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("executor_url", Default.ExecutorURL)
	viper.SetDefault("request_timeout", Default.RequestTimeout)
	viper.SetDefault("db_path", Default.DBPath)
	viper.SetDefault("notify_tick_ms", Default.NotifyTickMS)
	viper.SetDefault("watch_settle_ms", Default.WatchSettleMS)

	viper.SetEnvPrefix("BATCHUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ok := errors.As(err, &notFound); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
