package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/akvo/agriconnect-sub001/internal/shared/config"
)

type Config struct {
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	API      sharedConfig.APIConfig      `mapstructure:"api"`
	Realtime sharedConfig.RealtimeConfig `mapstructure:"realtime"`
	Sync     sharedConfig.SyncConfig     `mapstructure:"sync"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("AGRICONNECT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover the full surface.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults() {
	viper.SetDefault("database.path", "agriconnect.db")
	viper.SetDefault("database.busy_timeout", 5000)

	viper.SetDefault("api.base_url", "https://api.agriconnect.akvo.org")
	viper.SetDefault("api.timeout_seconds", 15)

	viper.SetDefault("realtime.url", "wss://api.agriconnect.akvo.org/ws")
	viper.SetDefault("realtime.handshake_timeout_seconds", 10)
	viper.SetDefault("realtime.backoff_base_seconds", 1)
	viper.SetDefault("realtime.backoff_cap_seconds", 30)
	viper.SetDefault("realtime.max_reconnect_attempts", 10)
	viper.SetDefault("realtime.ack_timeout_seconds", 5)
	viper.SetDefault("realtime.send_queue_cap", 256)

	viper.SetDefault("sync.ticket_page_size", 20)
	viper.SetDefault("sync.message_page_size", 50)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")
}
