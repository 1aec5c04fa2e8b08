package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend types
const (
	StorageFile   = "file"
	StorageBolt   = "bolt"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config holds the complete application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Server   ServerConfig   `mapstructure:"server"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"` // Archive file (file) or database (bolt, sqlite)
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	Key          string `mapstructure:"key"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackingConfig defines statistics settings
type TrackingConfig struct {
	RecentDays   int    `mapstructure:"recent_days"`
	RolloverTime string `mapstructure:"rollover_time"` // HH:MM, local time
}

// ServerConfig defines the HTTP API and metrics listeners
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// NotifyConfig defines desktop alert settings
type NotifyConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	MinTracked     string  `mapstructure:"min_tracked"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("POSTURR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultConfigPath is the per-user configuration file location.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "posturr.yaml"
	}
	return filepath.Join(dir, "Posturr", "config.yaml")
}

// DefaultStoragePath is the archive location inside the user's
// application-private configuration directory.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "Posturr", "analytics.json")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", StorageFile)
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key", "posturr:daily_stats")
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Tracking defaults
	v.SetDefault("tracking.recent_days", 7)
	v.SetDefault("tracking.rollover_time", "00:00")

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.api_port", 8737)
	v.SetDefault("server.metrics_port", 9737)

	// Notify defaults
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.score_threshold", 70.0)
	v.SetDefault("notify.min_tracked", "10m")
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = StorageFile
	case StorageFile, StorageBolt, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	if cfg.Storage.Type != StorageRedis && cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	if cfg.Tracking.RecentDays < 1 {
		return fmt.Errorf("tracking.recent_days must be at least 1, got %d", cfg.Tracking.RecentDays)
	}
	if _, err := time.Parse("15:04", cfg.Tracking.RolloverTime); err != nil {
		return fmt.Errorf("invalid rollover time %q (expected HH:MM)", cfg.Tracking.RolloverTime)
	}

	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Notify.ScoreThreshold < 0 || cfg.Notify.ScoreThreshold > 100 {
		return fmt.Errorf("notify.score_threshold must be within [0, 100], got %v", cfg.Notify.ScoreThreshold)
	}
	if _, err := time.ParseDuration(cfg.Notify.MinTracked); err != nil {
		return fmt.Errorf("invalid notify.min_tracked: %w", err)
	}

	return nil
}
