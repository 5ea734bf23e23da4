package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Levels   LevelsConfig   `mapstructure:"levels"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr      string          `mapstructure:"addr" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles the action endpoints. Requests of 0 disables limiting.
type RateLimitConfig struct {
	Requests float64 `mapstructure:"requests" validate:"gte=0"`
	Burst    int     `mapstructure:"burst" validate:"gte=0"`
}

// LevelsConfig points at the YAML level catalog.
type LevelsConfig struct {
	File string `mapstructure:"file" validate:"required"`
}

// DatabaseConfig selects the progress store backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	Path string `mapstructure:"path"` // sqlite file or ":memory:"
	URL  string `mapstructure:"url" validate:"required_if=Type postgres"`
}

// SessionConfig controls idle session expiry.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig loads configuration with priority:
// 1. Environment variables (FAB_ prefix)
// 2. Config file (fabline.yaml)
// 3. Defaults
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fabline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("FAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.type", "postgres")
		v.Set("database.url", dbURL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// AutomaticEnv only resolves keys viper already knows about.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.addr",
		"server.rate_limit.requests",
		"server.rate_limit.burst",
		"levels.file",
		"database.type",
		"database.path",
		"database.url",
		"session.ttl",
		"session.sweep_interval",
		"metrics.enabled",
		"metrics.path",
	} {
		_ = v.BindEnv(key)
	}
}
