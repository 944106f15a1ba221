// Package config loads the platform's runtime configuration: database,
// cache, auth secret, and server/log settings (spec.md §6). Values come
// from environment variables with an optional YAML file overlay,
// grounded on the teacher's internal/config package use of viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every externally-tunable setting the scheduler and API
// server need at startup.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	Port        int    `mapstructure:"port"`

	JWTExpirySeconds int `mapstructure:"jwt_expiry_seconds"`
	BcryptCost       int `mapstructure:"bcrypt_cost"`

	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

// LogConfig describes the structured logger's rotation settings
// (lumberjack semantics, as used by the teacher's internal/logger).
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	JSON       bool   `mapstructure:"json"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// EngineConfig carries the Script Engine's defaults (spec §4.3),
// overridable from the environment for operational tuning.
type EngineConfig struct {
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MemoryLimitBytes  uint64 `mapstructure:"memory_limit_bytes"`
	StackSizeBytes    uint64 `mapstructure:"stack_size_bytes"`
	SecurityPreset    string `mapstructure:"security_preset"`
}

// defaults returns the built-in values: port 8080, a 86400-second JWT
// lifetime, Redis at redis://localhost:6379, and a local SQLite database
// file (monitor.db) when no DATABASE_URL is given.
func defaults() Config {
	return Config{
		DatabaseURL:      "sqlite://monitor.db",
		RedisURL:         "redis://localhost:6379",
		JWTSecret:        "",
		Port:             8080,
		JWTExpirySeconds: 86400,
		BcryptCost:       10,
		Log: LogConfig{
			Dir:        "logs",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		Engine: EngineConfig{
			TimeoutSeconds:   30,
			MemoryLimitBytes: 8 * 1024 * 1024,
			StackSizeBytes:   512 * 1024,
			SecurityPreset:   "default",
		},
	}
}

// Load reads configuration from the environment (DATABASE_URL, REDIS_URL,
// JWT_SECRET, PORT, and the MONITOR_-prefixed nested keys), optionally
// overlaid with a YAML file at configPath. Environment variables take
// precedence over the file, which takes precedence over the defaults.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetEnvPrefix("monitor")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Top-level names read without the MONITOR_ prefix, matching spec §6.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("port", "PORT")

	// Unmarshal only sees keys viper knows about, so the nested keys are
	// bound explicitly to their MONITOR_-prefixed names (e.g. MONITOR_LOG_LEVEL).
	for _, key := range []string{
		"jwt_expiry_seconds", "bcrypt_cost",
		"log.dir", "log.level", "log.max_size_mb", "log.max_backups", "log.max_age_days", "log.compress", "log.json",
		"metrics.enabled", "metrics.listen",
		"engine.timeout_seconds", "engine.memory_limit_bytes", "engine.stack_size_bytes", "engine.security_preset",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaults().DatabaseURL
	}
	return &cfg, nil
}

// JWTExpiry returns the JWT token lifetime as a time.Duration.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpirySeconds) * time.Second
}

// EngineTimeout returns the script engine's wall-clock ceiling.
func (c *EngineConfig) EngineTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
