package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/service_layer/pkg/logger"
)

// ServerConfig controls the admin HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST"`
	Port int    `yaml:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls the endpoint store. DSN, if set, is used as-is;
// otherwise ResolvedDSN builds a postgres connection string from the
// discrete Host/Port/User/Password/Name/SSLMode fields.
type DatabaseConfig struct {
	UseMemory bool   `yaml:"use_memory" env:"DATABASE_USE_MEMORY"`
	DSN       string `yaml:"dsn" env:"DATABASE_DSN"`
	Host      string `yaml:"host" env:"DATABASE_HOST"`
	Port      int    `yaml:"port" env:"DATABASE_PORT"`
	User      string `yaml:"user" env:"DATABASE_USER"`
	Password  string `yaml:"password" env:"DATABASE_PASSWORD"`
	Name      string `yaml:"name" env:"DATABASE_NAME"`
	SSLMode   string `yaml:"sslmode" env:"DATABASE_SSLMODE"`
}

// ResolvedDSN returns DSN if it is set directly, otherwise a postgres
// connection string built from the discrete connection fields.
func (d DatabaseConfig) ResolvedDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig controls the selection cache.
type RedisConfig struct {
	UseMemory bool   `yaml:"use_memory" env:"REDIS_USE_MEMORY"`
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
}

// RPCConfig mirrors the rpcselect.Config knobs in their external,
// operator-facing form (seconds/minutes rather than time.Duration).
type RPCConfig struct {
	CacheDurationSeconds    int    `yaml:"cache_duration_seconds" env:"RPC_CACHE_DURATION_SECONDS"`
	MaxConsecutiveErrors    int    `yaml:"max_consecutive_errors" env:"RPC_MAX_CONSECUTIVE_ERRORS"`
	RequestTimeoutSeconds   int    `yaml:"request_timeout_seconds" env:"RPC_REQUEST_TIMEOUT_SECONDS"`
	AllowDisabledFallback   bool   `yaml:"allow_disabled_fallback" env:"RPC_ALLOW_DISABLED_FALLBACK"`
	HealthCheckIntervalMins int    `yaml:"health_check_interval_minutes" env:"RPC_HEALTH_CHECK_INTERVAL_MINUTES"`
	EnableHealthChecks      bool   `yaml:"enable_health_checks" env:"RPC_ENABLE_HEALTH_CHECKS"`
	BaseBackoffMinutes      int    `yaml:"base_backoff_minutes" env:"RPC_BASE_BACKOFF_MINUTES"`
	MaxBackoffMinutes       int    `yaml:"max_backoff_minutes" env:"RPC_MAX_BACKOFF_MINUTES"`
	CacheKeyPrefix          string `yaml:"cache_key_prefix" env:"RPC_CACHE_KEY_PREFIX"`
}

// Config is the top-level configuration for the rpcselectd daemon.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database DatabaseConfig       `yaml:"database"`
	Redis    RedisConfig          `yaml:"redis"`
	Logging  logger.LoggingConfig `yaml:"logging"`
	RPC      RPCConfig            `yaml:"rpc"`
}

// defaultConfig returns the daemon's defaults, matching the rpcselect
// package's own DefaultConfig in external (seconds/minutes) units.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8090},
		Database: DatabaseConfig{
			UseMemory: true,
			Port:      5432,
			SSLMode:   "disable",
		},
		Redis: RedisConfig{
			UseMemory: true,
			Addr:      "localhost:6379",
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		RPC: RPCConfig{
			CacheDurationSeconds:    300,
			MaxConsecutiveErrors:    5,
			RequestTimeoutSeconds:   30,
			AllowDisabledFallback:   false,
			HealthCheckIntervalMins: 5,
			EnableHealthChecks:      true,
			BaseBackoffMinutes:      1,
			MaxBackoffMinutes:       30,
		},
	}
}

// loadConfig loads configuration from an optional YAML file (CONFIG_FILE,
// defaulting to configs/rpcselectd.yaml) and then environment variables,
// the latter taking precedence.
func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/rpcselectd.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	applyDatabaseURLOverride(cfg)

	return cfg, nil
}

// applyDatabaseURLOverride lets DATABASE_URL override any file- or
// field-based DSN, matching the convention used elsewhere in this
// codebase for deployments that hand out a single connection string.
func applyDatabaseURLOverride(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}
}
