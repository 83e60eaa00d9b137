package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hostel-allotment-backend/internal/allocation"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Allotment  AllotmentConfig  `mapstructure:"allotment"`
	Roster     RosterConfig     `mapstructure:"roster"`
	Push       PushConfig       `mapstructure:"push"`
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `mapstructure:"port"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"` // postgres | sqlite
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	LogLevel               string `mapstructure:"log_level"`
}

// RedisConfig enables the cross-instance run lock. An empty Addr keeps the lock in-process.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

// AllotmentConfig tunes the allotment run.
type AllotmentConfig struct {
	LayoutPath     string        `mapstructure:"layout_path"`
	Workers        int           `mapstructure:"workers"`
	FallbackPolicy string        `mapstructure:"fallback_policy"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
}

// RosterConfig points at the registration backend the applications are pulled from.
type RosterConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	URL       string            `mapstructure:"url"`
	Interval  time.Duration     `mapstructure:"interval"`
	PageSize  int               `mapstructure:"page_size"`
	HTTPProxy string            `mapstructure:"http_proxy"`
	Headers   map[string]string `mapstructure:"headers"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `mapstructure:"vapid_public_key"`
	PrivateKey string `mapstructure:"vapid_private_key"`
	Subject    string `mapstructure:"subject"`
	TTL        int    `mapstructure:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `mapstructure:"size"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads the configuration from path, overlaid with HOSTEL_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_sec", 10)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("server.cache_ttl_seconds", 300)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.lock_ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("allotment.layout_path", "./config/hostels.yaml")
	v.SetDefault("allotment.workers", 4)
	v.SetDefault("allotment.fallback_policy", "none")
	v.SetDefault("allotment.persist_timeout", "5s")
	v.SetDefault("allotment.run_timeout", "2m")

	v.SetDefault("roster.interval", "10m")
	v.SetDefault("roster.page_size", 100)

	v.SetDefault("push.ttl", 3600)
	v.SetDefault("worker_pool.size", 1)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOSTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if _, err := allocation.ParsePolicy(c.Allotment.FallbackPolicy); err != nil {
		return fmt.Errorf("allotment.fallback_policy: %w", err)
	}
	if c.Allotment.Workers <= 0 {
		c.Allotment.Workers = 1
	}
	if c.Allotment.PersistTimeout <= 0 {
		return fmt.Errorf("allotment.persist_timeout must be positive")
	}
	if c.Allotment.RunTimeout <= 0 {
		return fmt.Errorf("allotment.run_timeout must be positive")
	}
	// The lock is never renewed, so it must outlive the longest run.
	if c.Redis.Addr != "" && c.Redis.LockTTL <= c.Allotment.RunTimeout {
		return fmt.Errorf("redis.lock_ttl (%s) must exceed allotment.run_timeout (%s)", c.Redis.LockTTL, c.Allotment.RunTimeout)
	}
	if c.Roster.Enabled && c.Roster.URL == "" {
		return fmt.Errorf("roster.url is required when roster sync is enabled")
	}
	if c.Roster.PageSize <= 0 {
		c.Roster.PageSize = 100
	}
	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
	return nil
}
