package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Query      QueryConfig
	Ranking    RankingConfig
	Stats      StatsConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MongoConfig points at the document store holding one collection per chip.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueryConfig tunes the measurement query core.
type QueryConfig struct {
	DefaultWindowMs     int64 `mapstructure:"default_window_ms"`
	MaxPerRequestFanout int   `mapstructure:"max_per_request_fanout"`
	StoreTimeoutMs      int64 `mapstructure:"store_timeout_ms"`
}

type RankingConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	DefaultItems int           `mapstructure:"default_items"`
}

type StatsConfig struct {
	ActiveWindow time.Duration `mapstructure:"active_window"`
}

type MonitoringConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// DefaultWindow returns the fallback query window as a duration.
func (q QueryConfig) DefaultWindow() time.Duration {
	return time.Duration(q.DefaultWindowMs) * time.Millisecond
}

// StoreTimeout returns the per-scan timeout, zero when scans only inherit the caller deadline.
func (q QueryConfig) StoreTimeout() time.Duration {
	return time.Duration(q.StoreTimeoutMs) * time.Millisecond
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PMAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Load config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "particulate_matter")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.mongo.uri", "")
	v.SetDefault("database.mongo.database", "data")
	v.SetDefault("database.mongo.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Query defaults
	v.SetDefault("query.default_window_ms", int64(86_400_000)) // 24h
	v.SetDefault("query.max_per_request_fanout", 0)
	v.SetDefault("query.store_timeout_ms", 0)

	// Ranking and stats defaults
	v.SetDefault("ranking.cache_ttl", "1m")
	v.SetDefault("ranking.default_items", 10)
	v.SetDefault("stats.active_window", "24h")

	// Monitoring defaults
	v.SetDefault("monitoring.log_level", "info")
	v.SetDefault("monitoring.metrics_enabled", true)
}

func validateConfig(config *Config) error {
	if config.Database.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if config.Database.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if config.Query.DefaultWindowMs <= 0 {
		return fmt.Errorf("query default window must be positive")
	}
	if config.Query.MaxPerRequestFanout < 0 {
		return fmt.Errorf("query max per request fanout must not be negative")
	}
	if config.Query.StoreTimeoutMs < 0 {
		return fmt.Errorf("query store timeout must not be negative")
	}
	if config.Ranking.DefaultItems < 1 {
		return fmt.Errorf("ranking default items must be at least 1")
	}
	return nil
}
