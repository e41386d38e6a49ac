// Package config loads the process configuration from config files and
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	DB      DBConfig      `mapstructure:"db"`
	Scylla  ScyllaConfig  `mapstructure:"scylla"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr           string  `mapstructure:"addr" validate:"required"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// ScyllaConfig selects the wide-column backend. With no hosts the
// server falls back to the in-memory store, which is only meant for
// development.
type ScyllaConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Keyspace    string        `mapstructure:"keyspace"`
	LocalDC     string        `mapstructure:"local_dc"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Consistency string        `mapstructure:"consistency"`
}

type FeedConfig struct {
	QueryLimit    int `mapstructure:"query_limit" validate:"gt=0"`
	MaxPartitions int `mapstructure:"max_partitions" validate:"gt=0"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Load reads config.yaml from the working directory or ./config,
// applies COLUMNFEED_* environment overrides, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("columnfeed")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("db.dsn", "host=localhost user=postgres password=postgres dbname=columnfeed port=5432 sslmode=disable")
	v.SetDefault("scylla.keyspace", "columnfeed")
	v.SetDefault("scylla.timeout", 5*time.Second)
	v.SetDefault("scylla.consistency", "local_quorum")
	v.SetDefault("feed.query_limit", 1000)
	v.SetDefault("feed.max_partitions", 14)
	v.SetDefault("cache.ttl", time.Hour)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
