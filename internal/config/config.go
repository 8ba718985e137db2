package config

import (
	"time"

	"github.com/quarryhq/quarry/internal/provision"
)

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Store     StoreConfig      `yaml:"store"`
	Cache     CacheConfig      `yaml:"cache"`
	Provision provision.Config `yaml:"provision"`
	Log       LogConfig        `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// StoreConfig holds paging and scroll settings for the backend gateway.
type StoreConfig struct {
	DefaultPageSize int           `yaml:"default_page_size" env:"STORE_DEFAULT_PAGE_SIZE" env-default:"20"`
	MaxPageSize     int           `yaml:"max_page_size"     env:"STORE_MAX_PAGE_SIZE"     env-default:"1000"`
	ScrollTTL       time.Duration `yaml:"scroll_ttl"        env:"STORE_SCROLL_TTL"        env-default:"1m"`
}

// CacheConfig holds entity-cache settings shared by every entity kind.
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"              env:"CACHE_TTL"              env-default:"1m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" env-default:"2m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
