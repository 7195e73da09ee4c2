package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=warn"`
	LogPretty bool   `env:"LOG_PRETTY, default=true"`

	API   APIConfig
	Store StoreConfig
	Redis RedisConfig
	Mongo MongoConfig
	Shell ShellConfig
}

type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:8000/api"`
	Timeout time.Duration `env:"API_TIMEOUT,  default=10s"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=file"`
	// Path of the session file; empty means the user config directory.
	Path      string `env:"STORE_PATH"`
	SQLiteDSN string `env:"SQLITE_DSN, default=rolegate.db"`
}

// RedisConfig is optional: an empty Addr keeps pending markers in memory.
type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,          default=0"`
	PendingTTL time.Duration `env:"REDIS_PENDING_TTL, default=1m"`
}

// MongoConfig is optional: an empty URI disables the roster snapshot.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=rolegate"`
}

type ShellConfig struct {
	Addr string `env:"SHELL_ADDR, default=127.0.0.1:7070"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: API_TIMEOUT must be positive")
	}
	return nil
}
