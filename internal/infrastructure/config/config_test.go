package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Store.Driver != StoreFile || cfg.Store.Path != "" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.PendingTTL != time.Minute {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
	if cfg.Mongo.URI != "" || cfg.Mongo.Database != "rolegate" {
		t.Fatalf("mongo = %+v", cfg.Mongo)
	}
	if cfg.Shell.Addr != "127.0.0.1:7070" {
		t.Fatalf("shell = %+v", cfg.Shell)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("log = %q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"API_BASE_URL":      "https://accounts.example.com/api",
		"API_TIMEOUT":       "3s",
		"STORE_DRIVER":      "sqlite",
		"SQLITE_DSN":        "/tmp/s.db",
		"REDIS_ADDR":        "redis:6379",
		"REDIS_DB":          "2",
		"REDIS_PENDING_TTL": "30s",
		"MONGO_URI":         "mongodb://mongo:27017",
		"LOG_PRETTY":        "false",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://accounts.example.com/api" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("api = %+v", cfg.API)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.SQLiteDSN != "/tmp/s.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 || cfg.Redis.PendingTTL != 30*time.Second {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
	if cfg.Mongo.URI != "mongodb://mongo:27017" {
		t.Fatalf("mongo = %+v", cfg.Mongo)
	}
	if cfg.LogPretty {
		t.Fatalf("expected LOG_PRETTY=false")
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver": {"STORE_DRIVER": "s3"},
		"zero timeout":   {"API_TIMEOUT": "0s"},
		"bad duration":   {"API_TIMEOUT": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadWith(context.Background(), envconfig.MapLookuper(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
