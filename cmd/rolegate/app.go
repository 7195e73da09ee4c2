package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/api/handler"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/core/service"
	"github.com/rolegate/portal-client/internal/infrastructure/config"
	mongodb "github.com/rolegate/portal-client/internal/infrastructure/db/mongo"
	redisdb "github.com/rolegate/portal-client/internal/infrastructure/db/redis"
	"github.com/rolegate/portal-client/internal/infrastructure/gateway"
	"github.com/rolegate/portal-client/internal/infrastructure/store"
)

// app holds the wired components for one process.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	gateway *gateway.Client
	session *service.SessionController
	access  *service.AccessController
	roster  *service.RosterService
	checks  map[string]handler.Check
	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, checks: make(map[string]handler.Check)}

	creds, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var pending ports.PendingRegistry = service.NewMemoryPending()
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		pending = redisdb.NewPendingRegistry(rdb, cfg.Redis.PendingTTL)
	}

	var snapshot ports.RosterSnapshot
	if cfg.Mongo.URI != "" {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		snapshot = mongodb.NewRosterSnapshot(db)
	}

	a.gateway = gateway.New(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, creds, log.With().Str("component", "gateway").Logger())
	a.checks["backend"] = func(ctx context.Context) error {
		_, err := a.gateway.Info(ctx)
		return err
	}

	a.session = service.NewSessionController(creds, a.gateway, pending, log.With().Str("component", "session").Logger())
	a.access = service.NewAccessController(a.session, log.With().Str("component", "access").Logger())
	a.roster = service.NewRosterService(a.gateway, a.session, a.access, pending, snapshot, log.With().Str("component", "roster").Logger())
	return a, nil
}

func (a *app) openStore(ctx context.Context) (ports.CredentialStore, error) {
	storeLog := a.log.With().Str("component", "store").Logger()
	switch a.cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		db, err := store.OpenSQLite(ctx, a.cfg.Store.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		return store.NewSQLiteStore(db, storeLog), nil
	case config.StoreFile:
		path := a.cfg.Store.Path
		if path == "" {
			path = store.DefaultPath()
		}
		return store.NewFileStore(path, storeLog), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
