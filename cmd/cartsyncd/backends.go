package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/docstore/firestore"
	"github.com/angelmondragon/cartsync/internal/docstore/gormstore"
	"github.com/angelmondragon/cartsync/internal/docstore/memory"
	"github.com/angelmondragon/cartsync/internal/docstore/mongostore"
	"github.com/angelmondragon/cartsync/internal/keylock"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/migrate"
	"github.com/angelmondragon/cartsync/pkg/redis"
)

// resources collects what main has to ping and close.
type resources struct {
	pingers map[string]controllers.Pinger
	closers []func(context.Context) error
}

func (r *resources) add(name string, pinger controllers.Pinger, closer func(context.Context) error) {
	if pinger != nil {
		r.pingers[name] = pinger
	}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, res *resources) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logg.Warn(ctx, "using in-memory document store; data is lost on exit")
		return memory.New(), nil

	case config.StoreBackendPostgres, config.StoreBackendSQLite:
		driver := db.DriverPostgres
		if cfg.Store.Backend == config.StoreBackendSQLite {
			driver = db.DriverSQLite
		}
		client, err := db.New(ctx, driver, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		res.add("database", client, func(context.Context) error { return client.Close() })
		if err := migrate.MaybeRun(ctx, cfg, driver, logg, client); err != nil {
			return nil, err
		}
		return gormstore.New(client, "")

	case config.StoreBackendFirestore:
		store, err := firestore.Connect(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		res.add("firestore", nil, func(context.Context) error { return store.Close() })
		return store, nil

	case config.StoreBackendMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		res.add("mongo", store, store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

func openLocker(ctx context.Context, cfg *config.Config, logg *logger.Logger, res *resources) (keylock.Locker, error) {
	if cfg.Sync.LockBackend != config.LockBackendRedis {
		return keylock.NewLocal(), nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, err
	}
	res.add("redis", client, func(context.Context) error { return client.Close() })
	return keylock.NewRedis(keylock.RedisParams{
		Client:        client,
		TTL:           cfg.Sync.LockTTL,
		RetryInterval: cfg.Sync.LockRetryInterval,
		Logger:        logg,
	})
}
