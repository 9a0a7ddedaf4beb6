package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arzan03/LibraryHub/internal/config"
	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/memstore"
	"github.com/arzan03/LibraryHub/internal/store/mongostore"
	"github.com/arzan03/LibraryHub/internal/store/sqlstore"
)

// openStore connects to the backend selected by DB_DRIVER.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	pool := db.PoolConfig{
		URL:            cfg.DB.URL,
		MaxConns:       cfg.DB.PoolMax,
		MinConns:       cfg.DB.PoolMin,
		IdleTimeout:    cfg.DB.IdleTimeout,
		ConnectTimeout: cfg.DB.ConnectTimeout,
	}

	switch cfg.DB.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), nil

	case config.DriverSQLite:
		adapter, err := db.OpenSQLite(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to sqlite", "path", cfg.DB.SQLitePath)
		return sqlstore.New(adapter, sqlstore.WithLogger(logger)), nil

	case config.DriverPostgres:
		var adapter db.Adapter
		var err error
		if cfg.DB.Adapter == config.AdapterSQLX {
			adapter, err = db.OpenPostgresSQLX(ctx, pool)
		} else {
			adapter, err = db.OpenPGX(ctx, pool)
		}
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres", "adapter", cfg.DB.Adapter, "pool_max", cfg.DB.PoolMax)
		return sqlstore.New(adapter, sqlstore.WithLogger(logger)), nil

	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI, cfg.DB.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to mongo", "database", cfg.Mongo.Database)
		return mongostore.New(client, cfg.Mongo.Database, mongostore.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", cfg.DB.Driver)
}
