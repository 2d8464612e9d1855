package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver for sqlx
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver for database/sql

	"github.com/linerds/timetable-go/internal/config"
	"github.com/linerds/timetable-go/timetable/sqlengine"
)

var ErrOpeningStoreFailed = errors.New("opening timetable store failed")

// openStore connects with the configured driver and returns the store together with a function
// releasing its connections.
func (a *app) openStore(ctx context.Context) (sqlengine.EventStore, func(), error) {
	db := a.cfg.Database

	options := append([]sqlengine.Option{sqlengine.WithLogger(a.logger)}, a.storeTelemetryOptions()...)
	if db.TablePrefix != "" {
		options = append(options, sqlengine.WithTablePrefix(db.TablePrefix))
	}

	switch db.Driver {
	case config.DriverPGX:
		return openPGXStore(ctx, db, options)

	case config.DriverPostgres:
		sqlxDB, err := sqlx.ConnectContext(ctx, "postgres", db.DSN)
		if err != nil {
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}
		sqlxDB.SetMaxOpenConns(db.MaxConns)

		es, err := sqlengine.NewEventStoreFromSQLX(sqlxDB, options...)
		if err != nil {
			_ = sqlxDB.Close()
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}

		return es, func() { _ = sqlxDB.Close() }, nil

	case config.DriverSQLite:
		sqlDB, err := sql.Open("sqlite3", db.DSN)
		if err != nil {
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}
		sqlDB.SetMaxOpenConns(db.MaxConns)

		if err = sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}

		es, err := sqlengine.NewEventStoreFromSQLDB(sqlDB, append(options, sqlengine.WithDialect(sqlengine.DialectSQLite))...)
		if err != nil {
			_ = sqlDB.Close()
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}

		return es, func() { _ = sqlDB.Close() }, nil

	default:
		return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, fmt.Errorf("unsupported driver %q", db.Driver))
	}
}

func openPGXStore(ctx context.Context, db config.DatabaseConfig, options []sqlengine.Option) (sqlengine.EventStore, func(), error) {
	primary, err := newPGXPool(ctx, db.DSN, db.MaxConns)
	if err != nil {
		return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
	}

	if db.ReplicaDSN == "" {
		es, err := sqlengine.NewEventStoreFromPGXPool(primary, options...)
		if err != nil {
			primary.Close()
			return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
		}

		return es, primary.Close, nil
	}

	replica, err := newPGXPool(ctx, db.ReplicaDSN, db.MaxConns)
	if err != nil {
		primary.Close()
		return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
	}

	closeAll := func() {
		replica.Close()
		primary.Close()
	}

	es, err := sqlengine.NewEventStoreFromPGXPoolAndReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return sqlengine.EventStore{}, nil, errors.Join(ErrOpeningStoreFailed, err)
	}

	return es, closeAll, nil
}

func newPGXPool(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(maxConns) //nolint:gosec // validated to be positive and small

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
