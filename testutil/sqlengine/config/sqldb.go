package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite3"
)

// PostgresSQLDBConfig opens and pings a *sql.DB through lib/pq.
func PostgresSQLDBConfig(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	configurePostgresPool(db)

	return db, ping(db)
}

// PostgresSQLXConfig opens and pings a *sqlx.DB through lib/pq.
func PostgresSQLXConfig(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	configurePostgresPool(db.DB)

	return db, ping(db.DB)
}

// SQLiteSQLDBConfig opens and pings a go-sqlite3 database.
// The pool is kept small, SQLite serializes writers anyway.
func SQLiteSQLDBConfig(dsn string) (*sql.DB, error) {
	const defaultMaxOpenConnections = 5
	const defaultMaxIdleConnections = 1
	const defaultMaxConnIdleTime = time.Minute

	db, err := sql.Open(driverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	return db, ping(db)
}

func configurePostgresPool(db *sql.DB) {
	const defaultMaxOpenConnections = 10
	const defaultMaxIdleConnections = 2
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	return nil
}
