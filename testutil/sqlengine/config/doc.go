// Package config provides database connections for tests: a throwaway SQLite file per test
// and, when TIMETABLE_TEST_POSTGRES_DSN is set, Postgres connections via pgx, database/sql and sqlx.
package config
