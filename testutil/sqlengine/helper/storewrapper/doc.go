// Package storewrapper hands tests a migrated sqlengine.EventStore on the adapter selected by ADAPTER_TYPE:
// "sqlite" (default), "pgx.pool", "sql.db" or "sqlx.db".
package storewrapper
