// Package adapters provides database adapter implementations for the SQL event store.
//
// Three connection types are supported: pgxpool.Pool, sql.DB and sqlx.DB. The sql.DB adapter
// works with any database/sql driver, which is how SQLite is served. All adapters expose the
// same DBAdapter interface, including transactions, so the store never sees driver specifics.
package adapters
