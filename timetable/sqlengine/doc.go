// Package sqlengine provides the SQL implementation of the timetable cache for PostgreSQL and SQLite.
//
// Filters are compiled with goqu into one SELECT per filter. Multi-valued facets (groups, teachers)
// use relational division: the membership table is joined, restricted to the listed ids and grouped
// per event with HAVING COUNT(DISTINCT member) equal to the number of listed ids. Include filters are
// combined with UNION, exclude filters are subtracted from that union.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX), SQLite through database/sql
//   - Pure, dialect-aware Compiler usable without a database
//   - Transactional timetable saves replacing events and their memberships
//   - Optional replica reads via timetable.WithEventualConsistency
//   - Configurable table prefix, logging, metrics and tracing
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := sqlengine.NewEventStoreFromPGXPool(db, sqlengine.WithLogger(slog.Default()))
//	_ = store.Migrate(ctx)
//
//	// SQLite
//	sqliteDB, _ := sql.Open("sqlite3", "timetable.db?_journal_mode=WAL&_foreign_keys=on")
//	store, _ = sqlengine.NewEventStoreFromSQLDB(sqliteDB, sqlengine.WithDialect(sqlengine.DialectSQLite))
//
//	ids, _ := store.Resolve(ctx, include, exclude)
//	events, _ := store.Events(ctx, ids)
package sqlengine
