package config

import (
	"os"
	"path/filepath"
)

// PostgresDSNEnv names the environment variable holding the DSN of the Postgres test database.
// Postgres backed tests are skipped when it is unset.
const PostgresDSNEnv = "TIMETABLE_TEST_POSTGRES_DSN"

// PostgresReplicaDSNEnv optionally points at a streaming replica of the test database.
const PostgresReplicaDSNEnv = "TIMETABLE_TEST_POSTGRES_REPLICA_DSN"

// PostgresSingleDSN returns the DSN for the Postgres test database, empty if not configured.
func PostgresSingleDSN() string {
	return os.Getenv(PostgresDSNEnv)
}

// PostgresReplicaDSN returns the DSN for the replica test database, empty if not configured.
func PostgresReplicaDSN() string {
	return os.Getenv(PostgresReplicaDSNEnv)
}

// SQLiteDSN returns a go-sqlite3 DSN for a database file inside dir, with WAL and foreign keys enabled.
func SQLiteDSN(dir string) string {
	return "file:" + filepath.Join(dir, "timetable.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}
