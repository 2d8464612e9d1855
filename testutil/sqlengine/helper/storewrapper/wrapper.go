package storewrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/testutil/sqlengine/config"
	"github.com/linerds/timetable-go/timetable/sqlengine"
)

// Adapter type constants, selected with the ADAPTER_TYPE environment variable.
const (
	TypeSQLite  = "sqlite"
	TypePGXPool = "pgx.pool"
	TypeSQLDB   = "sql.db"
	TypeSQLXDB  = "sqlx.db"
)

const adapterTypeEnv = "ADAPTER_TYPE"

// Tables created by Migrate, dropped again after Postgres tests.
var tables = []string{
	"event_groups", "event_teachers", "events", "study_groups", "teachers", "subjects", "auditoriums",
}

// Wrapper gives tests a migrated EventStore on one of the supported adapters.
type Wrapper interface {
	EventStore() sqlengine.EventStore
	AdapterType() string
}

type wrapper struct {
	es          sqlengine.EventStore
	adapterType string
}

func (w wrapper) EventStore() sqlengine.EventStore {
	return w.es
}

func (w wrapper) AdapterType() string {
	return w.adapterType
}

// AdapterTypeFromEnv returns the adapter selected for this test run, SQLite by default.
func AdapterTypeFromEnv() string {
	adapterType := strings.ToLower(os.Getenv(adapterTypeEnv))
	if adapterType == "" {
		return TypeSQLite
	}

	return adapterType
}

// CreateWrapperWithTestConfig opens a fresh database for the adapter selected by ADAPTER_TYPE and migrates it.
//
// SQLite uses a new file in t.TempDir(). The Postgres adapters need TIMETABLE_TEST_POSTGRES_DSN and skip
// the test otherwise. Each Postgres wrapper uses its own table prefix so tests never share rows.
// Everything is closed and dropped through t.Cleanup.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqlengine.Option) Wrapper {
	t.Helper()

	adapterType := AdapterTypeFromEnv()

	if adapterType == TypeSQLite {
		return createSQLiteWrapper(t, options)
	}

	dsn := config.PostgresSingleDSN()
	if dsn == "" {
		t.Skipf("%s is not set, skipping %s adapter test", config.PostgresDSNEnv, adapterType)
	}

	prefix := "t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "_"
	options = append([]sqlengine.Option{sqlengine.WithTablePrefix(prefix)}, options...)

	var es sqlengine.EventStore
	var exec func(ctx context.Context, query string) error
	var closeDB func()
	var err error

	switch adapterType {
	case TypePGXPool:
		poolConfig, configErr := config.PostgresPGXPoolConfig(dsn)
		require.NoError(t, configErr, "error parsing pgx pool config")

		pool, poolErr := pgxpool.NewWithConfig(context.Background(), poolConfig)
		require.NoError(t, poolErr, "error connecting to DB pool in test setup")

		es, err = sqlengine.NewEventStoreFromPGXPool(pool, options...)
		exec = func(ctx context.Context, query string) error {
			_, execErr := pool.Exec(ctx, query)
			return execErr
		}
		closeDB = pool.Close

	case TypeSQLDB:
		db, dbErr := config.PostgresSQLDBConfig(dsn)
		require.NoError(t, dbErr, "error connecting to DB in test setup")

		es, err = sqlengine.NewEventStoreFromSQLDB(db, options...)
		exec = sqlExec(db)
		closeDB = func() { _ = db.Close() }

	case TypeSQLXDB:
		db, dbErr := config.PostgresSQLXConfig(dsn)
		require.NoError(t, dbErr, "error connecting to DB in test setup")

		es, err = sqlengine.NewEventStoreFromSQLX(db, options...)
		exec = sqlExec(db.DB)
		closeDB = func() { _ = db.Close() }

	default:
		t.Fatalf("unsupported adapter type from env: %s", adapterType)
	}

	t.Cleanup(func() {
		for _, table := range tables {
			_ = exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s%s CASCADE", prefix, table))
		}

		closeDB()
	})

	require.NoError(t, err, "error creating event store")
	require.NoError(t, es.Migrate(context.Background()), "error migrating schema")

	return wrapper{es: es, adapterType: adapterType}
}

func createSQLiteWrapper(t testing.TB, options []sqlengine.Option) Wrapper {
	db, err := config.SQLiteSQLDBConfig(config.SQLiteDSN(t.TempDir()))
	require.NoError(t, err, "error opening sqlite database")
	t.Cleanup(func() { _ = db.Close() })

	options = append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite)}, options...)

	es, err := sqlengine.NewEventStoreFromSQLDB(db, options...)
	require.NoError(t, err, "error creating event store")
	require.NoError(t, es.Migrate(context.Background()), "error migrating schema")

	return wrapper{es: es, adapterType: TypeSQLite}
}

func sqlExec(db *sql.DB) func(ctx context.Context, query string) error {
	return func(ctx context.Context, query string) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
