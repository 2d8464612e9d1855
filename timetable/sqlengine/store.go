package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/linerds/timetable-go/timetable"
	"github.com/linerds/timetable-go/timetable/sqlengine/internal/adapters"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildWriteQueryFailed  = "failed to build write query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgIterateRowsFailed      = "failed while iterating database rows"
	logMsgMigrationFailed        = "schema migration failed"
	logMsgSaveFailed             = "saving timetable failed"
	logMsgSaveReferencesFailed   = "saving references failed"
	logMsgResolveCompleted       = "resolve completed"
	logMsgResolveShortCircuited  = "resolve short-circuited, no include filter left"
	logMsgTimetableSaved         = "timetable saved"
	logMsgReferencesSaved        = "references saved"
	logMsgMigrated               = "schema migrated"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "timetable store operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrEventCount            = "event_count"
	logAttrEntityCount           = "entity_count"
	logAttrDurationMS            = "duration_ms"
	logAttrIncludes              = "includes"
	logAttrExcludes              = "excludes"
	logAttrCancelled             = "cancelled"
	logAttrStatementCount        = "statement_count"
	logAttrSubjectCount          = "subject_count"
	logAttrAuditoriumCount       = "auditorium_count"
	logAttrGroupCount            = "group_count"
	logAttrTeacherCount          = "teacher_count"
	logActionResolve             = "resolve"
	logActionHydrate             = "hydrate"
	logActionSave                = "save"
	logActionMigrate             = "migrate"
)

// EventStore is the SQL-backed timetable cache. It resolves include/exclude filter sets into event ids,
// hydrates cached entities and saves fetched timetables.
type EventStore struct {
	db               adapters.DBAdapter
	dialect          Dialect
	tables           tableNames
	compiler         Compiler
	logger           timetable.Logger
	contextualLogger timetable.ContextualLogger
	metricsCollector timetable.MetricsCollector
	tracingCollector timetable.TracingCollector
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, timetable.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options)
}

// NewEventStoreFromPGXPoolAndReplica creates a new EventStore that may serve eventually consistent reads from the replica.
// See timetable.WithEventualConsistency.
func NewEventStoreFromPGXPoolAndReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (EventStore, error) {
	if primary == nil || replica == nil {
		return EventStore{}, timetable.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapterWithReplica(primary, replica), options)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
// Use WithDialect(DialectSQLite) for a go-sqlite3 connection.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, timetable.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, timetable.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options)
}

func newEventStore(db adapters.DBAdapter, options []Option) (EventStore, error) {
	es := EventStore{
		db:      db,
		dialect: DialectPostgres,
		tables:  newTableNames(""),
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	compiler, err := NewCompiler(es.dialect, es.tables.prefix)
	if err != nil {
		return EventStore{}, err
	}

	es.compiler = compiler

	return es, nil
}

// Compiler exposes the store's query compiler, e.g. to inspect the SQL a resolve would run.
func (es EventStore) Compiler() Compiler {
	return es.compiler
}

// Resolve returns the ids of all events matched by any include filter and by no exclude filter, in ascending order.
//
// Filters present in both sets cancel out. When no include filter is left the result is empty
// and the database is not queried. Store failures are returned wrapped in ErrQueryingEventsFailed.
func (es EventStore) Resolve(ctx context.Context, include, exclude timetable.FilterSet) ([]timetable.EventID, error) {
	tracer, ctx := es.startResolveTracing(ctx, include, exclude)
	metrics := es.startResolveMetrics(ctx)

	composition, buildErr := es.compiler.Compose(include, exclude)
	if buildErr != nil {
		es.logError(logMsgBuildSelectQueryFailed, buildErr)
		es.logErrorContext(ctx, logMsgBuildSelectQueryFailed, buildErr)
		tracer.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return nil, buildErr
	}

	if composition.Empty() {
		es.logOperation(logMsgResolveShortCircuited, logAttrCancelled, composition.Cancelled)
		es.logOperationContext(ctx, logMsgResolveShortCircuited, logAttrCancelled, composition.Cancelled)
		tracer.finishSuccess(composition, 0, 0)
		metrics.recordSuccess(0, 0)

		return []timetable.EventID{}, nil
	}

	start := time.Now()
	ids := make([]timetable.EventID, 0)

	queryErr := es.queryRows(ctx, composition.SQL, logActionResolve, func(rows adapters.DBRows) error {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}

		ids = append(ids, timetable.EventID(id))

		return nil
	})

	duration := time.Since(start)

	if queryErr != nil {
		tracer.finishError(errorTypeQuery, duration)
		metrics.recordError(errorTypeQuery, duration)

		return nil, queryErr
	}

	slices.Sort(ids)

	logArgs := []any{
		logAttrEventCount, len(ids),
		logAttrIncludes, composition.Includes,
		logAttrExcludes, composition.Excludes,
		logAttrCancelled, composition.Cancelled,
		logAttrDurationMS, es.toMilliseconds(duration),
	}
	es.logOperation(logMsgResolveCompleted, logArgs...)
	es.logOperationContext(ctx, logMsgResolveCompleted, logArgs...)
	tracer.finishSuccess(composition, len(ids), duration)
	metrics.recordSuccess(len(ids), duration)

	return ids, nil
}

// queryRows runs a read query, calls scan once per row and always closes the rows.
// Every failure is returned joined with ErrQueryingEventsFailed or ErrScanningDBRowFailed.
func (es EventStore) queryRows(
	ctx context.Context,
	sqlQuery string,
	action string,
	scan func(rows adapters.DBRows) error,
) error {
	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, action, duration)
	es.logQueryWithDurationContext(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		es.logError(logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		es.logErrorContext(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return errors.Join(timetable.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(rows)

	for rows.Next() {
		if scanErr := scan(rows); scanErr != nil {
			es.logError(logMsgScanRowFailed, scanErr)
			es.logErrorContext(ctx, logMsgScanRowFailed, scanErr)

			return errors.Join(timetable.ErrScanningDBRowFailed, scanErr)
		}
	}

	if iterErr := rows.Err(); iterErr != nil {
		es.logError(logMsgIterateRowsFailed, iterErr)
		es.logErrorContext(ctx, logMsgIterateRowsFailed, iterErr)

		return errors.Join(timetable.ErrQueryingEventsFailed, iterErr)
	}

	return nil
}

// querySelect renders a goqu select and runs it through queryRows.
func (es EventStore) querySelect(
	ctx context.Context,
	selectStmt *goqu.SelectDataset,
	action string,
	scan func(rows adapters.DBRows) error,
) error {
	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		es.logError(logMsgBuildSelectQueryFailed, toSQLErr)
		return errors.Join(timetable.ErrBuildingQueryFailed, toSQLErr)
	}

	return es.queryRows(ctx, sqlQuery, action, scan)
}

// closeRows safely closes database rows and logs any errors.
func (es EventStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}
