package sqlengine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/testutil/sqlengine/config"
	"github.com/linerds/timetable-go/timetable"
	"github.com/linerds/timetable-go/timetable/sqlengine"
	. "github.com/linerds/timetable-go/testutil/sqlengine/helper"              //nolint:revive
	. "github.com/linerds/timetable-go/testutil/sqlengine/helper/storewrapper" //nolint:revive
)

// givenUnmigratedStore returns a store whose tables do not exist, so every query fails.
func givenUnmigratedStore(t *testing.T, options ...sqlengine.Option) sqlengine.EventStore {
	t.Helper()

	db, err := config.SQLiteSQLDBConfig(config.SQLiteDSN(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	es, err := sqlengine.NewEventStoreFromSQLDB(db, append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite)}, options...)...)
	require.NoError(t, err)

	return es
}

func Test_Observability_WithLogger_LogsResolve(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	es := CreateWrapperWithTestConfig(t, sqlengine.WithLogger(slog.New(logSpy))).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)
	logSpy.Reset()

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(1))), timetable.NewFilterSet())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, logSpy.RecordCount(), "resolve should log one SQL statement and one operational summary")
	assert.True(t,
		logSpy.HasDebugLogWithMessage("executed sql for: resolve").
			WithDurationMS().
			WithQuery().
			Assert(), "should log the SQL with duration_ms",
	)
	assert.True(t,
		logSpy.HasInfoLogWithMessage("timetable store operation: resolve completed").
			WithDurationMS().
			WithEventCount().
			WithIntAttr("includes", 1).
			Assert(), "should log resolve completion with duration and event count",
	)
}

func Test_Observability_WithLogger_LogsShortCircuit(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	es := CreateWrapperWithTestConfig(t, sqlengine.WithLogger(slog.New(logSpy))).EventStore()
	logSpy.Reset()

	filter := MustFilter(t, timetable.BuildFilter().Groups(42))

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(filter), timetable.NewFilterSet(filter))

	// assert
	require.NoError(t, err)
	assert.False(t, logSpy.HasDebugLogWithMessage("executed sql for: resolve").Assert(), "no query must run")
	assert.True(t,
		logSpy.HasInfoLogWithMessage("timetable store operation: resolve short-circuited, no include filter left").
			WithIntAttr("cancelled", 1).
			Assert(),
	)
}

func Test_Observability_WithLogger_LogsSave(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	es := CreateWrapperWithTestConfig(t, sqlengine.WithLogger(slog.New(logSpy))).EventStore()

	// act
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)

	// assert
	assert.True(t, logSpy.HasDebugLogWithMessage("executed sql for: save").WithDurationMS().Assert())
	assert.True(t,
		logSpy.HasInfoLogWithMessage("timetable store operation: timetable saved").
			WithDurationMS().
			WithIntAttr("event_count", int64(len(scenario))).
			Assert(),
	)
}

func Test_Observability_WithLogger_LogsQueryErrors(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	es := givenUnmigratedStore(t, sqlengine.WithLogger(slog.New(logSpy)))

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Kinds(timetable.Lecture))), timetable.NewFilterSet())

	// assert
	assert.ErrorIs(t, err, timetable.ErrQueryingEventsFailed)
	assert.True(t, logSpy.HasErrorLogWithMessage("database query execution failed").WithError().WithQuery().Assert())
}

func Test_Observability_WithContextualLogger(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	es := CreateWrapperWithTestConfig(t, sqlengine.WithContextualLogger(slog.New(logSpy))).EventStore()

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(1))), timetable.NewFilterSet())

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasInfoLogWithMessage("timetable store operation: resolve completed").WithEventCount().Assert())
}

func Test_Observability_WithMetrics_RecordsResolve(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metricsSpy := NewMetricsCollectorSpy()
	es := CreateWrapperWithTestConfig(t, sqlengine.WithMetrics(metricsSpy)).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)

	// act
	ids, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(1))), timetable.NewFilterSet())

	// assert
	require.NoError(t, err)
	assert.True(t, metricsSpy.HasDurationRecord("timetable_resolve_duration_seconds", "success"))
	assert.True(t, metricsSpy.HasValueRecord("timetable_events_resolved", float64(len(ids))))
	assert.True(t, metricsSpy.HasDurationRecord("timetable_save_duration_seconds", "success"))
	assert.True(t, metricsSpy.HasValueRecord("timetable_events_saved", float64(len(scenario))))
	assert.Empty(t, metricsSpy.CounterRecords())
}

func Test_Observability_WithMetrics_RecordsErrors(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metricsSpy := NewMetricsCollectorSpy()
	es := givenUnmigratedStore(t, sqlengine.WithMetrics(metricsSpy))

	// act
	_, resolveErr := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(1))), timetable.NewFilterSet())
	saveErr := es.SaveTimetable(ctxWithTimeout, GivenTimetable(scenario...))

	// assert
	assert.ErrorIs(t, resolveErr, timetable.ErrQueryingEventsFailed)
	assert.ErrorIs(t, saveErr, timetable.ErrSavingTimetableFailed)
	assert.True(t, metricsSpy.HasDurationRecord("timetable_resolve_duration_seconds", "error"))
	assert.True(t, metricsSpy.HasCounterRecord("timetable_database_errors_total", "database_query"))
	assert.True(t, metricsSpy.HasCounterRecord("timetable_database_errors_total", "database_exec"))
}

func Test_Observability_WithTracing(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracingSpy := NewTracingCollectorSpy()
	es := CreateWrapperWithTestConfig(t, sqlengine.WithTracing(tracingSpy)).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)
	group1 := MustFilter(t, timetable.BuildFilter().Groups(1))
	group2 := MustFilter(t, timetable.BuildFilter().Groups(2))

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(group1), timetable.NewFilterSet(group2))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"timetable.migrate", "timetable.save", "timetable.resolve"}, tracingSpy.StartedSpans())

	saveSpan, ok := tracingSpy.FinishedSpan("timetable.save")
	require.True(t, ok)
	assert.Equal(t, "success", saveSpan.Status)
	assert.Equal(t, "5", saveSpan.Attributes["event_count"])

	resolveSpan, ok := tracingSpy.FinishedSpan("timetable.resolve")
	require.True(t, ok)
	assert.Equal(t, "success", resolveSpan.Status)
	assert.Equal(t, "1", resolveSpan.Attributes["event_count"])
	assert.Equal(t, "1", resolveSpan.Attributes["include_filters"])
	assert.Equal(t, "1", resolveSpan.Attributes["exclude_filters"])
	assert.Equal(t, "0", resolveSpan.Attributes["cancelled_filters"])
	assert.NotEmpty(t, resolveSpan.Attributes["db.dialect"])
	assert.NotEmpty(t, resolveSpan.Attributes["duration_ms"])
}

func Test_Observability_WithTracing_RecordsErrors(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracingSpy := NewTracingCollectorSpy()
	es := givenUnmigratedStore(t, sqlengine.WithTracing(tracingSpy))

	// act
	_, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Teachers(1))), timetable.NewFilterSet())

	// assert
	assert.Error(t, err)

	span, ok := tracingSpy.FinishedSpan("timetable.resolve")
	require.True(t, ok)
	assert.Equal(t, "error", span.Status)
	assert.Equal(t, "database_query", span.Attributes["error_type"])
}

func Test_Observability_Migrate(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy()
	tracingSpy := NewTracingCollectorSpy()
	es := givenUnmigratedStore(t,
		sqlengine.WithContextualLogger(slog.New(logSpy)),
		sqlengine.WithMetrics(metricsSpy),
		sqlengine.WithTracing(tracingSpy),
	)

	// act
	err := es.Migrate(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasDebugLogWithMessage("executed sql for: migrate").WithDurationMS().WithQuery().Assert())
	assert.True(t, logSpy.HasInfoLogWithMessage("timetable store operation: schema migrated").WithDurationMS().Assert())
	assert.True(t, metricsSpy.HasDurationRecord("timetable_migrate_duration_seconds", "success"))
	assert.Empty(t, metricsSpy.CounterRecords())

	span, ok := tracingSpy.FinishedSpan("timetable.migrate")
	require.True(t, ok)
	assert.Equal(t, "success", span.Status)
}

func Test_Observability_Migrate_RecordsErrors(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy()
	tracingSpy := NewTracingCollectorSpy()
	es := givenUnmigratedStore(t,
		sqlengine.WithContextualLogger(slog.New(logSpy)),
		sqlengine.WithMetrics(metricsSpy),
		sqlengine.WithTracing(tracingSpy),
	)

	// act
	err := es.Migrate(ctx)

	// assert
	assert.ErrorIs(t, err, timetable.ErrMigrationFailed)
	assert.True(t, logSpy.HasErrorLogWithMessage("schema migration failed").WithError().WithQuery().Assert())
	assert.True(t, metricsSpy.HasDurationRecord("timetable_migrate_duration_seconds", "error"))
	assert.True(t, metricsSpy.HasCounterRecord("timetable_database_errors_total", "database_exec"))

	span, ok := tracingSpy.FinishedSpan("timetable.migrate")
	require.True(t, ok)
	assert.Equal(t, "error", span.Status)
	assert.Equal(t, "database_exec", span.Attributes["error_type"])
}

func Test_Observability_SaveReferences(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy()
	es := CreateWrapperWithTestConfig(t,
		sqlengine.WithLogger(slog.New(logSpy)),
		sqlengine.WithMetrics(metricsSpy),
	).EventStore()

	refs := timetable.NewReferences()
	refs.Groups[1] = timetable.Group{ID: 1, Name: "PZPI-23-1"}
	refs.Auditoriums[100] = timetable.Auditorium{ID: 100, Name: "287", Floor: Int64Ptr(2)}

	// act
	err := es.SaveReferences(ctxWithTimeout, refs)

	// assert
	require.NoError(t, err)
	assert.True(t,
		logSpy.HasInfoLogWithMessage("timetable store operation: references saved").
			WithDurationMS().
			WithIntAttr("entity_count", 2).
			Assert(),
	)
	assert.True(t, metricsSpy.HasDurationRecord("timetable_save_duration_seconds", "success"))
	assert.True(t, metricsSpy.HasValueRecord("timetable_references_saved", 2))
}
