package sqlengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

const (
	metricResolveDuration = "timetable_resolve_duration_seconds"
	metricEventsResolved  = "timetable_events_resolved"
	metricSaveDuration    = "timetable_save_duration_seconds"
	metricEventsSaved     = "timetable_events_saved"
	metricReferencesSaved = "timetable_references_saved"
	metricMigrateDuration = "timetable_migrate_duration_seconds"
	metricDatabaseErrors  = "timetable_database_errors_total"

	spanNameResolve        = "timetable.resolve"
	spanNameSave           = "timetable.save"
	spanNameSaveReferences = "timetable.save_references"
	spanNameMigrate        = "timetable.migrate"

	spanAttrOperation  = "operation"
	spanAttrErrorType  = "error_type"
	spanAttrEventCount = "event_count"
	spanAttrDurationMS = "duration_ms"
	spanAttrIncludes   = "include_filters"
	spanAttrExcludes   = "exclude_filters"
	spanAttrCancelled  = "cancelled_filters"
	spanAttrDialect    = "db.dialect"

	labelStatus = "status"

	operationResolve        = "resolve"
	operationSave           = "save"
	operationSaveReferences = "save_references"
	operationMigrate        = "migrate"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery = "build_query"
	errorTypeQuery      = "database_query"
	errorTypeExec       = "database_exec"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (es *EventStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (es *EventStore) logOperation(action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if the logger is configured.
func (es *EventStore) logError(message string, err error, args ...any) {
	if es.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		es.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (es *EventStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (es *EventStore) formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", es.toMilliseconds(d))
}

// === Contextual Logging ===

func (es *EventStore) logQueryWithDurationContext(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if es.contextualLogger != nil {
		es.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, es.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (es *EventStore) logOperationContext(ctx context.Context, action string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (es *EventStore) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	if es.contextualLogger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		es.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// === Metrics ===

// recordDurationMetricsContext prefers the context-aware collector methods when available.
func (es *EventStore) recordDurationMetricsContext(ctx context.Context, metricName string, duration time.Duration, operation, status string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := es.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	es.metricsCollector.RecordDuration(metricName, duration, labels)
}

func (es *EventStore) recordValueMetricsContext(ctx context.Context, metricName string, value float64, operation, status string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := es.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	es.metricsCollector.RecordValue(metricName, value, labels)
}

func (es *EventStore) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: statusError, spanAttrErrorType: errorType}

	if contextualCollector, ok := es.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	es.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

// operationMetricsObserver records the metrics of one resolve or save call.
type operationMetricsObserver struct {
	es             *EventStore
	ctx            context.Context
	operation      string
	durationMetric string
	countMetric    string
}

func (es *EventStore) startResolveMetrics(ctx context.Context) *operationMetricsObserver {
	return &operationMetricsObserver{
		es:             es,
		ctx:            ctx,
		operation:      operationResolve,
		durationMetric: metricResolveDuration,
		countMetric:    metricEventsResolved,
	}
}

// startWriteMetrics serves SaveTimetable and SaveReferences, which share the save duration metric.
func (es *EventStore) startWriteMetrics(ctx context.Context, operation string) *operationMetricsObserver {
	countMetric := metricEventsSaved
	if operation == operationSaveReferences {
		countMetric = metricReferencesSaved
	}

	return &operationMetricsObserver{
		es:             es,
		ctx:            ctx,
		operation:      operation,
		durationMetric: metricSaveDuration,
		countMetric:    countMetric,
	}
}

// startMigrateMetrics records durations only, a migration has nothing to count.
func (es *EventStore) startMigrateMetrics(ctx context.Context) *operationMetricsObserver {
	return &operationMetricsObserver{
		es:             es,
		ctx:            ctx,
		operation:      operationMigrate,
		durationMetric: metricMigrateDuration,
	}
}

func (o *operationMetricsObserver) recordSuccess(eventCount int, duration time.Duration) {
	o.es.recordDurationMetricsContext(o.ctx, o.durationMetric, duration, o.operation, statusSuccess)

	if o.countMetric != "" {
		o.es.recordValueMetricsContext(o.ctx, o.countMetric, float64(eventCount), o.operation, statusSuccess)
	}
}

func (o *operationMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.es.recordDurationMetricsContext(o.ctx, o.durationMetric, duration, o.operation, statusError)
	o.es.recordErrorMetricsContext(o.ctx, o.operation, errorType)
}

// === Tracing ===

// operationTracingObserver owns the span of one resolve or save call. A nil span makes every method a no-op.
type operationTracingObserver struct {
	es   *EventStore
	span timetable.SpanContext
}

func (es *EventStore) startTraceSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, timetable.SpanContext) {
	if es.tracingCollector != nil {
		return es.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

func (es *EventStore) startResolveTracing(ctx context.Context, include, exclude timetable.FilterSet) (*operationTracingObserver, context.Context) {
	newCtx, span := es.startTraceSpan(ctx, spanNameResolve, map[string]string{
		spanAttrOperation: operationResolve,
		spanAttrDialect:   string(es.dialect),
		spanAttrIncludes:  strconv.Itoa(include.Len()),
		spanAttrExcludes:  strconv.Itoa(exclude.Len()),
	})

	return &operationTracingObserver{es: es, span: span}, newCtx
}

func (es *EventStore) startWriteTracing(ctx context.Context, spanName, operation string, count int) (*operationTracingObserver, context.Context) {
	newCtx, span := es.startTraceSpan(ctx, spanName, map[string]string{
		spanAttrOperation:  operation,
		spanAttrDialect:    string(es.dialect),
		spanAttrEventCount: strconv.Itoa(count),
	})

	return &operationTracingObserver{es: es, span: span}, newCtx
}

func (es *EventStore) startMigrateTracing(ctx context.Context) (*operationTracingObserver, context.Context) {
	newCtx, span := es.startTraceSpan(ctx, spanNameMigrate, map[string]string{
		spanAttrOperation: operationMigrate,
		spanAttrDialect:   string(es.dialect),
	})

	return &operationTracingObserver{es: es, span: span}, newCtx
}

// finishSuccess accepts the resolve composition; writes and migrations pass a zero Composition.
func (o *operationTracingObserver) finishSuccess(composition Composition, eventCount int, duration time.Duration) {
	if o.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrEventCount: strconv.Itoa(eventCount),
		spanAttrDurationMS: o.es.formatMilliseconds(duration),
	}

	if composition.Includes > 0 || composition.Cancelled > 0 {
		attrs[spanAttrIncludes] = strconv.Itoa(composition.Includes)
		attrs[spanAttrExcludes] = strconv.Itoa(composition.Excludes)
		attrs[spanAttrCancelled] = strconv.Itoa(composition.Cancelled)
	}

	o.span.SetStatus(statusSuccess)
	o.es.tracingCollector.FinishSpan(o.span, statusSuccess, attrs)
}

func (o *operationTracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	attrs := map[string]string{spanAttrErrorType: errorType}
	if duration > 0 {
		attrs[spanAttrDurationMS] = o.es.formatMilliseconds(duration)
	}

	o.span.SetStatus(statusError)
	o.es.tracingCollector.FinishSpan(o.span, statusError, attrs)
}
