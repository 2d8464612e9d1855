package syncer

import (
	"context"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

const (
	metricSyncDuration      = "timetable_sync_duration_seconds"
	metricEventsFetched     = "timetable_sync_events_fetched"
	metricReferencesFetched = "timetable_sync_references_fetched"
	metricFetchRetries      = "timetable_sync_fetch_retries_total"
	metricRetryDelay        = "timetable_sync_retry_delay_seconds"
	metricMaxRetriesReached = "timetable_sync_max_retries_reached_total"

	labelStatus         = "status"
	labelErrorType      = "error_type"
	labelFinalErrorType = "final_error_type"
	labelSourceKind     = "source_kind"
	labelRun            = "run"

	runTimetable  = "timetable"
	runReferences = "references"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeFetch = "fetch"
	errorTypeSave  = "save"
)

// recordRun records the duration of a run and, on success, the number of events it saved.
func (s Syncer) recordRun(ctx context.Context, status, errorType string, report Report) {
	s.recordRunOf(ctx, runTimetable, status, errorType, report.Duration, metricEventsFetched, report.Events)
}

// recordReferenceRun records the duration of a reference run and, on success, the number of entities it saved.
func (s Syncer) recordReferenceRun(ctx context.Context, status, errorType string, report ReferenceReport) {
	s.recordRunOf(ctx, runReferences, status, errorType, report.Duration, metricReferencesFetched, report.entities())
}

func (s Syncer) recordRunOf(
	ctx context.Context,
	run, status, errorType string,
	duration time.Duration,
	countMetric string,
	count int,
) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelRun: run, labelStatus: status}
	if errorType != "" {
		labels[labelErrorType] = errorType
	}

	s.recordDuration(ctx, metricSyncDuration, duration, labels)

	if status == statusSuccess {
		s.recordValue(ctx, countMetric, float64(count), map[string]string{labelRun: run, labelStatus: status})
	}
}

// recordRetryDelayMetric records the actual backoff delay before each retry attempt.
func (s Syncer) recordRetryDelayMetric(ctx context.Context, target fetchTarget, delay time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	s.recordDuration(ctx, metricRetryDelay, delay, map[string]string{labelSourceKind: target.kind})
}

// recordRetryAttemptMetric tracks retry attempts by source kind and error type.
func (s Syncer) recordRetryAttemptMetric(ctx context.Context, target fetchTarget, err error) {
	if s.metricsCollector == nil {
		return
	}

	s.incrementCounter(ctx, metricFetchRetries, map[string]string{
		labelSourceKind: target.kind,
		labelErrorType:  getErrorType(err),
	})
}

// recordMaxRetriesReachedMetric tracks when retry exhaustion occurs with the final error type.
func (s Syncer) recordMaxRetriesReachedMetric(ctx context.Context, target fetchTarget, err error) {
	if s.metricsCollector == nil {
		return
	}

	s.incrementCounter(ctx, metricMaxRetriesReached, map[string]string{
		labelSourceKind:     target.kind,
		labelFinalErrorType: getErrorType(err),
	})
}

func (s Syncer) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if contextualCollector, ok := s.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

func (s Syncer) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if contextualCollector, ok := s.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

func (s Syncer) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if contextualCollector, ok := s.metricsCollector.(timetable.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}
