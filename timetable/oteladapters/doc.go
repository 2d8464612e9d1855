// Package oteladapters implements the timetable observability interfaces on top of OpenTelemetry:
// a contextual logger (slog bridge or the raw log API), a metrics collector and a tracing collector.
//
//	store, err := sqlengine.NewEventStoreFromPGXPool(pool,
//		sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("timetable")),
//		sqlengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("timetable"))),
//		sqlengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("timetable"))),
//	)
package oteladapters
