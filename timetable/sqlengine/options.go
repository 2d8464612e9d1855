package sqlengine

import (
	"errors"
	"regexp"

	"github.com/linerds/timetable-go/timetable"
)

var tablePrefixPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithDialect selects the SQL dialect. The default is DialectPostgres.
func WithDialect(dialect Dialect) Option {
	return func(es *EventStore) error {
		if err := dialect.validate(); err != nil {
			return err
		}

		es.dialect = dialect

		return nil
	}
}

// WithTablePrefix prefixes every table the store uses, e.g. "tt_" yields "tt_events".
// Only lower case letters, digits and underscores are accepted.
func WithTablePrefix(prefix string) Option {
	return func(es *EventStore) error {
		if prefix == "" {
			return timetable.ErrEmptyTablePrefix
		}

		if !tablePrefixPattern.MatchString(prefix) {
			return errors.Join(timetable.ErrInvalidTablePrefix, errors.New(prefix))
		}

		es.tables = newTableNames(prefix)

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: resolve and save summaries with counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger timetable.Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which receives the same messages as the Logger
// together with the operation's context for trace correlation.
func WithContextualLogger(logger timetable.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore.
// It receives resolve and save durations, event counts and database errors.
func WithMetrics(collector timetable.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore.
func WithTracing(collector timetable.TracingCollector) Option {
	return func(es *EventStore) error {
		es.tracingCollector = collector
		return nil
	}
}
