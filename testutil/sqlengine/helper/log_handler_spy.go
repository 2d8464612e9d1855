package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler that captures log records for assertions.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// With logToStdout the captured records are also written as JSON, handy when debugging a test.
func NewLogHandlerSpy(logToStdout bool) *LogHandlerSpy {
	return &LogHandlerSpy{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdout,
	}
}

func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// RecordCount returns the number of captured log records.
func (s *LogHandlerSpy) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Reset clears all captured log records.
func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// HasDebugLogWithMessage starts a fluent chain checking a debug-level record.
func (s *LogHandlerSpy) HasDebugLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.find(slog.LevelDebug, message)
}

// HasInfoLogWithMessage starts a fluent chain checking an info-level record.
func (s *LogHandlerSpy) HasInfoLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.find(slog.LevelInfo, message)
}

// HasWarnLogWithMessage starts a fluent chain checking a warn-level record.
func (s *LogHandlerSpy) HasWarnLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.find(slog.LevelWarn, message)
}

// HasErrorLogWithMessage starts a fluent chain checking an error-level record.
func (s *LogHandlerSpy) HasErrorLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.find(slog.LevelError, message)
}

func (s *LogHandlerSpy) find(level slog.Level, message string) *SpyLogRecordMatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].Level == level && s.records[i].Message == message {
			record := s.records[i]
			return &SpyLogRecordMatcher{record: &record, found: true}
		}
	}

	return &SpyLogRecordMatcher{}
}

// SpyLogRecordMatcher checks attributes of the first matching record.
// Each With... call narrows the match, Assert reports the result.
type SpyLogRecordMatcher struct {
	record *slog.Record
	found  bool
}

// WithDurationMS requires a non-negative duration_ms attribute.
func (m *SpyLogRecordMatcher) WithDurationMS() *SpyLogRecordMatcher {
	return m.require("duration_ms", func(v slog.Value) bool {
		return v.Kind() == slog.KindFloat64 && v.Float64() >= 0
	})
}

// WithEventCount requires an event_count attribute.
func (m *SpyLogRecordMatcher) WithEventCount() *SpyLogRecordMatcher {
	return m.require("event_count", func(v slog.Value) bool {
		return v.Kind() == slog.KindInt64
	})
}

// WithIntAttr requires an integer attribute with exactly the given value.
func (m *SpyLogRecordMatcher) WithIntAttr(key string, want int64) *SpyLogRecordMatcher {
	return m.require(key, func(v slog.Value) bool {
		return v.Kind() == slog.KindInt64 && v.Int64() == want
	})
}

// WithQuery requires a non-empty query attribute.
func (m *SpyLogRecordMatcher) WithQuery() *SpyLogRecordMatcher {
	return m.require("query", func(v slog.Value) bool {
		return v.Kind() == slog.KindString && v.String() != ""
	})
}

// WithError requires a non-empty error attribute.
func (m *SpyLogRecordMatcher) WithError() *SpyLogRecordMatcher {
	return m.require("error", func(v slog.Value) bool {
		return v.String() != ""
	})
}

// Assert reports whether a record matched every condition of the chain.
func (m *SpyLogRecordMatcher) Assert() bool {
	return m.found
}

func (m *SpyLogRecordMatcher) require(key string, check func(slog.Value) bool) *SpyLogRecordMatcher {
	if !m.found {
		return m
	}

	matched := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			matched = check(attr.Value)
			return false
		}

		return true
	})

	m.found = matched

	return m
}
