package syncer

import (
	"errors"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

var (
	// ErrNilFetcher is returned by New when no fetcher is supplied.
	ErrNilFetcher = errors.New("fetcher must not be nil")

	// ErrNilSaver is returned by New when no saver is supplied.
	ErrNilSaver = errors.New("timetable saver must not be nil")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// Option defines a functional option for configuring Syncer.
type Option func(*Syncer) error

// WithConcurrency limits how many sources are fetched at the same time.
func WithConcurrency(limit int) Option {
	return func(s *Syncer) error {
		if limit <= 0 {
			return ErrInvalidConcurrency
		}

		s.concurrency = limit

		return nil
	}
}

// WithMaxAttempts sets how often a single source is tried, the first attempt included.
func WithMaxAttempts(attempts int) Option {
	return func(s *Syncer) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		s.retry.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(s *Syncer) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		s.retry.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added on top of each backoff delay as a fraction of it.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) Option {
	return func(s *Syncer) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		s.retry.jitterFactor = factor

		return nil
	}
}

// WithLogger sets the logger for the Syncer.
//
// Info level: run summaries
// Warn level: retried fetches
// Error level: failed fetches and saves.
func WithLogger(logger timetable.Logger) Option {
	return func(s *Syncer) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for run durations, fetched events and retries.
func WithMetrics(collector timetable.MetricsCollector) Option {
	return func(s *Syncer) error {
		s.metricsCollector = collector
		return nil
	}
}
