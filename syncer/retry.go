package syncer

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/linerds/timetable-go/fetcher/mindenit"
)

// fetchTarget names what one retried fetch asks the upstream for, e.g. "group:1" of kind "group"
// or "auditoriums" of kind "reference".
type fetchTarget struct {
	name string
	kind string
}

func sourceTarget(source mindenit.Source) fetchTarget {
	return fetchTarget{name: source.String(), kind: source.Kind().String()}
}

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 500 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retryConfig holds configuration for exponential backoff retry logic.
type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

// retryableFunc represents a function that can be retried.
type retryableFunc func(ctx context.Context) error

// retryWithExponentialBackoff runs fn until it succeeds, fails permanently or maxAttempts is reached,
// and returns how many retries were made.
//
// Retry Schedule (default): 0 ms, 500 ms, 1 s, 2 s (with 30% jitter)
//
// Only ErrUpstreamUnavailable is retried. Bad responses and decoding failures will not go away
// by asking again, so they fail fast.
func (s Syncer) retryWithExponentialBackoff(
	ctx context.Context,
	runID uuid.UUID,
	target fetchTarget,
	fn retryableFunc,
) (int, error) {
	var lastErr error

	retries := 0

	for attempt := range s.retry.maxAttempts {
		if attempt > 0 {
			// Exponential backoff: baseDelay * 2^(attempt-1)
			delay := s.retry.baseDelay * time.Duration(1<<(attempt-1))

			jitter := rand.Float64() * float64(delay) * s.retry.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			s.recordRetryDelayMetric(ctx, target, backoffDelay)

			if s.logger != nil {
				s.logger.Warn(logMsgOperation+logMsgRetryingFetch,
					logAttrRunID, runID.String(),
					logAttrSource, target.name,
					logAttrAttempt, attempt+1,
					logAttrDelayMS, toMilliseconds(backoffDelay),
					logAttrError, lastErr.Error(),
				)
			}

			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return retries, errors.Join(lastErr, ctx.Err())
			}

			retries++
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return retries, nil
		}

		if !isRetryableError(lastErr) {
			return retries, lastErr
		}

		if attempt < s.retry.maxAttempts-1 {
			s.recordRetryAttemptMetric(ctx, target, lastErr)
		}
	}

	s.recordMaxRetriesReachedMetric(ctx, target, lastErr)

	return retries, lastErr
}

// isRetryableError reports whether asking the upstream again may succeed.
// A cancelled or expired context is never retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return errors.Is(err, mindenit.ErrUpstreamUnavailable)
}

// getErrorType extracts a string representation of the error type for metrics labeling.
func getErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	case errors.Is(err, mindenit.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, mindenit.ErrResponseTooLarge):
		return "response_too_large"
	case errors.Is(err, mindenit.ErrBadResponse):
		return "bad_response"
	case errors.Is(err, mindenit.ErrDecodingFailed):
		return "decoding_failed"
	case errors.Is(err, mindenit.ErrRequestFailed):
		return "request_failed"
	default:
		return "other"
	}
}
