package syncer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/linerds/timetable-go/fetcher/mindenit"
	"github.com/linerds/timetable-go/timetable"
)

const (
	defaultConcurrency = 4
)

var ErrNoSources = errors.New("no sources to sync")
var ErrFetchFailed = errors.New("fetching timetable failed")
var ErrSaveFailed = errors.New("saving synced timetable failed")

const (
	logMsgOperation     = "timetable sync: "
	logMsgCompleted     = "completed"
	logMsgRefsCompleted = "references completed"
	logMsgFetchFailed   = "fetch failed"
	logMsgSaveFailed    = "save failed"
	logMsgRetryingFetch = "retrying fetch"
	logAttrRunID        = "run_id"
	logAttrSource       = "source"
	logAttrSourceCount  = "source_count"
	logAttrGroupCount   = "group_count"
	logAttrEventCount   = "event_count"
	logAttrEntityCount  = "entity_count"
	logAttrRetries      = "retries"
	logAttrAttempt      = "attempt"
	logAttrDelayMS      = "delay_ms"
	logAttrDurationMS   = "duration_ms"
	logAttrError        = "error"
)

// Fetcher delivers the timetable of one upstream source. mindenit.Client satisfies it.
type Fetcher interface {
	Timetable(ctx context.Context, source mindenit.Source) (timetable.Timetable, error)
}

// TimetableSaver persists a merged timetable. sqlengine.EventStore satisfies it.
type TimetableSaver interface {
	SaveTimetable(ctx context.Context, tt timetable.Timetable) error
}

// Report summarizes one sync run.
type Report struct {
	RunID       uuid.UUID
	Sources     int
	Events      int
	Groups      int
	Teachers    int
	Subjects    int
	Auditoriums int
	Retries     int
	Duration    time.Duration
}

// Syncer pulls timetables from a Fetcher into a TimetableSaver.
type Syncer struct {
	fetcher          Fetcher
	saver            TimetableSaver
	concurrency      int
	retry            retryConfig
	logger           timetable.Logger
	metricsCollector timetable.MetricsCollector
}

// New creates a Syncer. By default four sources are fetched concurrently and each is tried up to
// four times.
func New(fetcher Fetcher, saver TimetableSaver, options ...Option) (Syncer, error) {
	if fetcher == nil {
		return Syncer{}, ErrNilFetcher
	}

	if saver == nil {
		return Syncer{}, ErrNilSaver
	}

	s := Syncer{
		fetcher:     fetcher,
		saver:       saver,
		concurrency: defaultConcurrency,
		retry: retryConfig{
			maxAttempts:  defaultMaxAttempts,
			baseDelay:    defaultBaseDelay,
			jitterFactor: defaultJitterFactor,
		},
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return Syncer{}, err
		}
	}

	return s, nil
}

// Sync fetches the given sources and saves them as one batch. Duplicate sources are fetched once.
// Events and entities delivered by several sources are taken from the source that sorts last
// by kind and id.
func (s Syncer) Sync(ctx context.Context, sources ...mindenit.Source) (Report, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return Report{}, err
	}

	sources = uniqueSources(sources)
	report := Report{RunID: runID, Sources: len(sources)}

	if len(sources) == 0 {
		return report, ErrNoSources
	}

	start := time.Now()

	fetched, retries, fetchErr := s.fetchAll(ctx, runID, sources)
	report.Retries = retries

	if fetchErr != nil {
		report.Duration = time.Since(start)
		s.recordRun(ctx, statusError, errorTypeFetch, report)

		return report, errors.Join(ErrFetchFailed, fetchErr)
	}

	merged := timetable.NewTimetable()
	for _, tt := range fetched {
		merged.Merge(tt)
	}

	report.Events = len(merged.Events)
	report.Groups = len(merged.Groups)
	report.Teachers = len(merged.Teachers)
	report.Subjects = len(merged.Subjects)
	report.Auditoriums = len(merged.Auditoriums)

	if saveErr := s.saver.SaveTimetable(ctx, merged); saveErr != nil {
		report.Duration = time.Since(start)
		s.logError(logMsgSaveFailed, saveErr, logAttrRunID, runID.String())
		s.recordRun(ctx, statusError, errorTypeSave, report)

		return report, errors.Join(ErrSaveFailed, saveErr)
	}

	report.Duration = time.Since(start)

	s.logOperation(logMsgCompleted,
		logAttrRunID, runID.String(),
		logAttrSourceCount, report.Sources,
		logAttrEventCount, report.Events,
		logAttrRetries, report.Retries,
		logAttrDurationMS, toMilliseconds(report.Duration),
	)
	s.recordRun(ctx, statusSuccess, "", report)

	return report, nil
}

// fetchAll returns the fetched timetables in source order. The first failing source cancels the rest.
func (s Syncer) fetchAll(ctx context.Context, runID uuid.UUID, sources []mindenit.Source) ([]timetable.Timetable, int, error) {
	targets := make([]fetchTarget, len(sources))
	for i, source := range sources {
		targets[i] = sourceTarget(source)
	}

	return fetchConcurrently(ctx, s, runID, targets, func(ctx context.Context, i int) (timetable.Timetable, error) {
		return s.fetcher.Timetable(ctx, sources[i])
	})
}

// fetchConcurrently runs fetch once per target with retries, at most s.concurrency at a time.
// Results keep the order of targets and the first failure cancels the remaining fetches.
func fetchConcurrently[T any](
	ctx context.Context,
	s Syncer,
	runID uuid.UUID,
	targets []fetchTarget,
	fetch func(ctx context.Context, i int) (T, error),
) ([]T, int, error) {
	fetched := make([]T, len(targets))

	var retries atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			var result T

			retried, err := s.retryWithExponentialBackoff(gctx, runID, target, func(ctx context.Context) error {
				var fetchErr error
				result, fetchErr = fetch(ctx, i)

				return fetchErr
			})
			retries.Add(int64(retried))

			if err != nil {
				s.logError(logMsgFetchFailed, err, logAttrRunID, runID.String(), logAttrSource, target.name)
				return fmt.Errorf("%s: %w", target.name, err)
			}

			fetched[i] = result

			return nil
		})
	}

	err := g.Wait()

	return fetched, int(retries.Load()), err
}

// uniqueSources sorts by kind and id and drops duplicates, keeping the caller's slice untouched.
func uniqueSources(sources []mindenit.Source) []mindenit.Source {
	unique := slices.Clone(sources)
	slices.SortStableFunc(unique, func(a, b mindenit.Source) int {
		return cmp.Or(cmp.Compare(a.Kind(), b.Kind()), cmp.Compare(a.ID(), b.ID()))
	})

	return slices.Compact(unique)
}

func (s Syncer) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s Syncer) logError(action string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(logMsgOperation+action, allArgs...)
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
