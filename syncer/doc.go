// Package syncer refreshes the local timetable cache from upstream schedules.
//
// A sync run fetches every requested source concurrently, retries sources whose upstream is
// temporarily unavailable with exponential backoff, merges the fetched batches and saves them
// with a single SaveTimetable call. A source that still fails aborts the run before anything is
// saved, so the cache never holds half of a run.
//
// Usage:
//
//	client, _ := mindenit.NewClient()
//	s, _ := syncer.New(client, store, syncer.WithLogger(slog.Default()))
//	report, err := s.Sync(ctx, mindenit.GroupSource(10887), mindenit.TeacherSource(42))
package syncer
