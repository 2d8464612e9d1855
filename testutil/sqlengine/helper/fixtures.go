package helper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/timetable"
	"github.com/linerds/timetable-go/timetable/sqlengine"
)

// FixedClock is the start of the first pair in every fixture.
var FixedClock = time.Date(2025, time.September, 1, 7, 45, 0, 0, time.UTC)

const pairDuration = 95 * time.Minute

// FixtureEvent describes an event by its facets. Pair shifts the start time by whole pairs from FixedClock.
type FixtureEvent struct {
	ID         timetable.EventID
	Kind       timetable.EventKind
	Subject    timetable.SubjectID
	Auditorium timetable.AuditoriumID
	Groups     []timetable.GroupID
	Teachers   []timetable.TeacherID
	Pair       int
}

// Event turns the fixture into a timetable.Event.
func (f FixtureEvent) Event() timetable.Event {
	startedAt := FixedClock.Add(time.Duration(f.Pair) * 2 * time.Hour)

	return timetable.Event{
		ID:         f.ID,
		Kind:       f.Kind,
		NumberPair: f.Pair + 1,
		Subject:    f.Subject,
		Auditorium: f.Auditorium,
		Groups:     timetable.NewFacetSet(f.Groups...),
		Teachers:   timetable.NewFacetSet(f.Teachers...),
		StartedAt:  startedAt,
		EndedAt:    startedAt.Add(pairDuration),
	}
}

// GivenTimetable builds a Timetable holding the events and a generated entity for every id they reference.
func GivenTimetable(fixtures ...FixtureEvent) timetable.Timetable {
	tt := timetable.NewTimetable()

	for _, f := range fixtures {
		event := f.Event()
		tt.Events[event.ID] = event

		tt.Subjects[event.Subject] = timetable.Subject{
			ID:    event.Subject,
			Title: fmt.Sprintf("Subject %d", event.Subject),
			Brief: fmt.Sprintf("S%d", event.Subject),
		}

		tt.Auditoriums[event.Auditorium] = timetable.Auditorium{
			ID:         event.Auditorium,
			Name:       fmt.Sprintf("%d", 100+event.Auditorium),
			HasPower:   event.Auditorium%2 == 0,
			BuildingID: "main",
		}

		for _, id := range event.Groups.Values() {
			tt.Groups[id] = timetable.Group{ID: id, Name: fmt.Sprintf("GR-%d", id)}
		}

		for _, id := range event.Teachers.Values() {
			tt.Teachers[id] = timetable.Teacher{
				ID:        id,
				FullName:  fmt.Sprintf("Teacher Number %d", id),
				ShortName: fmt.Sprintf("T. %d", id),
			}
		}
	}

	return tt
}

// GivenSavedTimetable saves the fixtures into es and returns the saved timetable.
func GivenSavedTimetable(t testing.TB, ctx context.Context, es sqlengine.EventStore, fixtures ...FixtureEvent) timetable.Timetable {
	t.Helper()

	tt := GivenTimetable(fixtures...)
	require.NoError(t, es.SaveTimetable(ctx, tt), "error in arranging test data")

	return tt
}

// MustFilter finalizes fb and fails the test on error.
func MustFilter(t testing.TB, fb timetable.FilterBuilder) timetable.Filter {
	t.Helper()

	filter, err := fb.Finalize()
	require.NoError(t, err, "error in arranging test data")

	return filter
}

// Int64Ptr returns a pointer to v, for the optional numeric entity fields.
func Int64Ptr(v int64) *int64 {
	return &v
}
