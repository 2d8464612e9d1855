package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerds/timetable-go/timetable"
	. "github.com/linerds/timetable-go/testutil/sqlengine/helper"              //nolint:revive
	. "github.com/linerds/timetable-go/testutil/sqlengine/helper/storewrapper" //nolint:revive
)

func Test_SaveTimetable_ReplacesEventsAndMemberships(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)
	moved := scenario[0]
	moved.Kind = timetable.Consultation
	moved.Groups = []timetable.GroupID{3}
	moved.Teachers = []timetable.TeacherID{8}

	// act
	err := es.SaveTimetable(ctxWithTimeout, GivenTimetable(moved))

	// assert
	require.NoError(t, err)

	event, err := es.Event(ctxWithTimeout, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, timetable.Consultation, event.Kind)
	assert.Equal(t, []timetable.GroupID{3}, event.Groups.Values())
	assert.Equal(t, []timetable.TeacherID{8}, event.Teachers.Values())

	ids, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(1, 2))), timetable.NewFilterSet())
	require.NoError(t, err)
	assert.Equal(t, eventIDs(4), ids, "old memberships must be gone")

	ids, err = es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(3).Teachers(8))), timetable.NewFilterSet())
	require.NoError(t, err)
	assert.Equal(t, eventIDs(1, 3), ids)
}

func Test_SaveTimetable_KeepsEventsNotInTheBatch(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario[:2]...)

	// act
	err := es.SaveTimetable(ctxWithTimeout, GivenTimetable(scenario[2:]...))

	// assert
	require.NoError(t, err)

	events, err := es.Events(ctxWithTimeout, eventIDs(1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func Test_SaveTimetable_EmptyTimetableIsNoop(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// act
	err := es.SaveTimetable(ctxWithTimeout, timetable.NewTimetable())

	// assert
	assert.NoError(t, err)
}

func Test_SaveTimetable_EntitiesOnly(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	before := timetable.NewTimetable()
	before.Groups[1] = timetable.Group{ID: 1, Name: "KIUKI-22-3"}
	require.NoError(t, es.SaveTimetable(ctxWithTimeout, before))

	renamed := timetable.NewTimetable()
	renamed.Groups[1] = timetable.Group{ID: 1, Name: "KIUKI-22-4"}

	// act
	err := es.SaveTimetable(ctxWithTimeout, renamed)

	// assert
	require.NoError(t, err)

	group, err := es.Group(ctxWithTimeout, 1)
	require.NoError(t, err)
	assert.Equal(t, "KIUKI-22-4", group.Name)
}

func Test_SaveTimetable_ManyEvents(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	const numEvents = 1203
	fixtures := make([]FixtureEvent, numEvents)
	for i := range fixtures {
		fixtures[i] = FixtureEvent{
			ID:         timetable.EventID(i + 1),
			Kind:       timetable.EventKind(i % 7),
			Subject:    timetable.SubjectID(i%13 + 1),
			Auditorium: timetable.AuditoriumID(i%5 + 1),
			Groups:     []timetable.GroupID{timetable.GroupID(i%3 + 1), 100},
			Teachers:   []timetable.TeacherID{timetable.TeacherID(i%4 + 1)},
			Pair:       i,
		}
	}

	// act
	err := es.SaveTimetable(ctxWithTimeout, GivenTimetable(fixtures...))

	// assert
	require.NoError(t, err)

	ids, err := es.Resolve(ctxWithTimeout, timetable.NewFilterSet(MustFilter(t, timetable.BuildFilter().Groups(100))), timetable.NewFilterSet())
	require.NoError(t, err)
	assert.Len(t, ids, numEvents)

	events, err := es.Events(ctxWithTimeout, ids)
	require.NoError(t, err)
	assert.Len(t, events, numEvents, "hydration must span several id chunks")
}

func Test_SaveTimetable_KeepsReferenceAttributesOfCachedEntities(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	refs := timetable.NewReferences()
	refs.Auditoriums[100] = timetable.Auditorium{ID: 100, Name: "287", Floor: Int64Ptr(2), HasPower: true, BuildingID: "main"}
	refs.Groups[1] = timetable.Group{ID: 1, Name: "PZPI-23-1", DirectionID: Int64Ptr(5), SpecialityID: Int64Ptr(121)}
	refs.Teachers[7] = timetable.Teacher{ID: 7, FullName: "Ivanenko Ivan Ivanovych", ShortName: "Ivanenko I. I.", DepartmentID: Int64Ptr(3)}
	require.NoError(t, es.SaveReferences(ctxWithTimeout, refs))

	// entities embedded in events carry names only
	embedded := GivenTimetable(scenario[0])
	embedded.Auditoriums[100] = timetable.Auditorium{ID: 100, Name: "287a"}
	embedded.Groups[1] = timetable.Group{ID: 1, Name: "PZPI-23-1a"}
	embedded.Teachers[7] = timetable.Teacher{ID: 7, FullName: "Ivanenko Ivan", ShortName: "Ivanenko I."}

	// act
	err := es.SaveTimetable(ctxWithTimeout, embedded)

	// assert
	require.NoError(t, err)

	auditorium, err := es.Auditorium(ctxWithTimeout, 100)
	require.NoError(t, err)
	assert.Equal(t, timetable.Auditorium{ID: 100, Name: "287a", Floor: Int64Ptr(2), HasPower: true, BuildingID: "main"}, auditorium)

	group, err := es.Group(ctxWithTimeout, 1)
	require.NoError(t, err)
	assert.Equal(t, timetable.Group{ID: 1, Name: "PZPI-23-1a", DirectionID: Int64Ptr(5), SpecialityID: Int64Ptr(121)}, group)

	teacher, err := es.Teacher(ctxWithTimeout, 7)
	require.NoError(t, err)
	assert.Equal(t, timetable.Teacher{ID: 7, FullName: "Ivanenko Ivan", ShortName: "Ivanenko I.", DepartmentID: Int64Ptr(3)}, teacher)

	unknownGroup, err := es.Group(ctxWithTimeout, 2)
	require.NoError(t, err, "entities not cached yet are inserted")
	assert.Equal(t, embedded.Groups[2], unknownGroup)
}

func Test_SaveReferences_OverwritesEveryAttribute(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// arrange
	GivenSavedTimetable(t, ctxWithTimeout, es, scenario...)

	refs := timetable.NewReferences()
	refs.Auditoriums[101] = timetable.Auditorium{ID: 101, Name: "160i", Floor: Int64Ptr(1), HasPower: true, BuildingID: "i"}
	refs.Subjects[11] = timetable.Subject{ID: 11, Title: "Databases", Brief: "DB"}
	refs.Teachers[99] = timetable.Teacher{ID: 99, FullName: "Teaching No Events", ShortName: "T. N. E."}

	// act
	err := es.SaveReferences(ctxWithTimeout, refs)

	// assert
	require.NoError(t, err)

	auditorium, err := es.Auditorium(ctxWithTimeout, 101)
	require.NoError(t, err)
	assert.Equal(t, refs.Auditoriums[101], auditorium)

	subject, err := es.Subject(ctxWithTimeout, 11)
	require.NoError(t, err)
	assert.Equal(t, refs.Subjects[11], subject)

	teacher, err := es.Teacher(ctxWithTimeout, 99)
	require.NoError(t, err)
	assert.Equal(t, refs.Teachers[99], teacher)

	events, err := es.Events(ctxWithTimeout, eventIDs(1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Len(t, events, 5, "events must be untouched")
}

func Test_SaveReferences_EmptyIsNoop(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	es := CreateWrapperWithTestConfig(t).EventStore()

	// act
	err := es.SaveReferences(ctxWithTimeout, timetable.NewReferences())

	// assert
	assert.NoError(t, err)
}
