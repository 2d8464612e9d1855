package sqlengine

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/linerds/timetable-go/timetable"
	"github.com/linerds/timetable-go/timetable/sqlengine/internal/adapters"
)

// idChunkSize bounds the number of ids inlined into a single IN list.
const idChunkSize = 500

type eventRow struct {
	event    timetable.Event
	groups   []timetable.GroupID
	teachers []timetable.TeacherID
}

// Events hydrates the given ids, typically the result of Resolve, ordered by start time.
// Unknown ids are skipped.
func (es EventStore) Events(ctx context.Context, ids []timetable.EventID) ([]timetable.Event, error) {
	rowsByID := make(map[timetable.EventID]*eventRow, len(ids))

	for chunk := range slices.Chunk(ids, idChunkSize) {
		if err := es.hydrateChunk(ctx, chunk, rowsByID); err != nil {
			return nil, err
		}
	}

	events := make([]timetable.Event, 0, len(rowsByID))
	for _, row := range rowsByID {
		row.event.Groups = timetable.NewFacetSet(row.groups...)
		row.event.Teachers = timetable.NewFacetSet(row.teachers...)
		events = append(events, row.event)
	}

	slices.SortFunc(events, func(a, b timetable.Event) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), cmp.Compare(a.ID, b.ID))
	})

	return events, nil
}

// Event hydrates a single event. It fails with ErrNotFound if the id is not cached.
func (es EventStore) Event(ctx context.Context, id timetable.EventID) (timetable.Event, error) {
	events, err := es.Events(ctx, []timetable.EventID{id})
	if err != nil {
		return timetable.Event{}, err
	}

	if len(events) == 0 {
		return timetable.Event{}, errors.Join(timetable.ErrNotFound, fmt.Errorf("event %d", id))
	}

	return events[0], nil
}

func (es EventStore) hydrateChunk(ctx context.Context, ids []timetable.EventID, rowsByID map[timetable.EventID]*eventRow) error {
	eventIDs := make([]int64, len(ids))
	for i, id := range ids {
		eventIDs[i] = int64(id)
	}

	eventsStmt := es.compiler.dialect.
		From(es.tables.events).
		Select(colID, colKind, colNumberPair, colSubjectID, colAuditoriumID, colStartedAt, colEndedAt).
		Where(goqu.C(colID).In(eventIDs))

	err := es.querySelect(ctx, eventsStmt, logActionHydrate, func(rows adapters.DBRows) error {
		var id, kind, numberPair, subjectID, auditoriumID, startedAt, endedAt int64
		if err := rows.Scan(&id, &kind, &numberPair, &subjectID, &auditoriumID, &startedAt, &endedAt); err != nil {
			return err
		}

		rowsByID[timetable.EventID(id)] = &eventRow{event: timetable.Event{
			ID:         timetable.EventID(id),
			Kind:       timetable.EventKindFromCode(kind),
			NumberPair: int(numberPair),
			Subject:    timetable.SubjectID(subjectID),
			Auditorium: timetable.AuditoriumID(auditoriumID),
			StartedAt:  time.Unix(startedAt, 0).UTC(),
			EndedAt:    time.Unix(endedAt, 0).UTC(),
		}}

		return nil
	})
	if err != nil {
		return err
	}

	groupsStmt := es.compiler.dialect.
		From(es.tables.eventGroups).
		Select(colEventID, colGroupID).
		Where(goqu.C(colEventID).In(eventIDs))

	err = es.querySelect(ctx, groupsStmt, logActionHydrate, func(rows adapters.DBRows) error {
		var eventID, groupID int64
		if err := rows.Scan(&eventID, &groupID); err != nil {
			return err
		}

		if row, ok := rowsByID[timetable.EventID(eventID)]; ok {
			row.groups = append(row.groups, timetable.GroupID(groupID))
		}

		return nil
	})
	if err != nil {
		return err
	}

	teachersStmt := es.compiler.dialect.
		From(es.tables.eventTeachers).
		Select(colEventID, colTeacherID).
		Where(goqu.C(colEventID).In(eventIDs))

	return es.querySelect(ctx, teachersStmt, logActionHydrate, func(rows adapters.DBRows) error {
		var eventID, teacherID int64
		if err := rows.Scan(&eventID, &teacherID); err != nil {
			return err
		}

		if row, ok := rowsByID[timetable.EventID(eventID)]; ok {
			row.teachers = append(row.teachers, timetable.TeacherID(teacherID))
		}

		return nil
	})
}

// Group returns a cached study group or ErrNotFound.
func (es EventStore) Group(ctx context.Context, id timetable.GroupID) (timetable.Group, error) {
	var group timetable.Group
	found := false

	stmt := es.compiler.dialect.
		From(es.tables.groups).
		Select(colID, colName, colDirectionID, colSpecialityID).
		Where(goqu.C(colID).Eq(int64(id)))

	err := es.querySelect(ctx, stmt, logActionHydrate, func(rows adapters.DBRows) error {
		var rowID int64
		var directionID, specialityID sql.NullInt64
		if err := rows.Scan(&rowID, &group.Name, &directionID, &specialityID); err != nil {
			return err
		}

		group.ID = timetable.GroupID(rowID)
		group.DirectionID = fromNullInt64(directionID)
		group.SpecialityID = fromNullInt64(specialityID)
		found = true

		return nil
	})
	if err != nil {
		return timetable.Group{}, err
	}

	if !found {
		return timetable.Group{}, errors.Join(timetable.ErrNotFound, fmt.Errorf("group %d", id))
	}

	return group, nil
}

// Teacher returns a cached teacher or ErrNotFound.
func (es EventStore) Teacher(ctx context.Context, id timetable.TeacherID) (timetable.Teacher, error) {
	var teacher timetable.Teacher
	found := false

	stmt := es.compiler.dialect.
		From(es.tables.teachers).
		Select(colID, colFullName, colShortName, colDepartmentID).
		Where(goqu.C(colID).Eq(int64(id)))

	err := es.querySelect(ctx, stmt, logActionHydrate, func(rows adapters.DBRows) error {
		var rowID int64
		var departmentID sql.NullInt64
		if err := rows.Scan(&rowID, &teacher.FullName, &teacher.ShortName, &departmentID); err != nil {
			return err
		}

		teacher.ID = timetable.TeacherID(rowID)
		teacher.DepartmentID = fromNullInt64(departmentID)
		found = true

		return nil
	})
	if err != nil {
		return timetable.Teacher{}, err
	}

	if !found {
		return timetable.Teacher{}, errors.Join(timetable.ErrNotFound, fmt.Errorf("teacher %d", id))
	}

	return teacher, nil
}

// Subject returns a cached subject or ErrNotFound.
func (es EventStore) Subject(ctx context.Context, id timetable.SubjectID) (timetable.Subject, error) {
	var subject timetable.Subject
	found := false

	stmt := es.compiler.dialect.
		From(es.tables.subjects).
		Select(colID, colTitle, colBrief).
		Where(goqu.C(colID).Eq(int64(id)))

	err := es.querySelect(ctx, stmt, logActionHydrate, func(rows adapters.DBRows) error {
		var rowID int64
		if err := rows.Scan(&rowID, &subject.Title, &subject.Brief); err != nil {
			return err
		}

		subject.ID = timetable.SubjectID(rowID)
		found = true

		return nil
	})
	if err != nil {
		return timetable.Subject{}, err
	}

	if !found {
		return timetable.Subject{}, errors.Join(timetable.ErrNotFound, fmt.Errorf("subject %d", id))
	}

	return subject, nil
}

// Auditorium returns a cached auditorium or ErrNotFound.
func (es EventStore) Auditorium(ctx context.Context, id timetable.AuditoriumID) (timetable.Auditorium, error) {
	var auditorium timetable.Auditorium
	found := false

	stmt := es.compiler.dialect.
		From(es.tables.auditoriums).
		Select(colID, colName, colFloor, colHasPower, colBuildingID).
		Where(goqu.C(colID).Eq(int64(id)))

	err := es.querySelect(ctx, stmt, logActionHydrate, func(rows adapters.DBRows) error {
		var rowID int64
		var floor sql.NullInt64
		if err := rows.Scan(&rowID, &auditorium.Name, &floor, &auditorium.HasPower, &auditorium.BuildingID); err != nil {
			return err
		}

		auditorium.ID = timetable.AuditoriumID(rowID)
		auditorium.Floor = fromNullInt64(floor)
		found = true

		return nil
	})
	if err != nil {
		return timetable.Auditorium{}, err
	}

	if !found {
		return timetable.Auditorium{}, errors.Join(timetable.ErrNotFound, fmt.Errorf("auditorium %d", id))
	}

	return auditorium, nil
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}

	v := n.Int64
	return &v
}
