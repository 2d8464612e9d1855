package mindenit

import (
	"errors"
	"fmt"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

// envelope wraps every payload except the health check.
type envelope[T any] struct {
	Data       *T      `json:"data"`
	Success    *bool   `json:"success"`
	Error      *string `json:"error"`
	Message    *string `json:"message"`
	StatusCode *int    `json:"statusCode"`
}

func (e envelope[T]) unwrap() (T, error) {
	if e.Data != nil {
		return *e.Data, nil
	}

	var zero T

	return zero, errors.Join(ErrBadResponse, errors.New(e.detail()))
}

// detail picks the most descriptive explanation: message, then error, then the status code.
func (e envelope[T]) detail() string {
	switch {
	case e.Message != nil && *e.Message != "":
		return *e.Message
	case e.Error != nil && *e.Error != "":
		return *e.Error
	case e.StatusCode != nil:
		return fmt.Sprintf("Status code %d", *e.StatusCode)
	default:
		return "No relevant information"
	}
}

// Health is the status report of the upstream API.
type Health struct {
	Uptime  float64 `json:"uptime"`
	Message string  `json:"message"`
	Date    string  `json:"date"`
}

type rawGroup struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DirectionID  *int64 `json:"directionId"`
	SpecialityID *int64 `json:"specialityId"`
}

type rawTeacher struct {
	ID           int64  `json:"id"`
	FullName     string `json:"fullName"`
	ShortName    string `json:"shortName"`
	DepartmentID *int64 `json:"departmentId"`
}

type rawSubject struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Brief string `json:"brief"`
}

type rawAuditorium struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Floor      *int64 `json:"floor"`
	HasPower   bool   `json:"hasPower"`
	BuildingID string `json:"buildingId"`
}

type rawEvent struct {
	ID         int64  `json:"id"`
	StartedAt  int64  `json:"startedAt"`
	EndedAt    int64  `json:"endedAt"`
	NumberPair int    `json:"numberPair"`
	Kind       string `json:"type"`
	Groups     []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"groups"`
	Teachers []struct {
		ID        int64  `json:"id"`
		FullName  string `json:"fullName"`
		ShortName string `json:"shortName"`
	} `json:"teachers"`
	Subject struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		Brief string `json:"brief"`
	} `json:"subject"`
	Auditorium struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"auditorium"`
}

func normalizeGroups(raw []rawGroup) map[timetable.GroupID]timetable.Group {
	groups := make(map[timetable.GroupID]timetable.Group, len(raw))
	for _, g := range raw {
		id := timetable.GroupID(g.ID)
		groups[id] = timetable.Group{ID: id, Name: g.Name, DirectionID: g.DirectionID, SpecialityID: g.SpecialityID}
	}

	return groups
}

func normalizeTeachers(raw []rawTeacher) map[timetable.TeacherID]timetable.Teacher {
	teachers := make(map[timetable.TeacherID]timetable.Teacher, len(raw))
	for _, t := range raw {
		id := timetable.TeacherID(t.ID)
		teachers[id] = timetable.Teacher{ID: id, FullName: t.FullName, ShortName: t.ShortName, DepartmentID: t.DepartmentID}
	}

	return teachers
}

func normalizeSubjects(raw []rawSubject) map[timetable.SubjectID]timetable.Subject {
	subjects := make(map[timetable.SubjectID]timetable.Subject, len(raw))
	for _, s := range raw {
		id := timetable.SubjectID(s.ID)
		subjects[id] = timetable.Subject{ID: id, Title: s.Name, Brief: s.Brief}
	}

	return subjects
}

func normalizeAuditoriums(raw []rawAuditorium) map[timetable.AuditoriumID]timetable.Auditorium {
	auditoriums := make(map[timetable.AuditoriumID]timetable.Auditorium, len(raw))
	for _, a := range raw {
		id := timetable.AuditoriumID(a.ID)
		auditoriums[id] = timetable.Auditorium{
			ID:         id,
			Name:       a.Name,
			Floor:      a.Floor,
			HasPower:   a.HasPower,
			BuildingID: a.BuildingID,
		}
	}

	return auditoriums
}

// normalizeTimetable flattens the nested entities of each event into the maps of a Timetable.
// Entities embedded in events carry only their names, the remaining fields stay unset.
func normalizeTimetable(raw []rawEvent) timetable.Timetable {
	tt := timetable.NewTimetable()

	for _, e := range raw {
		groupIDs := make([]timetable.GroupID, 0, len(e.Groups))
		for _, g := range e.Groups {
			id := timetable.GroupID(g.ID)
			groupIDs = append(groupIDs, id)
			tt.Groups[id] = timetable.Group{ID: id, Name: g.Name}
		}

		teacherIDs := make([]timetable.TeacherID, 0, len(e.Teachers))
		for _, t := range e.Teachers {
			id := timetable.TeacherID(t.ID)
			teacherIDs = append(teacherIDs, id)
			tt.Teachers[id] = timetable.Teacher{ID: id, FullName: t.FullName, ShortName: t.ShortName}
		}

		subjectID := timetable.SubjectID(e.Subject.ID)
		tt.Subjects[subjectID] = timetable.Subject{ID: subjectID, Title: e.Subject.Title, Brief: e.Subject.Brief}

		auditoriumID := timetable.AuditoriumID(e.Auditorium.ID)
		tt.Auditoriums[auditoriumID] = timetable.Auditorium{ID: auditoriumID, Name: e.Auditorium.Name}

		eventID := timetable.EventID(e.ID)
		tt.Events[eventID] = timetable.Event{
			ID:         eventID,
			Kind:       timetable.ParseEventKind(e.Kind),
			NumberPair: e.NumberPair,
			Subject:    subjectID,
			Auditorium: auditoriumID,
			Groups:     timetable.NewFacetSet(groupIDs...),
			Teachers:   timetable.NewFacetSet(teacherIDs...),
			StartedAt:  time.Unix(e.StartedAt, 0).UTC(),
			EndedAt:    time.Unix(e.EndedAt, 0).UTC(),
		}
	}

	return tt
}
