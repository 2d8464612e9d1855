package timetable

import (
	"maps"
	"time"
)

// Event is a single scheduled class occurrence.
// Groups and Teachers are the multi-valued facets, all other facets are single-valued.
type Event struct {
	ID         EventID
	Kind       EventKind
	NumberPair int
	Subject    SubjectID
	Auditorium AuditoriumID
	Groups     FacetSet[GroupID]
	Teachers   FacetSet[TeacherID]
	StartedAt  time.Time
	EndedAt    time.Time
}

type Group struct {
	ID           GroupID
	Name         string
	DirectionID  *int64
	SpecialityID *int64
}

type Teacher struct {
	ID           TeacherID
	FullName     string
	ShortName    string
	DepartmentID *int64
}

type Subject struct {
	ID    SubjectID
	Title string
	Brief string
}

type Auditorium struct {
	ID         AuditoriumID
	Name       string
	Floor      *int64
	HasPower   bool
	BuildingID string
}

// Timetable is a self-contained batch of events together with every entity they reference.
type Timetable struct {
	Events      map[EventID]Event
	Groups      map[GroupID]Group
	Teachers    map[TeacherID]Teacher
	Subjects    map[SubjectID]Subject
	Auditoriums map[AuditoriumID]Auditorium
}

// NewTimetable returns an empty Timetable with all maps allocated.
func NewTimetable() Timetable {
	return Timetable{
		Events:      make(map[EventID]Event),
		Groups:      make(map[GroupID]Group),
		Teachers:    make(map[TeacherID]Teacher),
		Subjects:    make(map[SubjectID]Subject),
		Auditoriums: make(map[AuditoriumID]Auditorium),
	}
}

// Merge copies every entry of other into t. Entries of other win on id collisions.
func (t Timetable) Merge(other Timetable) {
	maps.Copy(t.Events, other.Events)
	maps.Copy(t.Groups, other.Groups)
	maps.Copy(t.Teachers, other.Teachers)
	maps.Copy(t.Subjects, other.Subjects)
	maps.Copy(t.Auditoriums, other.Auditoriums)
}

func (t Timetable) IsEmpty() bool {
	return len(t.Events) == 0 &&
		len(t.Groups) == 0 &&
		len(t.Teachers) == 0 &&
		len(t.Subjects) == 0 &&
		len(t.Auditoriums) == 0
}

// References is the reference data the upstream lists independently of any schedule.
// Unlike the entities embedded in a Timetable it carries every attribute.
type References struct {
	Groups      map[GroupID]Group
	Teachers    map[TeacherID]Teacher
	Subjects    map[SubjectID]Subject
	Auditoriums map[AuditoriumID]Auditorium
}

// NewReferences returns empty References with all maps allocated.
func NewReferences() References {
	return References{
		Groups:      make(map[GroupID]Group),
		Teachers:    make(map[TeacherID]Teacher),
		Subjects:    make(map[SubjectID]Subject),
		Auditoriums: make(map[AuditoriumID]Auditorium),
	}
}

// Merge copies every entry of other into r. Entries of other win on id collisions.
func (r References) Merge(other References) {
	maps.Copy(r.Groups, other.Groups)
	maps.Copy(r.Teachers, other.Teachers)
	maps.Copy(r.Subjects, other.Subjects)
	maps.Copy(r.Auditoriums, other.Auditoriums)
}

func (r References) IsEmpty() bool {
	return len(r.Groups) == 0 &&
		len(r.Teachers) == 0 &&
		len(r.Subjects) == 0 &&
		len(r.Auditoriums) == 0
}

func (r References) Len() int {
	return len(r.Groups) + len(r.Teachers) + len(r.Subjects) + len(r.Auditoriums)
}
