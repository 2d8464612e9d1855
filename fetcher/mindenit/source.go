package mindenit

import (
	"fmt"

	"github.com/linerds/timetable-go/timetable"
)

// SourceKind names the entity a schedule is published for.
type SourceKind uint8

const (
	GroupSourceKind SourceKind = iota
	TeacherSourceKind
	AuditoriumSourceKind
)

func (k SourceKind) String() string {
	switch k {
	case GroupSourceKind:
		return "group"
	case TeacherSourceKind:
		return "teacher"
	case AuditoriumSourceKind:
		return "auditorium"
	default:
		return "unknown"
	}
}

// Source identifies one upstream schedule.
type Source struct {
	kind SourceKind
	id   int64
}

func GroupSource(id timetable.GroupID) Source {
	return Source{kind: GroupSourceKind, id: int64(id)}
}

func TeacherSource(id timetable.TeacherID) Source {
	return Source{kind: TeacherSourceKind, id: int64(id)}
}

func AuditoriumSource(id timetable.AuditoriumID) Source {
	return Source{kind: AuditoriumSourceKind, id: int64(id)}
}

func (s Source) Kind() SourceKind {
	return s.kind
}

func (s Source) ID() int64 {
	return s.id
}

// String renders the source as "kind:id", e.g. "group:10887".
func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.kind, s.id)
}

func (s Source) endpoint() string {
	switch s.kind {
	case TeacherSourceKind:
		return fmt.Sprintf("teachers/%d/schedule", s.id)
	case AuditoriumSourceKind:
		return fmt.Sprintf("auditoriums/%d/schedule", s.id)
	default:
		return fmt.Sprintf("groups/%d/schedule", s.id)
	}
}
