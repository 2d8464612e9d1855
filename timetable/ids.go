package timetable

// Identifier types are kept distinct so that a group id can never be passed where a teacher id is expected.
type (
	EventID      int64
	SubjectID    int64
	AuditoriumID int64
	GroupID      int64
	TeacherID    int64
)
