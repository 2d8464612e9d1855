package timetable

import "strings"

// EventKind classifies an event. It is persisted as its numeric code.
type EventKind uint8

// EventKindsVersion is bumped whenever a kind is added. Codes of existing kinds never change.
const EventKindsVersion = 1

const (
	Lecture EventKind = iota
	PracticalWork
	LaboratoryWork
	Consultation
	FinalTest
	Exam
	CourseWork
	UnknownKind
)

var eventKindNames = [...]string{
	Lecture:        "lecture",
	PracticalWork:  "practical_work",
	LaboratoryWork: "laboratory_work",
	Consultation:   "consultation",
	FinalTest:      "final_test",
	Exam:           "exam",
	CourseWork:     "course_work",
	UnknownKind:    "unknown",
}

// upstream abbreviations as served by the schedule API
var eventKindTags = map[string]EventKind{
	"Лк":    Lecture,
	"Пз":    PracticalWork,
	"Лб":    LaboratoryWork,
	"Конс":  Consultation,
	"Зал":   FinalTest,
	"Екз":   Exam,
	"КП/КР": CourseWork,
}

// EventKindFromCode maps a stored code back to a kind. Codes outside the known range become UnknownKind.
func EventKindFromCode(code int64) EventKind {
	if code < 0 || code >= int64(UnknownKind) {
		return UnknownKind
	}

	return EventKind(code)
}

// ParseEventKind accepts an upstream abbreviation or an English kind name.
// Anything unrecognized is UnknownKind.
func ParseEventKind(tag string) EventKind {
	tag = strings.TrimSpace(tag)

	if kind, ok := eventKindTags[tag]; ok {
		return kind
	}

	lowered := strings.ToLower(tag)
	for kind, name := range eventKindNames {
		if name == lowered {
			return EventKind(kind)
		}
	}

	return UnknownKind
}

// Code returns the persisted numeric representation.
func (k EventKind) Code() int64 {
	return int64(k)
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}

	return eventKindNames[UnknownKind]
}
