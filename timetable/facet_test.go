package timetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linerds/timetable-go/timetable"
)

func Test_FacetSet(t *testing.T) {
	set := timetable.NewFacetSet[timetable.GroupID](5, 1, 3, 1)

	assert.Equal(t, []timetable.GroupID{1, 3, 5}, set.Values())
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contains(3))
	assert.False(t, set.Contains(2))
	assert.True(t, timetable.NewFacetSet[timetable.GroupID](1, 5).IsSubsetOf(set))
	assert.False(t, timetable.NewFacetSet[timetable.GroupID](1, 2).IsSubsetOf(set))
	assert.True(t, timetable.FacetSet[timetable.GroupID]{}.IsSubsetOf(set))
	assert.True(t, timetable.FacetSet[timetable.GroupID]{}.IsEmpty())
}

func Test_FacetSet_ValuesAreCopies(t *testing.T) {
	set := timetable.NewFacetSet[timetable.TeacherID](1, 2)

	values := set.Values()
	values[0] = 99

	assert.Equal(t, []timetable.TeacherID{1, 2}, set.Values())
}

func Test_FacetSet_InputIsNotMutated(t *testing.T) {
	input := []timetable.SubjectID{3, 1, 2}

	_ = timetable.NewFacetSet(input...)

	assert.Equal(t, []timetable.SubjectID{3, 1, 2}, input)
}

func Test_EventKind(t *testing.T) {
	tests := []struct {
		tag  string
		kind timetable.EventKind
	}{
		{"Лк", timetable.Lecture},
		{"Пз", timetable.PracticalWork},
		{"Лб", timetable.LaboratoryWork},
		{"Конс", timetable.Consultation},
		{"Зал", timetable.FinalTest},
		{"Екз", timetable.Exam},
		{"КП/КР", timetable.CourseWork},
		{"exam", timetable.Exam},
		{" Lecture ", timetable.Lecture},
		{"Семінар", timetable.UnknownKind},
		{"", timetable.UnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.kind, timetable.ParseEventKind(tt.tag))
		})
	}

	assert.Equal(t, timetable.Exam, timetable.EventKindFromCode(5))
	assert.Equal(t, timetable.UnknownKind, timetable.EventKindFromCode(42))
	assert.Equal(t, timetable.UnknownKind, timetable.EventKindFromCode(-1))
	assert.Equal(t, int64(6), timetable.CourseWork.Code())
	assert.Equal(t, "laboratory_work", timetable.LaboratoryWork.String())
	assert.Equal(t, "unknown", timetable.EventKind(200).String())
}
