package timetable

import (
	"slices"
)

/***** Filter *****/

// Filter is a conjunction of facet constraints. An empty facet places no constraint.
//
// Single-valued facets (kind, subject, auditorium) match when the event's value is one of the listed ones.
// Multi-valued facets (groups, teachers) match when the event's set contains every listed member.
type Filter struct {
	kinds       FacetSet[EventKind]
	subjects    FacetSet[SubjectID]
	auditoriums FacetSet[AuditoriumID]
	groups      FacetSet[GroupID]
	teachers    FacetSet[TeacherID]
}

func (f Filter) Kinds() FacetSet[EventKind] {
	return f.kinds
}

func (f Filter) Subjects() FacetSet[SubjectID] {
	return f.subjects
}

func (f Filter) Auditoriums() FacetSet[AuditoriumID] {
	return f.auditoriums
}

func (f Filter) Groups() FacetSet[GroupID] {
	return f.groups
}

func (f Filter) Teachers() FacetSet[TeacherID] {
	return f.teachers
}

// IsEmpty reports whether no facet constrains anything.
func (f Filter) IsEmpty() bool {
	return f.kinds.IsEmpty() &&
		f.subjects.IsEmpty() &&
		f.auditoriums.IsEmpty() &&
		f.groups.IsEmpty() &&
		f.teachers.IsEmpty()
}

// Compare defines a total order over filters: kinds, subjects, auditoriums, groups, teachers.
func (f Filter) Compare(other Filter) int {
	if c := f.kinds.Compare(other.kinds); c != 0 {
		return c
	}

	if c := f.subjects.Compare(other.subjects); c != 0 {
		return c
	}

	if c := f.auditoriums.Compare(other.auditoriums); c != 0 {
		return c
	}

	if c := f.groups.Compare(other.groups); c != 0 {
		return c
	}

	return f.teachers.Compare(other.teachers)
}

func (f Filter) Equal(other Filter) bool {
	return f.Compare(other) == 0
}

// Matches evaluates the filter against a single event in memory.
// An empty filter matches nothing.
func (f Filter) Matches(event Event) bool {
	if f.IsEmpty() {
		return false
	}

	if !f.kinds.IsEmpty() && !f.kinds.Contains(event.Kind) {
		return false
	}

	if !f.subjects.IsEmpty() && !f.subjects.Contains(event.Subject) {
		return false
	}

	if !f.auditoriums.IsEmpty() && !f.auditoriums.Contains(event.Auditorium) {
		return false
	}

	return f.groups.IsSubsetOf(event.Groups) && f.teachers.IsSubsetOf(event.Teachers)
}

/***** FilterBuilder *****/

// FilterBuilder assembles a Filter. It is a value type, so every setter returns a new builder
// and a partially configured builder can be reused as a template.
//
// Each setter replaces its facet wholesale. Input is sorted and de-duplicated.
type FilterBuilder struct {
	filter Filter
}

// BuildFilter starts a FilterBuilder with all facets empty.
func BuildFilter() FilterBuilder {
	return FilterBuilder{}
}

func (fb FilterBuilder) Kinds(kinds ...EventKind) FilterBuilder {
	fb.filter.kinds = NewFacetSet(kinds...)
	return fb
}

func (fb FilterBuilder) Subjects(subjects ...SubjectID) FilterBuilder {
	fb.filter.subjects = NewFacetSet(subjects...)
	return fb
}

func (fb FilterBuilder) Auditoriums(auditoriums ...AuditoriumID) FilterBuilder {
	fb.filter.auditoriums = NewFacetSet(auditoriums...)
	return fb
}

func (fb FilterBuilder) Groups(groups ...GroupID) FilterBuilder {
	fb.filter.groups = NewFacetSet(groups...)
	return fb
}

func (fb FilterBuilder) Teachers(teachers ...TeacherID) FilterBuilder {
	fb.filter.teachers = NewFacetSet(teachers...)
	return fb
}

// Finalize returns the Filter once at least one facet is non-empty, otherwise ErrEmptyFilter.
func (fb FilterBuilder) Finalize() (Filter, error) {
	if fb.filter.IsEmpty() {
		return Filter{}, ErrEmptyFilter
	}

	return fb.filter, nil
}

/***** FilterSet *****/

// FilterSet is an ordered, duplicate-free collection of filters.
type FilterSet struct {
	filters []Filter
}

// NewFilterSet sorts the filters and removes structural duplicates.
func NewFilterSet(filters ...Filter) FilterSet {
	if len(filters) == 0 {
		return FilterSet{}
	}

	sanitized := slices.Clone(filters)
	slices.SortFunc(sanitized, Filter.Compare)
	sanitized = slices.CompactFunc(sanitized, Filter.Equal)

	return FilterSet{filters: slices.Clip(sanitized)}
}

func (fs FilterSet) Filters() []Filter {
	return slices.Clone(fs.filters)
}

func (fs FilterSet) Len() int {
	return len(fs.filters)
}

func (fs FilterSet) IsEmpty() bool {
	return len(fs.filters) == 0
}

func (fs FilterSet) Contains(filter Filter) bool {
	_, found := slices.BinarySearchFunc(fs.filters, filter, Filter.Compare)
	return found
}

// Without returns the filters of fs that are not in other.
func (fs FilterSet) Without(other FilterSet) FilterSet {
	remaining := make([]Filter, 0, len(fs.filters))

	for _, f := range fs.filters {
		if !other.Contains(f) {
			remaining = append(remaining, f)
		}
	}

	return FilterSet{filters: slices.Clip(remaining)}
}
