// Package timetable holds the domain types of the local timetable cache.
//
// Events carry five facets: a kind, a subject, an auditorium, a set of groups and a set of teachers.
// Callers describe which events they want with a Filter, a conjunction of facet constraints,
// and combine filters into include and exclude FilterSets. Store implementations turn those
// sets into a single query.
//
// Key types:
//   - FacetSet: ordered, duplicate-free set of identifiers of one facet
//   - Filter: immutable conjunction of facet constraints, built with BuildFilter
//   - FilterSet: ordered, duplicate-free collection of filters
//   - Event, Group, Teacher, Subject, Auditorium, Timetable: cached read models
//
// Common usage pattern:
//
//	myGroup, err := timetable.BuildFilter().
//		Groups(groupID).
//		Finalize()
//	if err != nil {
//		// handle error
//	}
//
//	noExams, err := timetable.BuildFilter().
//		Kinds(timetable.Exam, timetable.FinalTest).
//		Finalize()
//	if err != nil {
//		// handle error
//	}
//
//	ids, err := store.Resolve(ctx, timetable.NewFilterSet(myGroup), timetable.NewFilterSet(noExams))
package timetable
