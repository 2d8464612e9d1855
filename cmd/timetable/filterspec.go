package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/linerds/timetable-go/timetable"
)

var ErrInvalidFilterSpec = errors.New("invalid filter spec")

// parseFilterSpec turns "groups=1,2;kinds=lecture,exam" into a Filter.
// Facets are separated by ';', values by ','. Accepted facets: kinds, subjects, auditoriums,
// groups and teachers, singular forms included. Kinds take English names or upstream abbreviations.
func parseFilterSpec(spec string) (timetable.Filter, error) {
	fb := timetable.BuildFilter()
	seen := make(map[string]bool)

	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		facet, rawValues, found := strings.Cut(part, "=")
		if !found {
			return timetable.Filter{}, errors.Join(ErrInvalidFilterSpec, fmt.Errorf("%q: expected facet=values", part))
		}

		facet = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(facet)), "s")
		if seen[facet] {
			return timetable.Filter{}, errors.Join(ErrInvalidFilterSpec, fmt.Errorf("facet %q given twice", facet))
		}
		seen[facet] = true

		values := splitValues(rawValues)
		if len(values) == 0 {
			return timetable.Filter{}, errors.Join(ErrInvalidFilterSpec, fmt.Errorf("facet %q has no values", facet))
		}

		var err error

		switch facet {
		case "kind":
			var kinds []timetable.EventKind
			kinds, err = parseKinds(values)
			fb = fb.Kinds(kinds...)
		case "subject":
			var ids []timetable.SubjectID
			ids, err = parseIDs[timetable.SubjectID](values)
			fb = fb.Subjects(ids...)
		case "auditorium":
			var ids []timetable.AuditoriumID
			ids, err = parseIDs[timetable.AuditoriumID](values)
			fb = fb.Auditoriums(ids...)
		case "group":
			var ids []timetable.GroupID
			ids, err = parseIDs[timetable.GroupID](values)
			fb = fb.Groups(ids...)
		case "teacher":
			var ids []timetable.TeacherID
			ids, err = parseIDs[timetable.TeacherID](values)
			fb = fb.Teachers(ids...)
		default:
			err = fmt.Errorf("unknown facet %q", facet)
		}

		if err != nil {
			return timetable.Filter{}, errors.Join(ErrInvalidFilterSpec, err)
		}
	}

	filter, err := fb.Finalize()
	if err != nil {
		return timetable.Filter{}, errors.Join(ErrInvalidFilterSpec, err)
	}

	return filter, nil
}

// parseFilterSet parses every spec and collects the filters into one FilterSet.
func parseFilterSet(specs []string) (timetable.FilterSet, error) {
	filters := make([]timetable.Filter, 0, len(specs))

	for _, spec := range specs {
		filter, err := parseFilterSpec(spec)
		if err != nil {
			return timetable.FilterSet{}, err
		}

		filters = append(filters, filter)
	}

	return timetable.NewFilterSet(filters...), nil
}

func splitValues(raw string) []string {
	values := make([]string, 0)

	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}

func parseIDs[T ~int64](values []string) ([]T, error) {
	ids := make([]T, 0, len(values))

	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id", v)
		}

		ids = append(ids, T(id))
	}

	return ids, nil
}

func parseKinds(values []string) ([]timetable.EventKind, error) {
	kinds := make([]timetable.EventKind, 0, len(values))

	for _, v := range values {
		kind := timetable.ParseEventKind(v)
		if kind == timetable.UnknownKind && !strings.EqualFold(v, timetable.UnknownKind.String()) {
			return nil, fmt.Errorf("%q is not an event kind", v)
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}
