package timetable

import (
	"cmp"
	"slices"
)

/***** FacetSet *****/

// FacetSet is an ordered, duplicate-free set of identifiers of a single facet.
// The zero value is the empty set, which means "no constraint" for that facet.
type FacetSet[T cmp.Ordered] struct {
	values []T
}

// NewFacetSet builds a FacetSet from the given values.
//
// It sanitizes the input:
//   - sorting the values
//   - removing duplicate values
func NewFacetSet[T cmp.Ordered](values ...T) FacetSet[T] {
	if len(values) == 0 {
		return FacetSet[T]{}
	}

	sanitized := slices.Clone(values)
	slices.Sort(sanitized)
	sanitized = slices.Clip(slices.Compact(sanitized))

	return FacetSet[T]{values: sanitized}
}

// Values returns the members in ascending order.
func (fs FacetSet[T]) Values() []T {
	return slices.Clone(fs.values)
}

func (fs FacetSet[T]) Len() int {
	return len(fs.values)
}

func (fs FacetSet[T]) IsEmpty() bool {
	return len(fs.values) == 0
}

func (fs FacetSet[T]) Contains(value T) bool {
	_, found := slices.BinarySearch(fs.values, value)
	return found
}

// IsSubsetOf reports whether every member of fs is also a member of other.
func (fs FacetSet[T]) IsSubsetOf(other FacetSet[T]) bool {
	for _, v := range fs.values {
		if !other.Contains(v) {
			return false
		}
	}

	return true
}

// Compare orders FacetSets lexicographically by their sorted members.
func (fs FacetSet[T]) Compare(other FacetSet[T]) int {
	return slices.Compare(fs.values, other.values)
}

func (fs FacetSet[T]) Equal(other FacetSet[T]) bool {
	return slices.Equal(fs.values, other.values)
}
