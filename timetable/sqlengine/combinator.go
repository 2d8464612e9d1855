package sqlengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/linerds/timetable-go/timetable"
)

// Composition is the single query resolving an include/exclude pair of filter sets.
type Composition struct {
	SQL string

	// Includes and Excludes count the filters that contributed a fragment.
	Includes int
	Excludes int

	// Cancelled counts filters present in both sets.
	Cancelled int
}

// Empty reports whether the composition is known to select nothing. No query has to run then.
func (c Composition) Empty() bool {
	return c.SQL == ""
}

// Compose combines include and exclude filter sets into one query:
//
//  1. filters present in both sets cancel out and are removed from both
//  2. without any remaining include filter the result is empty
//  3. include fragments are combined with UNION
//  4. remaining exclude fragments are combined with UNION and subtracted from the include union
//
// Empty filters are skipped. Subtraction is rendered as "id NOT IN (...)", which selects the
// same ids as chaining the exclude fragments with EXCEPT.
func (c Compiler) Compose(include, exclude timetable.FilterSet) (Composition, error) {
	includes := include.Without(exclude)
	excludes := exclude.Without(include)

	composition := Composition{Cancelled: include.Len() - includes.Len()}

	includeStmt, includeCount := c.union(includes)
	if includeStmt == nil {
		return composition, nil
	}

	composition.Includes = includeCount
	composedStmt := includeStmt

	excludeStmt, excludeCount := c.union(excludes)
	if excludeStmt != nil {
		composition.Excludes = excludeCount
		includedID := goqu.T(aliasIncluded).Col(colID)

		composedStmt = c.dialect.
			From(includeStmt.As(aliasIncluded)).
			Select(includedID).
			Where(includedID.NotIn(excludeStmt))
	}

	sqlQuery, _, toSQLErr := composedStmt.ToSQL()
	if toSQLErr != nil {
		return Composition{}, errors.Join(timetable.ErrBuildingQueryFailed, toSQLErr)
	}

	composition.SQL = sqlQuery

	return composition, nil
}

// union combines the fragments of all non-empty filters. It returns nil when no filter contributed.
func (c Compiler) union(filters timetable.FilterSet) (*goqu.SelectDataset, int) {
	var combined *goqu.SelectDataset
	count := 0

	for _, filter := range filters.Filters() {
		fragment, ok := c.CompileFilter(filter)
		if !ok {
			continue
		}

		count++

		if combined == nil {
			combined = fragment
			continue
		}

		combined = combined.Union(fragment)
	}

	return combined, count
}
