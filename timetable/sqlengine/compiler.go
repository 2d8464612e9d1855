package sqlengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/linerds/timetable-go/timetable"
)

// Dialect names a goqu SQL dialect the compiler can render for.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const (
	aliasEvent         = "e"
	aliasEventGroups   = "eg"
	aliasEventTeachers = "et"
	aliasIncluded      = "included"
)

func (d Dialect) validate() error {
	switch d {
	case DialectPostgres, DialectSQLite:
		return nil
	default:
		return errors.Join(timetable.ErrUnsupportedDialect, errors.New(string(d)))
	}
}

// Compiler turns filters into SELECT statements over the events schema.
// It is pure: it never touches a database.
type Compiler struct {
	dialect goqu.DialectWrapper
	tables  tableNames
}

// NewCompiler creates a Compiler for the given dialect and table name prefix.
func NewCompiler(dialect Dialect, tablePrefix string) (Compiler, error) {
	if err := dialect.validate(); err != nil {
		return Compiler{}, err
	}

	return Compiler{
		dialect: goqu.Dialect(string(dialect)),
		tables:  newTableNames(tablePrefix),
	}, nil
}

// CompileFilter builds the query selecting the ids of all events matching the filter.
//
// Single-valued facets restrict the event row directly. Multi-valued facets join their
// membership table, restrict the member id and require via GROUP BY ... HAVING COUNT(DISTINCT ...)
// that every listed member was found, so the event's set must be a superset of the filter's.
//
// An empty filter contributes nothing and yields false.
func (c Compiler) CompileFilter(filter timetable.Filter) (*goqu.SelectDataset, bool) {
	if filter.IsEmpty() {
		return nil, false
	}

	eventID := goqu.T(aliasEvent).Col(colID)

	selectStmt := c.dialect.
		From(goqu.T(c.tables.events).As(aliasEvent)).
		Select(eventID)

	conditions := make([]exp.Expression, 0, 5)
	having := make([]exp.Expression, 0, 2)

	conditions = appendRestriction(conditions, goqu.T(aliasEvent).Col(colKind), kindCodes(filter.Kinds()))
	conditions = appendRestriction(conditions, goqu.T(aliasEvent).Col(colSubjectID), facetValues(filter.Subjects()))
	conditions = appendRestriction(conditions, goqu.T(aliasEvent).Col(colAuditoriumID), facetValues(filter.Auditoriums()))

	if groups := filter.Groups(); !groups.IsEmpty() {
		member := goqu.T(aliasEventGroups).Col(colGroupID)

		selectStmt = selectStmt.InnerJoin(
			goqu.T(c.tables.eventGroups).As(aliasEventGroups),
			goqu.On(goqu.T(aliasEventGroups).Col(colEventID).Eq(eventID)),
		)
		conditions = appendRestriction(conditions, member, facetValues(groups))
		having = append(having, goqu.COUNT(goqu.DISTINCT(member)).Eq(groups.Len()))
	}

	if teachers := filter.Teachers(); !teachers.IsEmpty() {
		member := goqu.T(aliasEventTeachers).Col(colTeacherID)

		selectStmt = selectStmt.InnerJoin(
			goqu.T(c.tables.eventTeachers).As(aliasEventTeachers),
			goqu.On(goqu.T(aliasEventTeachers).Col(colEventID).Eq(eventID)),
		)
		conditions = appendRestriction(conditions, member, facetValues(teachers))
		having = append(having, goqu.COUNT(goqu.DISTINCT(member)).Eq(teachers.Len()))
	}

	selectStmt = selectStmt.Where(conditions...)

	if len(having) > 0 {
		selectStmt = selectStmt.GroupBy(eventID).Having(having...)
	}

	return selectStmt, true
}

// CompileFilterSQL renders CompileFilter as SQL text. The bool is false for an empty filter.
func (c Compiler) CompileFilterSQL(filter timetable.Filter) (string, bool, error) {
	selectStmt, ok := c.CompileFilter(filter)
	if !ok {
		return "", false, nil
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", false, errors.Join(timetable.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, true, nil
}

// appendRestriction adds "col = v" for one value and "col IN (...)" for several. No values, no restriction.
func appendRestriction(conditions []exp.Expression, col exp.IdentifierExpression, values []int64) []exp.Expression {
	switch len(values) {
	case 0:
		return conditions
	case 1:
		return append(conditions, col.Eq(values[0]))
	default:
		return append(conditions, col.In(values))
	}
}

func facetValues[T ~int64](set timetable.FacetSet[T]) []int64 {
	values := set.Values()
	out := make([]int64, len(values))

	for i, v := range values {
		out[i] = int64(v)
	}

	return out
}

func kindCodes(set timetable.FacetSet[timetable.EventKind]) []int64 {
	kinds := set.Values()
	out := make([]int64, len(kinds))

	for i, k := range kinds {
		out[i] = k.Code()
	}

	return out
}
