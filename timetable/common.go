package timetable

import (
	"errors"
)

var ErrEmptyFilter = errors.New("filter has no constraints, at least one facet must be set")
var ErrNotFound = errors.New("not found")

var ErrNilDatabaseConnection = errors.New("database connection is nil")
var ErrEmptyTablePrefix = errors.New("empty table prefix supplied")
var ErrInvalidTablePrefix = errors.New("invalid table prefix supplied")
var ErrUnsupportedDialect = errors.New("unsupported sql dialect")

var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrQueryingEventsFailed = errors.New("querying events failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrSavingTimetableFailed = errors.New("saving timetable failed")
var ErrSavingReferencesFailed = errors.New("saving references failed")
var ErrMigrationFailed = errors.New("schema migration failed")
