package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linerds/timetable-go/timetable"
)

const (
	colID           = "id"
	colKind         = "kind"
	colNumberPair   = "number_pair"
	colSubjectID    = "subject_id"
	colAuditoriumID = "auditorium_id"
	colStartedAt    = "started_at"
	colEndedAt      = "ended_at"
	colEventID      = "event_id"
	colGroupID      = "group_id"
	colTeacherID    = "teacher_id"
	colName         = "name"
	colDirectionID  = "direction_id"
	colSpecialityID = "speciality_id"
	colFullName     = "full_name"
	colShortName    = "short_name"
	colDepartmentID = "department_id"
	colTitle        = "title"
	colBrief        = "brief"
	colFloor        = "floor"
	colHasPower     = "has_power"
	colBuildingID   = "building_id"
)

type tableNames struct {
	prefix        string
	events        string
	eventGroups   string
	eventTeachers string
	groups        string
	teachers      string
	subjects      string
	auditoriums   string
}

func newTableNames(prefix string) tableNames {
	return tableNames{
		prefix:        prefix,
		events:        prefix + "events",
		eventGroups:   prefix + "event_groups",
		eventTeachers: prefix + "event_teachers",
		groups:        prefix + "study_groups",
		teachers:      prefix + "teachers",
		subjects:      prefix + "subjects",
		auditoriums:   prefix + "auditoriums",
	}
}

// ddlStatements is valid for both Postgres and SQLite. Each entry holds exactly one statement.
func (t tableNames) ddlStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	brief TEXT NOT NULL DEFAULT ''
)`, t.subjects),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	floor BIGINT,
	has_power BOOLEAN NOT NULL DEFAULT FALSE,
	building_id TEXT NOT NULL DEFAULT ''
)`, t.auditoriums),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	direction_id BIGINT,
	speciality_id BIGINT
)`, t.groups),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	full_name TEXT NOT NULL,
	short_name TEXT NOT NULL DEFAULT '',
	department_id BIGINT
)`, t.teachers),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	kind INTEGER NOT NULL,
	number_pair INTEGER NOT NULL DEFAULT 0,
	subject_id BIGINT NOT NULL,
	auditorium_id BIGINT NOT NULL,
	started_at BIGINT NOT NULL,
	ended_at BIGINT NOT NULL
)`, t.events),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	event_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	group_id BIGINT NOT NULL,
	PRIMARY KEY (event_id, group_id)
)`, t.eventGroups, t.events),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	event_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	teacher_id BIGINT NOT NULL,
	PRIMARY KEY (event_id, teacher_id)
)`, t.eventTeachers, t.events),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_kind ON %[1]s (kind)`, t.events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_subject ON %[1]s (subject_id)`, t.events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_auditorium ON %[1]s (auditorium_id)`, t.events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_started_at ON %[1]s (started_at)`, t.events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_member ON %[1]s (group_id, event_id)`, t.eventGroups),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_member ON %[1]s (teacher_id, event_id)`, t.eventTeachers),
	}
}

// Migrate creates all tables and indexes if they do not exist yet. It is safe to run repeatedly.
func (es EventStore) Migrate(ctx context.Context) error {
	tracer, ctx := es.startMigrateTracing(ctx)
	metrics := es.startMigrateMetrics(ctx)

	start := time.Now()

	for _, statement := range es.tables.ddlStatements() {
		execStart := time.Now()
		_, execErr := es.db.Exec(ctx, statement)
		es.logQueryWithDuration(statement, logActionMigrate, time.Since(execStart))
		es.logQueryWithDurationContext(ctx, statement, logActionMigrate, time.Since(execStart))

		if execErr != nil {
			duration := time.Since(start)
			es.logError(logMsgMigrationFailed, execErr, logAttrQuery, statement)
			es.logErrorContext(ctx, logMsgMigrationFailed, execErr, logAttrQuery, statement)
			tracer.finishError(errorTypeExec, duration)
			metrics.recordError(errorTypeExec, duration)

			return errors.Join(timetable.ErrMigrationFailed, execErr)
		}
	}

	duration := time.Since(start)
	statementCount := len(es.tables.ddlStatements())

	es.logOperation(logMsgMigrated, logAttrStatementCount, statementCount, logAttrDurationMS, es.toMilliseconds(duration))
	es.logOperationContext(ctx, logMsgMigrated, logAttrStatementCount, statementCount, logAttrDurationMS, es.toMilliseconds(duration))
	tracer.finishSuccess(Composition{}, 0, duration)
	metrics.recordSuccess(0, duration)

	return nil
}
