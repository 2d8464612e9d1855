package sqlengine

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/linerds/timetable-go/timetable"
	"github.com/linerds/timetable-go/timetable/sqlengine/internal/adapters"
)

// SaveTimetable writes the timetable in a single transaction. Events already cached under the same id
// are replaced, including their group and teacher memberships.
//
// Entities in a Timetable are the copies embedded in events, which carry little more than names.
// Unknown entities are inserted as given, cached ones only get their names updated, so attributes
// saved by SaveReferences survive later timetable saves.
func (es EventStore) SaveTimetable(ctx context.Context, tt timetable.Timetable) error {
	if tt.IsEmpty() {
		return nil
	}

	return es.write(ctx, writeOperation{
		operation:  operationSave,
		spanName:   spanNameSave,
		savedMsg:   logMsgTimetableSaved,
		failedMsg:  logMsgSaveFailed,
		failedErr:  timetable.ErrSavingTimetableFailed,
		countAttr:  logAttrEventCount,
		count:      len(tt.Events),
		entityArgs: entityCountArgs(len(tt.Subjects), len(tt.Auditoriums), len(tt.Groups), len(tt.Teachers)),
		build:      func() ([]string, error) { return es.buildSaveStatements(tt) },
	})
}

// SaveReferences writes reference data in a single transaction, overwriting every attribute of cached
// entities with the same id. Events and memberships are not touched.
func (es EventStore) SaveReferences(ctx context.Context, refs timetable.References) error {
	if refs.IsEmpty() {
		return nil
	}

	return es.write(ctx, writeOperation{
		operation:  operationSaveReferences,
		spanName:   spanNameSaveReferences,
		savedMsg:   logMsgReferencesSaved,
		failedMsg:  logMsgSaveReferencesFailed,
		failedErr:  timetable.ErrSavingReferencesFailed,
		countAttr:  logAttrEntityCount,
		count:      refs.Len(),
		entityArgs: entityCountArgs(len(refs.Subjects), len(refs.Auditoriums), len(refs.Groups), len(refs.Teachers)),
		build:      func() ([]string, error) { return es.buildReferenceStatements(refs) },
	})
}

// writeOperation describes one transactional write for write.
type writeOperation struct {
	operation  string
	spanName   string
	savedMsg   string
	failedMsg  string
	failedErr  error
	countAttr  string
	count      int
	entityArgs []any
	build      func() ([]string, error)
}

func entityCountArgs(subjects, auditoriums, groups, teachers int) []any {
	return []any{
		logAttrSubjectCount, subjects,
		logAttrAuditoriumCount, auditoriums,
		logAttrGroupCount, groups,
		logAttrTeacherCount, teachers,
	}
}

// write renders the statements of op and executes them in one transaction with logging, metrics and tracing.
func (es EventStore) write(ctx context.Context, op writeOperation) error {
	tracer, ctx := es.startWriteTracing(ctx, op.spanName, op.operation, op.count)
	metrics := es.startWriteMetrics(ctx, op.operation)

	statements, buildErr := op.build()
	if buildErr != nil {
		es.logError(logMsgBuildWriteQueryFailed, buildErr)
		es.logErrorContext(ctx, logMsgBuildWriteQueryFailed, buildErr)
		tracer.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return errors.Join(op.failedErr, buildErr)
	}

	start := time.Now()

	txErr := es.db.WithinTx(ctx, func(tx adapters.DBExecutor) error {
		for _, statement := range statements {
			execStart := time.Now()
			_, execErr := tx.Exec(ctx, statement)
			es.logQueryWithDuration(statement, logActionSave, time.Since(execStart))
			es.logQueryWithDurationContext(ctx, statement, logActionSave, time.Since(execStart))

			if execErr != nil {
				es.logError(logMsgDBExecFailed, execErr, logAttrQuery, statement)
				es.logErrorContext(ctx, logMsgDBExecFailed, execErr, logAttrQuery, statement)

				return execErr
			}
		}

		return nil
	})

	duration := time.Since(start)

	if txErr != nil {
		es.logError(op.failedMsg, txErr)
		es.logErrorContext(ctx, op.failedMsg, txErr)
		tracer.finishError(errorTypeExec, duration)
		metrics.recordError(errorTypeExec, duration)

		return errors.Join(op.failedErr, txErr)
	}

	logArgs := append([]any{op.countAttr, op.count}, op.entityArgs...)
	logArgs = append(logArgs,
		logAttrStatementCount, len(statements),
		logAttrDurationMS, es.toMilliseconds(duration),
	)
	es.logOperation(op.savedMsg, logArgs...)
	es.logOperationContext(ctx, op.savedMsg, logArgs...)
	tracer.finishSuccess(Composition{}, op.count, duration)
	metrics.recordSuccess(op.count, duration)

	return nil
}

// buildSaveStatements renders the statements of SaveTimetable. Memberships of saved events are
// deleted before the events themselves.
func (es EventStore) buildSaveStatements(tt timetable.Timetable) ([]string, error) {
	b := statementBuilder{dialect: es.compiler.dialect}

	eventIDs := sortedIDs(tt.Events)

	b.upsertEntities(es.tables, tt.Subjects, tt.Auditoriums, tt.Groups, tt.Teachers, embeddedColumns)

	b.deleteWhereIn(es.tables.eventGroups, colEventID, eventIDs)
	b.deleteWhereIn(es.tables.eventTeachers, colEventID, eventIDs)

	b.replace(es.tables.events, eventIDs, func(id int64) goqu.Record {
		e := tt.Events[timetable.EventID(id)]
		return goqu.Record{
			colID:           id,
			colKind:         e.Kind.Code(),
			colNumberPair:   e.NumberPair,
			colSubjectID:    int64(e.Subject),
			colAuditoriumID: int64(e.Auditorium),
			colStartedAt:    e.StartedAt.Unix(),
			colEndedAt:      e.EndedAt.Unix(),
		}
	})

	groupMembers := make([]goqu.Record, 0)
	teacherMembers := make([]goqu.Record, 0)

	for _, id := range eventIDs {
		e := tt.Events[timetable.EventID(id)]

		for _, groupID := range e.Groups.Values() {
			groupMembers = append(groupMembers, goqu.Record{colEventID: id, colGroupID: int64(groupID)})
		}

		for _, teacherID := range e.Teachers.Values() {
			teacherMembers = append(teacherMembers, goqu.Record{colEventID: id, colTeacherID: int64(teacherID)})
		}
	}

	b.insert(es.tables.eventGroups, groupMembers)
	b.insert(es.tables.eventTeachers, teacherMembers)

	return b.statements, b.err
}

func (es EventStore) buildReferenceStatements(refs timetable.References) ([]string, error) {
	b := statementBuilder{dialect: es.compiler.dialect}

	b.upsertEntities(es.tables, refs.Subjects, refs.Auditoriums, refs.Groups, refs.Teachers, referenceColumns)

	return b.statements, b.err
}

// entityColumns lists, per entity table, the columns an upsert overwrites on an id conflict.
type entityColumns struct {
	subjects    []string
	auditoriums []string
	groups      []string
	teachers    []string
}

var embeddedColumns = entityColumns{
	subjects:    []string{colTitle, colBrief},
	auditoriums: []string{colName},
	groups:      []string{colName},
	teachers:    []string{colFullName, colShortName},
}

var referenceColumns = entityColumns{
	subjects:    []string{colTitle, colBrief},
	auditoriums: []string{colName, colFloor, colHasPower, colBuildingID},
	groups:      []string{colName, colDirectionID, colSpecialityID},
	teachers:    []string{colFullName, colShortName, colDepartmentID},
}

func (b *statementBuilder) upsertEntities(
	tables tableNames,
	subjects map[timetable.SubjectID]timetable.Subject,
	auditoriums map[timetable.AuditoriumID]timetable.Auditorium,
	groups map[timetable.GroupID]timetable.Group,
	teachers map[timetable.TeacherID]timetable.Teacher,
	columns entityColumns,
) {
	b.upsert(tables.subjects, sortedIDs(subjects), columns.subjects, func(id int64) goqu.Record {
		s := subjects[timetable.SubjectID(id)]
		return goqu.Record{colID: id, colTitle: s.Title, colBrief: s.Brief}
	})

	b.upsert(tables.auditoriums, sortedIDs(auditoriums), columns.auditoriums, func(id int64) goqu.Record {
		a := auditoriums[timetable.AuditoriumID(id)]
		return goqu.Record{
			colID:         id,
			colName:       a.Name,
			colFloor:      nullable(a.Floor),
			colHasPower:   a.HasPower,
			colBuildingID: a.BuildingID,
		}
	})

	b.upsert(tables.groups, sortedIDs(groups), columns.groups, func(id int64) goqu.Record {
		g := groups[timetable.GroupID(id)]
		return goqu.Record{
			colID:           id,
			colName:         g.Name,
			colDirectionID:  nullable(g.DirectionID),
			colSpecialityID: nullable(g.SpecialityID),
		}
	})

	b.upsert(tables.teachers, sortedIDs(teachers), columns.teachers, func(id int64) goqu.Record {
		t := teachers[timetable.TeacherID(id)]
		return goqu.Record{
			colID:           id,
			colFullName:     t.FullName,
			colShortName:    t.ShortName,
			colDepartmentID: nullable(t.DepartmentID),
		}
	})
}

// statementBuilder collects rendered SQL and keeps the first rendering error.
type statementBuilder struct {
	dialect    goqu.DialectWrapper
	statements []string
	err        error
}

func (b *statementBuilder) replace(table string, ids []int64, record func(id int64) goqu.Record) {
	if len(ids) == 0 {
		return
	}

	b.deleteWhereIn(table, colID, ids)

	records := make([]goqu.Record, len(ids))
	for i, id := range ids {
		records[i] = record(id)
	}

	b.insert(table, records)
}

// upsert inserts one record per id. On an id conflict only the listed columns take the new values.
func (b *statementBuilder) upsert(table string, ids []int64, update []string, record func(id int64) goqu.Record) {
	if len(ids) == 0 {
		return
	}

	set := goqu.Record{}
	for _, column := range update {
		set[column] = goqu.L("excluded." + column)
	}

	for chunk := range slices.Chunk(ids, idChunkSize) {
		rows := make([]any, len(chunk))
		for i, id := range chunk {
			rows[i] = record(id)
		}

		b.add(b.dialect.Insert(table).Rows(rows...).OnConflict(goqu.DoUpdate(colID, set)).ToSQL())
	}
}

func (b *statementBuilder) deleteWhereIn(table, column string, ids []int64) {
	for chunk := range slices.Chunk(ids, idChunkSize) {
		b.add(b.dialect.Delete(table).Where(goqu.C(column).In(chunk)).ToSQL())
	}
}

func (b *statementBuilder) insert(table string, records []goqu.Record) {
	for chunk := range slices.Chunk(records, idChunkSize) {
		rows := make([]any, len(chunk))
		for i, record := range chunk {
			rows[i] = record
		}

		b.add(b.dialect.Insert(table).Rows(rows...).ToSQL())
	}
}

func (b *statementBuilder) add(sqlQuery string, _ []any, err error) {
	if b.err != nil {
		return
	}

	if err != nil {
		b.err = errors.Join(timetable.ErrBuildingQueryFailed, err)
		return
	}

	b.statements = append(b.statements, sqlQuery)
}

func sortedIDs[K ~int64, V any](m map[K]V) []int64 {
	ids := make([]int64, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		ids = append(ids, int64(k))
	}

	return ids
}

func nullable(p *int64) any {
	if p == nil {
		return nil
	}

	return *p
}
