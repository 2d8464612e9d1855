package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/linerds/timetable-go/timetable"
)

var ErrReferencesUnsupported = errors.New("fetcher or saver does not handle reference data")

const referenceKind = "reference"

// ReferenceFetcher delivers the reference lists of the upstream. mindenit.Client satisfies it.
type ReferenceFetcher interface {
	Groups(ctx context.Context) (map[timetable.GroupID]timetable.Group, error)
	Teachers(ctx context.Context) (map[timetable.TeacherID]timetable.Teacher, error)
	Auditoriums(ctx context.Context) (map[timetable.AuditoriumID]timetable.Auditorium, error)
	GroupTeachers(ctx context.Context, id timetable.GroupID) (map[timetable.TeacherID]timetable.Teacher, error)
	GroupSubjects(ctx context.Context, id timetable.GroupID) (map[timetable.SubjectID]timetable.Subject, error)
}

// ReferenceSaver persists reference data. sqlengine.EventStore satisfies it.
type ReferenceSaver interface {
	SaveReferences(ctx context.Context, refs timetable.References) error
}

// ReferenceReport summarizes one reference sync run.
type ReferenceReport struct {
	RunID       uuid.UUID
	Groups      int
	Teachers    int
	Subjects    int
	Auditoriums int
	Retries     int
	Duration    time.Duration
}

func (r ReferenceReport) entities() int {
	return r.Groups + r.Teachers + r.Subjects + r.Auditoriums
}

type referenceFetch struct {
	target fetchTarget
	fetch  func(ctx context.Context) (timetable.References, error)
}

// SyncReferences fetches the group, teacher and auditorium lists, plus the subjects and teachers
// of the given groups, and saves them as one batch. Both the fetcher and the saver of s must
// handle reference data, otherwise ErrReferencesUnsupported is returned.
//
// Failures behave like in Sync: any failed list aborts the run and nothing is saved.
func (s Syncer) SyncReferences(ctx context.Context, groups ...timetable.GroupID) (ReferenceReport, error) {
	fetcher, fetcherOK := s.fetcher.(ReferenceFetcher)
	saver, saverOK := s.saver.(ReferenceSaver)

	if !fetcherOK || !saverOK {
		return ReferenceReport{}, ErrReferencesUnsupported
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return ReferenceReport{}, err
	}

	report := ReferenceReport{RunID: runID}
	fetches := referenceFetches(fetcher, groups)
	start := time.Now()

	targets := make([]fetchTarget, len(fetches))
	for i, f := range fetches {
		targets[i] = f.target
	}

	fetched, retries, fetchErr := fetchConcurrently(ctx, s, runID, targets, func(ctx context.Context, i int) (timetable.References, error) {
		return fetches[i].fetch(ctx)
	})
	report.Retries = retries

	if fetchErr != nil {
		report.Duration = time.Since(start)
		s.recordReferenceRun(ctx, statusError, errorTypeFetch, report)

		return report, errors.Join(ErrFetchFailed, fetchErr)
	}

	// the full lists come last, so their entries win over the per-group ones
	merged := timetable.NewReferences()
	for _, refs := range fetched {
		merged.Merge(refs)
	}

	report.Groups = len(merged.Groups)
	report.Teachers = len(merged.Teachers)
	report.Subjects = len(merged.Subjects)
	report.Auditoriums = len(merged.Auditoriums)

	if saveErr := saver.SaveReferences(ctx, merged); saveErr != nil {
		report.Duration = time.Since(start)
		s.logError(logMsgSaveFailed, saveErr, logAttrRunID, runID.String())
		s.recordReferenceRun(ctx, statusError, errorTypeSave, report)

		return report, errors.Join(ErrSaveFailed, saveErr)
	}

	report.Duration = time.Since(start)

	s.logOperation(logMsgRefsCompleted,
		logAttrRunID, runID.String(),
		logAttrGroupCount, len(groups),
		logAttrEntityCount, report.entities(),
		logAttrRetries, report.Retries,
		logAttrDurationMS, toMilliseconds(report.Duration),
	)
	s.recordReferenceRun(ctx, statusSuccess, "", report)

	return report, nil
}

func referenceFetches(fetcher ReferenceFetcher, groups []timetable.GroupID) []referenceFetch {
	groups = slices.Compact(slices.Sorted(slices.Values(groups)))
	fetches := make([]referenceFetch, 0, 2*len(groups)+3)

	for _, id := range groups {
		fetches = append(fetches,
			referenceFetch{
				target: fetchTarget{name: fmt.Sprintf("group:%d/subjects", id), kind: referenceKind},
				fetch: func(ctx context.Context) (timetable.References, error) {
					refs := timetable.NewReferences()
					subjects, err := fetcher.GroupSubjects(ctx, id)
					refs.Subjects = subjects

					return refs, err
				},
			},
			referenceFetch{
				target: fetchTarget{name: fmt.Sprintf("group:%d/teachers", id), kind: referenceKind},
				fetch: func(ctx context.Context) (timetable.References, error) {
					refs := timetable.NewReferences()
					teachers, err := fetcher.GroupTeachers(ctx, id)
					refs.Teachers = teachers

					return refs, err
				},
			},
		)
	}

	return append(fetches,
		referenceFetch{
			target: fetchTarget{name: "groups", kind: referenceKind},
			fetch: func(ctx context.Context) (timetable.References, error) {
				refs := timetable.NewReferences()
				all, err := fetcher.Groups(ctx)
				refs.Groups = all

				return refs, err
			},
		},
		referenceFetch{
			target: fetchTarget{name: "teachers", kind: referenceKind},
			fetch: func(ctx context.Context) (timetable.References, error) {
				refs := timetable.NewReferences()
				all, err := fetcher.Teachers(ctx)
				refs.Teachers = all

				return refs, err
			},
		},
		referenceFetch{
			target: fetchTarget{name: "auditoriums", kind: referenceKind},
			fetch: func(ctx context.Context) (timetable.References, error) {
				refs := timetable.NewReferences()
				all, err := fetcher.Auditoriums(ctx)
				refs.Auditoriums = all

				return refs, err
			},
		},
	)
}
