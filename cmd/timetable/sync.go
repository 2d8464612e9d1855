package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linerds/timetable-go/fetcher/mindenit"
	"github.com/linerds/timetable-go/syncer"
	"github.com/linerds/timetable-go/timetable"
)

var ErrNoSyncSources = errors.New("at least one of --group, --teacher, --auditorium or --references is required")

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch upstream schedules into the local cache",
		Long:  "Fetch the schedules of the given groups, teachers and auditoriums and save them as one batch. With --references the reference lists and the subjects and teachers of every given group are synced first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd)
		},
	}

	cmd.Flags().Int64Slice("group", nil, "group id to sync, repeatable or comma separated")
	cmd.Flags().Int64Slice("teacher", nil, "teacher id to sync, repeatable or comma separated")
	cmd.Flags().Int64Slice("auditorium", nil, "auditorium id to sync, repeatable or comma separated")
	cmd.Flags().Bool("references", false, "also sync the reference lists of groups, teachers and auditoriums")

	return cmd
}

func (a *app) runSync(cmd *cobra.Command) error {
	ctx := cmd.Context()

	references, _ := cmd.Flags().GetBool("references")

	sources := syncSources(cmd)
	if len(sources) == 0 && !references {
		return ErrNoSyncSources
	}

	client, err := mindenit.NewClient(
		mindenit.WithBaseURL(a.cfg.Upstream.BaseURL),
		mindenit.WithTimeout(a.cfg.Upstream.Timeout),
		mindenit.WithUserAgent(a.cfg.Upstream.UserAgent),
		mindenit.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	es, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err = es.Migrate(ctx); err != nil {
		return err
	}

	options := append([]syncer.Option{
		syncer.WithConcurrency(a.cfg.Sync.Concurrency),
		syncer.WithMaxAttempts(a.cfg.Sync.MaxAttempts),
		syncer.WithBaseDelay(a.cfg.Sync.BaseDelay),
		syncer.WithLogger(a.logger),
	}, a.syncerTelemetryOptions()...)

	s, err := syncer.New(client, es, options...)
	if err != nil {
		return err
	}

	if references {
		groups, _ := cmd.Flags().GetInt64Slice("group")

		refReport, refErr := s.SyncReferences(ctx, toGroupIDs(groups)...)
		if refErr != nil {
			return refErr
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "synced %d groups, %d teachers, %d subjects and %d auditoriums (run %s, %d retries, %s)\n",
			refReport.Groups, refReport.Teachers, refReport.Subjects, refReport.Auditoriums,
			refReport.RunID, refReport.Retries, refReport.Duration.Round(time.Millisecond))
	}

	if len(sources) == 0 {
		return nil
	}

	report, err := s.Sync(ctx, sources...)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "synced %d events from %d sources (run %s, %d retries, %s)\n",
		report.Events, report.Sources, report.RunID, report.Retries, report.Duration.Round(time.Millisecond))

	return nil
}

func syncSources(cmd *cobra.Command) []mindenit.Source {
	var sources []mindenit.Source

	groups, _ := cmd.Flags().GetInt64Slice("group")
	for _, id := range groups {
		sources = append(sources, mindenit.GroupSource(timetable.GroupID(id)))
	}

	teachers, _ := cmd.Flags().GetInt64Slice("teacher")
	for _, id := range teachers {
		sources = append(sources, mindenit.TeacherSource(timetable.TeacherID(id)))
	}

	auditoriums, _ := cmd.Flags().GetInt64Slice("auditorium")
	for _, id := range auditoriums {
		sources = append(sources, mindenit.AuditoriumSource(timetable.AuditoriumID(id)))
	}

	return sources
}

func toGroupIDs(ids []int64) []timetable.GroupID {
	groups := make([]timetable.GroupID, len(ids))
	for i, id := range ids {
		groups[i] = timetable.GroupID(id)
	}

	return groups
}
