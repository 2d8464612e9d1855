package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linerds/timetable-go/timetable"
)

var ErrMissingEventID = errors.New("--event is required")

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one cached event with the names of everything it references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShow(cmd)
		},
	}

	cmd.Flags().Int64("event", 0, "event id")

	return cmd
}

func (a *app) runShow(cmd *cobra.Command) error {
	ctx := cmd.Context()

	if !cmd.Flags().Changed("event") {
		return ErrMissingEventID
	}

	id, _ := cmd.Flags().GetInt64("event")

	es, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	event, err := es.Event(ctx, timetable.EventID(id))
	if err != nil {
		return err
	}

	subject, err := es.Subject(ctx, event.Subject)
	if err != nil {
		return err
	}

	auditorium, err := es.Auditorium(ctx, event.Auditorium)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Event %d: %s, pair %d\n", event.ID, event.Kind, event.NumberPair)
	_, _ = fmt.Fprintf(out, "  Time:       %s - %s\n", event.StartedAt.Format("2006-01-02 15:04"), event.EndedAt.Format("15:04"))
	_, _ = fmt.Fprintf(out, "  Subject:    %s (%s)\n", subject.Title, subject.Brief)
	_, _ = fmt.Fprintf(out, "  Auditorium: %s\n", describeAuditorium(auditorium))

	for _, groupID := range event.Groups.Values() {
		group, err := es.Group(ctx, groupID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "  Group:      %s\n", group.Name)
	}

	for _, teacherID := range event.Teachers.Values() {
		teacher, err := es.Teacher(ctx, teacherID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "  Teacher:    %s\n", teacher.FullName)
	}

	return nil
}

// describeAuditorium appends the attributes only reference syncs fill in, when present.
func describeAuditorium(a timetable.Auditorium) string {
	var details []string
	if a.BuildingID != "" {
		details = append(details, "building "+a.BuildingID)
	}
	if a.Floor != nil {
		details = append(details, fmt.Sprintf("floor %d", *a.Floor))
	}
	if a.HasPower {
		details = append(details, "power outlets")
	}

	if len(details) == 0 {
		return a.Name
	}

	return fmt.Sprintf("%s (%s)", a.Name, strings.Join(details, ", "))
}
