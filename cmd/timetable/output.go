package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/linerds/timetable-go/timetable"
)

// eventView is the JSON shape of an event on the command line.
type eventView struct {
	ID         timetable.EventID      `json:"id"`
	Kind       string                 `json:"kind"`
	NumberPair int                    `json:"numberPair"`
	StartedAt  time.Time              `json:"startedAt"`
	EndedAt    time.Time              `json:"endedAt"`
	Subject    timetable.SubjectID    `json:"subject"`
	Auditorium timetable.AuditoriumID `json:"auditorium"`
	Groups     []timetable.GroupID    `json:"groups"`
	Teachers   []timetable.TeacherID  `json:"teachers"`
}

func newEventView(e timetable.Event) eventView {
	return eventView{
		ID:         e.ID,
		Kind:       e.Kind.String(),
		NumberPair: e.NumberPair,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		Subject:    e.Subject,
		Auditorium: e.Auditorium,
		Groups:     e.Groups.Values(),
		Teachers:   e.Teachers.Values(),
	}
}

func writeEvents(w io.Writer, events []timetable.Event, asJSON bool) error {
	if asJSON {
		views := make([]eventView, 0, len(events))
		for _, e := range events {
			views = append(views, newEventView(e))
		}

		return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTART\tPAIR\tKIND\tSUBJECT\tAUDITORIUM\tGROUPS\tTEACHERS")

	for _, e := range events {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
			e.ID,
			e.StartedAt.Format(time.DateTime),
			e.NumberPair,
			e.Kind,
			e.Subject,
			e.Auditorium,
			joinIDs(e.Groups.Values()),
			joinIDs(e.Teachers.Values()),
		)
	}

	return tw.Flush()
}

func joinIDs[T ~int64](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}

	return strings.Join(parts, ",")
}
