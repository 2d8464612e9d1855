package main

import (
	"github.com/spf13/cobra"

	"github.com/linerds/timetable-go/timetable"
)

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "List cached events matching include filters minus exclude filters",
		Long: `List cached events matching any --include filter and no --exclude filter.

A filter is a list of facets separated by ';', each with comma separated values:

  timetable resolve --include 'groups=10887' --exclude 'groups=10887;kinds=exam'

Groups and teachers match events attended by all listed ids, the other facets match
events with any of the listed values. A filter given as include and exclude cancels out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runResolve(cmd)
		},
	}

	cmd.Flags().StringArray("include", nil, "include filter, repeatable")
	cmd.Flags().StringArray("exclude", nil, "exclude filter, repeatable")
	cmd.Flags().Bool("eventual", false, "allow reading from the replica")
	cmd.Flags().Bool("json", false, "print events as JSON")

	return cmd
}

func (a *app) runResolve(cmd *cobra.Command) error {
	ctx := cmd.Context()

	includeSpecs, _ := cmd.Flags().GetStringArray("include")
	excludeSpecs, _ := cmd.Flags().GetStringArray("exclude")

	include, err := parseFilterSet(includeSpecs)
	if err != nil {
		return err
	}

	exclude, err := parseFilterSet(excludeSpecs)
	if err != nil {
		return err
	}

	if eventual, _ := cmd.Flags().GetBool("eventual"); eventual {
		ctx = timetable.WithEventualConsistency(ctx)
	}

	es, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ids, err := es.Resolve(ctx, include, exclude)
	if err != nil {
		return err
	}

	events, err := es.Events(ctx, ids)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")

	return writeEvents(cmd.OutOrStdout(), events, asJSON)
}
