package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/repository"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		algorithm string
		network   string
		status    string
		sort      string
		since     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := &repository.ListOptions{
				Limit: limit,
				Sort:  repository.SortOrder(sort),
				Filter: &repository.ListFilter{
					Algorithm:   algorithm,
					NetworkHash: network,
					Status:      status,
				},
			}
			if since > 0 {
				t := time.Now().Add(-since)
				opts.Filter.Since = &t
			}

			runs, total, err := appFrom(cmd).svc.History(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNETWORK\tALGORITHM\tSTATUS\tVALUE\tAUGMENTATIONS\tDURATION\tCACHED\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.3fms\t%t\t%s\n",
					r.ID, abbrev(r.NetworkHash), r.Algorithm, r.Status, r.Value,
					r.Augmentations, r.DurationMs, r.Cached, r.CreatedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d runs\n", len(runs), total)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	f.StringVarP(&algorithm, "algorithm", "a", "", "only runs of this driver")
	f.StringVar(&network, "network", "", "only runs on this network hash")
	f.StringVar(&status, "status", "", "only runs with this status")
	f.StringVar(&sort, "sort", string(repository.SortByCreatedDesc), "created_desc, created_asc, value_desc, duration_desc")
	f.DurationVar(&since, "since", 0, "only runs newer than this")

	cmd.AddCommand(newStatsCmd(), newPruneCmd())
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate recorded runs per driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := appFrom(cmd).svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ALGORITHM\tRUNS\tFAILURES\tAVG VALUE\tAVG DURATION")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.3fms\n",
					s.Algorithm, s.Runs, s.Failures, s.AverageValue, s.AverageDurationMs)
			}
			return w.Flush()
		},
	}
}

func newPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := appFrom(cmd).svc.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the runs to delete")
	return cmd
}

// abbrev shortens a network hash for display.
func abbrev(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
