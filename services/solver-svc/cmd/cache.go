package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show result cache statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				stats, err := appFrom(cmd).svc.CacheStats(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "keys\t%d\n", stats.TotalKeys)
				fmt.Fprintf(w, "hits\t%d\n", stats.Hits)
				fmt.Fprintf(w, "misses\t%d\n", stats.Misses)
				fmt.Fprintf(w, "bytes\t%d\n", stats.MemoryBytes)
				prefixes := make([]string, 0, len(stats.KeysByPrefix))
				for p := range stats.KeysByPrefix {
					prefixes = append(prefixes, p)
				}
				sort.Strings(prefixes)
				for _, p := range prefixes {
					fmt.Fprintf(w, "keys[%s]\t%d\n", p, stats.KeysByPrefix[p])
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Drop every cached result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := appFrom(cmd).svc.ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %d cached results\n", n)
				return nil
			},
		},
	)
	return cmd
}
