package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the available drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTIME\tBEST FOR")
			for _, info := range appFrom(cmd).svc.Algorithms() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Algorithm, info.TimeComplexity, strings.Join(info.BestFor, "; "))
			}
			return w.Flush()
		},
	}
}
