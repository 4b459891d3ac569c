package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/converter"
)

func newProbeCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "Report whether the initial flow admits a balanced augmenting path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := converter.ReadNetworkFile(args[0])
			if err != nil {
				return err
			}
			g, err := doc.Build()
			if err != nil {
				return err
			}

			found, err := appFrom(cmd).svc.Probe(cmd.Context(), g, doc.Source, strategy)
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintln(cmd.OutOrStdout(), "augmenting path found")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no augmenting path")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "search strategy: exact, depth_first, heuristic")
	return cmd
}
