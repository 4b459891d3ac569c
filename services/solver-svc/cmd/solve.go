package main

import (
	"github.com/spf13/cobra"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/converter"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/service"
)

type solveFlags struct {
	algorithm string
	strategy  string
	tieBreak  string
	verify    bool
	noCache   bool
	output    string
	allArcs   bool
}

func newSolveCmd() *cobra.Command {
	flags := &solveFlags{}

	cmd := &cobra.Command{
		Use:   "solve FILE...",
		Short: "Compute a maximum balanced flow for each network file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := converter.ParseFormat(flags.output)
			if err != nil {
				return err
			}
			a := appFrom(cmd)

			for _, path := range args {
				doc, err := converter.ReadNetworkFile(path)
				if err != nil {
					return err
				}
				g, err := doc.Build()
				if err != nil {
					return err
				}

				req := &service.SolveRequest{
					Graph:     g,
					Source:    doc.Source,
					Algorithm: flags.algorithm,
					Strategy:  flags.strategy,
					TieBreak:  flags.tieBreak,
					NoCache:   flags.noCache,
				}
				if cmd.Flags().Changed("verify") {
					req.Verify = &flags.verify
				}

				resp, err := a.svc.Solve(cmd.Context(), req)
				if err != nil {
					return err
				}

				r := resp.Result
				report := &converter.FlowReport{
					RunID:         resp.RunID,
					Algorithm:     r.Algorithm.String(),
					Status:        r.Status.String(),
					Cached:        resp.Cached,
					Value:         r.Value,
					Augmentations: r.Augmentations,
					Phases:        r.Phases,
					Blossoms:      r.Blossoms,
					DurationMs:    r.Duration.Milliseconds(),
					Arcs:          converter.ArcFlows(resp.Graph, !flags.allArcs),
				}
				if err := report.Write(cmd.OutOrStdout(), format); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.algorithm, "algorithm", "a", "", "driver: bns, scaling, anstee, phase or auto")
	f.StringVarP(&flags.strategy, "strategy", "s", "", "search strategy: exact, depth_first, heuristic")
	f.StringVar(&flags.tieBreak, "tie-break", "", "depth-first tie break: distance, timestamp")
	f.BoolVar(&flags.verify, "verify", false, "verify the resulting flow")
	f.BoolVar(&flags.noCache, "no-cache", false, "skip the result cache lookup")
	f.StringVarP(&flags.output, "output", "o", "yaml", "output format: yaml, json, xlsx")
	f.BoolVar(&flags.allArcs, "all-arcs", false, "list arcs without flow too")
	return cmd
}
