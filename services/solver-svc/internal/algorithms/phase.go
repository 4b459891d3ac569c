package algorithms

import (
	"context"
	"log/slog"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/phase"
)

// =============================================================================
// Phase-Structured Augmentation
// =============================================================================

// Phase augments with the phase engine, several node-disjoint paths per
// phase, and confirms the final state with exact balanced network search.
func Phase(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*Result, error) {
	return execute(ctx, g, s, opts, AlgorithmPhase, func(ctx context.Context, r *runner) error {
		return r.phases(ctx)
	})
}

func (r *runner) phases(ctx context.Context) error {
	limit := 0
	if r.opts.MaxIterations > 0 {
		limit = r.opts.MaxIterations - r.result.Augmentations
	}

	stats, err := phase.Run(ctx, r.g, r.s, phase.Config{
		MaxAugmentations: limit,
		Logger:           r.log.With(slog.String("engine", "phase")),
	})
	r.value += stats.Increase
	r.result.Augmentations += stats.Augmentations
	r.result.Phases += stats.Phases
	r.result.Blossoms += stats.Blossoms
	r.result.Rejected += stats.Rejected
	if err != nil {
		return err
	}

	r.log.Debug("phase engine done",
		"phases", stats.Phases,
		"augmentations", stats.Augmentations,
		"value", r.value)

	return r.bns(ctx)
}
