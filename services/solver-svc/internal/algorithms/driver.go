package algorithms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
)

// =============================================================================
// Driver Runtime
// =============================================================================

// runner carries the state shared by all drivers during one run.
type runner struct {
	g    *graph.BalancedGraph
	s, t int
	opts *Options
	log  *slog.Logger

	sctx      *search.Context
	primary   search.Searcher
	exact     search.Searcher
	heuristic search.Searcher

	heuristicLeft int

	// value is the flow value tracked by the driver; the verification hook
	// compares it against the recomputed divergence
	value  int64
	result *Result
	start  time.Time
}

func newRunner(g *graph.BalancedGraph, s int, opts *Options, algo Algorithm) (*runner, error) {
	primary, err := search.New(opts.Strategy, search.Options{TieBreak: opts.TieBreak})
	if err != nil {
		return nil, err
	}
	exact, _ := search.New(search.Exact, search.Options{})
	heuristic, _ := search.New(search.Heuristic, search.Options{})

	value := g.FlowValue(s)
	return &runner{
		g:             g,
		s:             s,
		t:             graph.Comp(s),
		opts:          opts,
		log:           opts.logger().With("algorithm", algo.String(), "source", s),
		sctx:          search.NewContext(g.N()),
		primary:       primary,
		exact:         exact,
		heuristic:     heuristic,
		heuristicLeft: opts.HeuristicAttempts,
		value:         value,
		result:        &Result{Algorithm: algo, Value: value},
		start:         time.Now(),
	}, nil
}

// execute validates the input, applies the timeout, runs body and fills the
// result.
func execute(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options, algo Algorithm, body func(context.Context, *runner) error) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validate(g, s); err != nil {
		return &Result{Algorithm: algo, Status: StatusError, Error: err}, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r, err := newRunner(g, s, opts, algo)
	if err != nil {
		return &Result{Algorithm: algo, Status: StatusError, Error: err}, err
	}
	return r.finish(body(ctx, r))
}

func (r *runner) finish(err error) (*Result, error) {
	res := r.result
	res.Duration = time.Since(r.start)
	res.Increase = r.value - res.Value
	res.Value = r.value

	if r.opts.Verify {
		if verr := VerifyFlow(r.g, r.s, r.value); verr != nil {
			r.log.Error("flow verification failed", "error", verr)
			if err == nil {
				err = verr
			}
		}
	}

	if err != nil {
		res.Status = statusOf(err)
		res.Error = err
		r.log.Debug("run stopped",
			"status", res.Status.String(),
			"value", res.Value,
			"augmentations", res.Augmentations,
			"error", err)
		return res, err
	}

	res.Status = StatusOptimal
	r.log.Debug("run finished",
		"value", res.Value,
		"augmentations", res.Augmentations,
		"phases", res.Phases,
		"blossoms", res.Blossoms,
		"duration", res.Duration)
	return res, nil
}

// checkpoint is called once per outer iteration.
func (r *runner) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}
	if r.opts.MaxIterations > 0 && r.result.Augmentations >= r.opts.MaxIterations {
		return apperror.Wrap(ErrIterationLimit, apperror.CodeIterationLimit,
			fmt.Sprintf("stopped after %d augmentations", r.result.Augmentations))
	}
	return nil
}

// findPath runs the heuristic while attempts remain, then the configured
// strategy, and confirms a failure of an incomplete strategy with Exact.
func (r *runner) findPath() (bool, error) {
	if r.heuristicLeft > 0 {
		r.heuristicLeft--
		found, err := r.runSearch(r.heuristic)
		if err != nil || found {
			return found, err
		}
	}

	found, err := r.runSearch(r.primary)
	if err != nil || found || r.primary.Strategy().Complete() {
		return found, err
	}
	return r.runSearch(r.exact)
}

func (r *runner) runSearch(s search.Searcher) (bool, error) {
	found, err := s.Search(r.sctx, r.g, r.s)
	r.result.Blossoms += r.sctx.Blossoms()
	r.result.Rejected += r.sctx.Rejected()
	return found, err
}

// augment pushes min(limit, balanced bottleneck) along pred and its
// complement. It returns the amount pushed, 0 when the path has no balanced
// capacity.
func (r *runner) augment(pred []int, limit int64) (int64, error) {
	lambda, err := r.g.FindBalCap(pred, r.s, r.t)
	if err != nil {
		return 0, err
	}
	if lambda > limit {
		lambda = limit
	}
	if lambda < 1 {
		return 0, nil
	}
	if err := r.g.BalAugment(pred, r.s, r.t, lambda); err != nil {
		return 0, err
	}
	r.value += 2 * lambda
	r.result.Augmentations++
	return lambda, nil
}

// =============================================================================
// Balanced Augmentation
// =============================================================================

// BNSAndAugment repeats balanced network search from s and augments along
// every path found until the search fails. Each augmentation by Lambda adds
// 2*Lambda to the flow value.
func BNSAndAugment(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*Result, error) {
	return execute(ctx, g, s, opts, AlgorithmBNS, func(ctx context.Context, r *runner) error {
		return r.bns(ctx)
	})
}

func (r *runner) bns(ctx context.Context) error {
	for {
		if err := r.checkpoint(ctx); err != nil {
			return err
		}

		found, err := r.findPath()
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		lambda, err := r.augment(r.sctx.Pred(), graph.Infinity)
		if err != nil {
			return err
		}
		if lambda < 1 {
			return apperror.NewCritical(apperror.CodeConsistencyViolation,
				"search returned a path without balanced capacity")
		}
	}
}

// =============================================================================
// Balanced Capacity Scaling
// =============================================================================

// BalancedScaling augments in phases of decreasing threshold delta, starting
// from the largest power of two not above the largest capacity. A phase
// repeatedly takes a plain shortest path over arcs with balanced capacity at
// least delta and pushes min(delta, balanced bottleneck) on it. The last
// phase, delta = 1, is BNSAndAugment.
func BalancedScaling(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*Result, error) {
	return execute(ctx, g, s, opts, AlgorithmScaling, func(ctx context.Context, r *runner) error {
		return r.scaling(ctx)
	})
}

func (r *runner) scaling(ctx context.Context) error {
	delta := int64(1)
	for maxCap := r.g.MaxCapacity(); delta <= maxCap/2; {
		delta *= 2
	}

	pred := graph.GetPool().AcquireInts(r.g.N(), graph.NoArc)
	defer graph.GetPool().ReleaseInts(pred)
	queue := graph.NewQueue(r.g.N())

	for ; delta > 1; delta /= 2 {
		if err := r.checkpoint(ctx); err != nil {
			return err
		}
		r.result.Phases++
		before := r.result.Augmentations

		for r.deltaPath(delta, *pred, queue) {
			if err := r.checkpoint(ctx); err != nil {
				return err
			}
			pushed, err := r.augment(*pred, delta)
			if err != nil {
				return err
			}
			if pushed < 1 {
				break
			}
		}

		r.log.Debug("scaling phase done",
			"delta", delta,
			"augmentations", r.result.Augmentations-before,
			"value", r.value)
	}

	r.result.Phases++
	return r.bns(ctx)
}

// deltaPath finds a shortest path from s to t over arcs with balanced
// capacity at least delta and writes it into pred.
func (r *runner) deltaPath(delta int64, pred []int, queue *graph.Queue) bool {
	for i := range pred {
		pred[i] = graph.NoArc
	}
	queue.Reset()
	queue.Push(r.s)

	for !queue.Empty() {
		u := queue.Pop()
		for _, a := range r.g.Arcs(u) {
			if r.g.BalCap(a) < delta {
				continue
			}
			v := r.g.EndNode(a)
			if v == r.s || pred[v] != graph.NoArc {
				continue
			}
			pred[v] = a
			if v == r.t {
				return true
			}
			queue.Push(v)
		}
	}
	return false
}
