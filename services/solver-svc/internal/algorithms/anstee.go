package algorithms

import (
	"context"
	"fmt"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// =============================================================================
// Anstee's Method
// =============================================================================
//
// 1. Solve the ordinary maximum flow problem on a scratch copy.
// 2. Decompose the flow increment into simple s-t paths of residual arcs.
// 3. CancelEven: replay every path symmetrically on the original network with
//    its integral balanced share, floor(amount/2) on the path and on its
//    complement. Whatever cannot be replayed stays pending.
// 4. CancelOdd: correct the pending remainder with balanced augmentation.
// =============================================================================

// FlowPath is a simple path of residual arcs from s to Comp(s) carrying
// Amount units.
type FlowPath struct {
	Arcs   []int
	Amount int64
}

// Pending is what CancelEven could not replay.
type Pending struct {
	Paths []FlowPath
	Units int64
}

// Empty reports whether nothing is pending.
func (p *Pending) Empty() bool {
	return p == nil || p.Units == 0
}

// Anstee computes a maximum balanced flow through an ordinary maximum flow.
func Anstee(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*Result, error) {
	return execute(ctx, g, s, opts, AlgorithmAnstee, func(ctx context.Context, r *runner) error {
		return r.anstee(ctx)
	})
}

func (r *runner) anstee(ctx context.Context) error {
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.result.Phases++

	scratch := r.g.Clone()
	mf := Dinic(ctx, scratch, r.s, r.t)
	if mf.Canceled {
		return contextError(ctx.Err())
	}

	paths, err := DecomposeIncrement(r.g, scratch, r.s, r.t)
	if err != nil {
		return err
	}

	pending, err := r.cancelEven(paths)
	if err != nil {
		return err
	}
	r.log.Debug("symmetric replay done",
		"ordinary_increase", mf.Increase,
		"paths", len(paths),
		"pending_units", pending.Units,
		"value", r.value)

	if pending.Empty() {
		// the whole ordinary increment was replayed
		return nil
	}
	return r.cancelOdd(ctx, pending)
}

// CancelEven replays each path symmetrically on g with floor(amount/2), or
// less if the balanced capacity of the path is smaller. It returns what is
// left over.
func CancelEven(g *graph.BalancedGraph, s int, paths []FlowPath) (*Pending, error) {
	if err := validate(g, s); err != nil {
		return nil, err
	}
	r := &runner{g: g, s: s, t: graph.Comp(s), result: &Result{}}
	return r.cancelEven(paths)
}

func (r *runner) cancelEven(paths []FlowPath) (*Pending, error) {
	pending := &Pending{}
	pred := graph.GetPool().AcquireInts(r.g.N(), graph.NoArc)
	defer graph.GetPool().ReleaseInts(pred)

	for _, p := range paths {
		for _, a := range p.Arcs {
			if !r.g.ValidArc(a) {
				return pending, r.g.CheckArc(a)
			}
		}

		var pushed int64
		if half := p.Amount / 2; half > 0 && len(p.Arcs) > 0 {
			for i := range *pred {
				(*pred)[i] = graph.NoArc
			}
			for _, a := range p.Arcs {
				(*pred)[r.g.EndNode(a)] = a
			}

			var err error
			if pushed, err = r.augment(*pred, half); err != nil {
				return pending, err
			}
		}

		if rest := p.Amount - 2*pushed; rest > 0 {
			pending.Paths = append(pending.Paths, FlowPath{Arcs: p.Arcs, Amount: rest})
			pending.Units += rest
		}
	}
	return pending, nil
}

// CancelOdd corrects the pending remainder left by CancelEven with balanced
// augmentation. It is rejected when nothing is pending.
func CancelOdd(ctx context.Context, g *graph.BalancedGraph, s int, pending *Pending, opts *Options) (*Result, error) {
	return execute(ctx, g, s, opts, AlgorithmAnstee, func(ctx context.Context, r *runner) error {
		return r.cancelOdd(ctx, pending)
	})
}

// cancelOdd is the last Anstee step, shared by the driver and CancelOdd.
func (r *runner) cancelOdd(ctx context.Context, pending *Pending) error {
	if pending.Empty() {
		return ErrNothingPending
	}
	r.result.Phases++
	r.log.Debug("odd correction", "pending_paths", len(pending.Paths), "pending_units", pending.Units)
	return r.bns(ctx)
}

// DecomposeIncrement splits the difference between the flow on target and
// the flow on base into simple s-t paths of residual arcs of base. Cycles of
// the difference are cancelled and dropped.
func DecomposeIncrement(base, target *graph.BalancedGraph, s, t int) ([]FlowPath, error) {
	if base == nil || target == nil {
		return nil, ErrNilGraph
	}
	if base.M() != target.M() || base.N() != target.N() {
		return nil, apperror.New(apperror.CodeInvalidArgument, "networks of different shape")
	}

	amount := make([]int64, base.ArcCount())
	for e := 0; e < base.M(); e++ {
		d := target.Edge(e).Flow - base.Edge(e).Flow
		switch {
		case d > 0:
			amount[2*e] = d
		case d < 0:
			amount[2*e+1] = -d
		}
	}

	next := make([]int, base.N())
	onStack := make([]int, base.N())
	for i := range onStack {
		onStack[i] = -1
	}

	var paths []FlowPath
	nodes := []int{s}
	arcs := []int{}
	onStack[s] = 0

	for {
		v := nodes[len(nodes)-1]

		if v == t {
			m := minAmount(amount, arcs)
			for _, a := range arcs {
				amount[a] -= m
			}
			paths = append(paths, FlowPath{Arcs: append([]int(nil), arcs...), Amount: m})

			for _, x := range nodes {
				onStack[x] = -1
			}
			nodes = append(nodes[:0], s)
			arcs = arcs[:0]
			onStack[s] = 0
			continue
		}

		a, ok := nextPositive(base, amount, next, v)
		if !ok {
			if v == s {
				return paths, nil
			}
			return paths, apperror.NewCritical(apperror.CodeConservationViolation,
				fmt.Sprintf("flow increment is not conserved at node %d", v))
		}

		w := base.EndNode(a)
		if pos := onStack[w]; pos >= 0 {
			// cancel the cycle w -> ... -> v -> w
			cycle := append(arcs[pos:len(arcs):len(arcs)], a)
			m := minAmount(amount, cycle)
			for _, c := range cycle {
				amount[c] -= m
			}
			for _, x := range nodes[pos+1:] {
				onStack[x] = -1
			}
			nodes = nodes[:pos+1]
			arcs = arcs[:pos]
			continue
		}

		onStack[w] = len(nodes)
		nodes = append(nodes, w)
		arcs = append(arcs, a)
	}
}

func nextPositive(g *graph.BalancedGraph, amount []int64, next []int, v int) (int, bool) {
	adj := g.Arcs(v)
	for next[v] < len(adj) {
		if a := adj[next[v]]; amount[a] > 0 {
			return a, true
		}
		next[v]++
	}
	return graph.NoArc, false
}

func minAmount(amount []int64, arcs []int) int64 {
	m := amount[arcs[0]]
	for _, a := range arcs[1:] {
		if amount[a] < m {
			m = amount[a]
		}
	}
	return m
}
