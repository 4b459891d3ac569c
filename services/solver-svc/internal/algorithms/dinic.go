package algorithms

import (
	"context"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// =============================================================================
// Dinic's Algorithm (Dinitz's Algorithm)
// =============================================================================
//
// Ordinary maximum flow on a balanced network, ignoring the complementary
// structure. Anstee's method runs it on a scratch copy and then replays the
// result symmetrically on the original network.
//
// Time Complexity: O(V² × E) general case, O(E × √V) for unit capacity graphs
// Space Complexity: O(V + E)
//
// Algorithm Phases:
//  1. BFS from source to build level graph (assigns levels to vertices)
//  2. Find blocking flow using DFS with current arc optimization
//  3. Repeat until sink is unreachable from source
//
// References:
//   - Dinitz, Y. (1970). "Algorithm for solution of a problem of maximum flow
//     in a network with power estimation"
// =============================================================================

// DinicResult contains the result of Dinic's algorithm.
type DinicResult struct {
	// Increase is the flow value added on top of the initial flow.
	Increase int64

	// Iterations is the number of BFS phases executed.
	Iterations int

	// Canceled indicates whether the operation was canceled via context.
	Canceled bool
}

// Dinic augments the flow on g from source to sink to an ordinary maximum
// flow. The flows of complementary edges are changed independently, so g is
// no longer balanced afterwards; run it on a clone.
func Dinic(ctx context.Context, g *graph.BalancedGraph, source, sink int) *DinicResult {
	pool := graph.GetPool()
	level := pool.AcquireInts(g.N(), -1)
	defer pool.ReleaseInts(level)
	cur := g.NewCursor()
	queue := graph.NewQueue(g.N())
	path := make([]int, 0, 64)

	result := &DinicResult{}
	for {
		if ctx.Err() != nil {
			result.Canceled = true
			return result
		}

		// Phase 1: Build level graph using BFS
		if !bfsLevel(g, source, sink, *level, queue) {
			break
		}

		// Phase 2: Find blocking flow
		cur.ResetAll()
		var blocking int64
		for {
			pushed := blockingPath(g, source, sink, *level, cur, &path)
			if pushed == 0 {
				break
			}
			blocking += pushed
		}
		if blocking == 0 {
			break
		}

		result.Increase += blocking
		result.Iterations++
	}

	return result
}

// bfsLevel assigns BFS levels over arcs with residual capacity and reports
// whether the sink was reached.
func bfsLevel(g *graph.BalancedGraph, source, sink int, level []int, queue *graph.Queue) bool {
	for i := range level {
		level[i] = -1
	}
	level[source] = 0
	queue.Reset()
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()
		for _, a := range g.Arcs(u) {
			v := g.EndNode(a)
			if level[v] < 0 && g.ResCap(a) > 0 {
				level[v] = level[u] + 1
				queue.Push(v)
			}
		}
	}
	return level[sink] >= 0
}

// blockingPath finds one path in the level graph with an iterative DFS,
// pushes its bottleneck and returns the amount pushed.
//
// The iterative implementation avoids stack overflow on deep graphs.
func blockingPath(g *graph.BalancedGraph, source, sink int, level []int, cur *graph.Cursor, path *[]int) int64 {
	arcs := (*path)[:0]
	defer func() { *path = arcs[:0] }()

	u := source
	for {
		if u == sink {
			bottleneck := graph.Infinity
			for _, a := range arcs {
				if c := g.ResCap(a); c < bottleneck {
					bottleneck = c
				}
			}
			for _, a := range arcs {
				g.Push(a, bottleneck)
			}
			return bottleneck
		}

		advanced := false
		for a, ok := cur.Peek(u); ok; a, ok = cur.Peek(u) {
			v := g.EndNode(a)
			if level[v] == level[u]+1 && g.ResCap(a) > 0 {
				arcs = append(arcs, a)
				u = v
				advanced = true
				break
			}
			cur.Skip(u)
		}

		if !advanced {
			if u == source {
				return 0
			}
			// Dead end - remove from level graph
			level[u] = -1
			last := arcs[len(arcs)-1]
			arcs = arcs[:len(arcs)-1]
			u = g.StartNode(last)
			cur.Skip(u)
		}
	}
}
