// Package search implements balanced network search: the labelling
// strategies that look for a balanced augmenting path from s to Comp(s), and
// the expander that turns the labels into a concrete path.
//
// All per-search state lives in a caller-owned Context. A Context is reset at
// the start of every search, so one Context can serve any number of searches
// on the same or on different networks, one at a time.
package search

import (
	"fmt"
	"math"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/blossom"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// Unreached is the distance label of a node the search has not labelled.
const Unreached = math.MaxInt

// =============================================================================
// Labels
// =============================================================================

// Labels are the node labels of one search.
//
// A labelled node has a finite distance and exactly one of Prop or Petal.
// Prop is the tree arc that reached the node. Petal is the arc (x1, x2) that
// closed the blossom in which the node was discovered: the node is reached
// from x1 over that arc and then along the complement of the labelled path
// from Comp(node) to Comp(x2).
type Labels struct {
	dist  []int
	prop  []int
	petal []int
	stamp []int
	clock int
}

// Dist returns the distance label of v, Unreached if v is unlabelled.
func (l *Labels) Dist(v int) int { return l.dist[v] }

// Prop returns the tree arc of v or graph.NoArc.
func (l *Labels) Prop(v int) int { return l.prop[v] }

// Petal returns the petal arc of v or graph.NoArc.
func (l *Labels) Petal(v int) int { return l.petal[v] }

// Stamp returns the discovery order of v, 0 if v is unlabelled.
func (l *Labels) Stamp(v int) int { return l.stamp[v] }

// Labeled reports whether v carries a distance label.
func (l *Labels) Labeled(v int) bool { return l.dist[v] != Unreached }

func (l *Labels) setProp(v, a, d int) {
	l.dist[v] = d
	l.prop[v] = a
	l.clock++
	l.stamp[v] = l.clock
}

func (l *Labels) setPetal(v, a, d int) {
	l.dist[v] = d
	l.petal[v] = a
	l.clock++
	l.stamp[v] = l.clock
}

func (l *Labels) unlabel(v int) {
	l.dist[v] = Unreached
	l.prop[v] = graph.NoArc
	l.petal[v] = graph.NoArc
	l.stamp[v] = 0
}

// =============================================================================
// Context
// =============================================================================

// Context owns everything a search writes: labels, blossom forest, frontier
// and the expanded path. It is not safe for concurrent use.
type Context struct {
	Labels

	n      int
	source int
	target int

	forest *blossom.DisjointSet[int]
	// base holds the entry node of each blossom, indexed by representative
	base []int

	pred []int

	mark []int
	gen  int

	queue     *graph.Queue
	primary   []int
	secondary []int
	cursor    *graph.Cursor
	cursorFor *graph.BalancedGraph

	work []task

	sideU []int
	sideC []int
	stem  []int

	blossoms int
	rejected int
}

// NewContext creates a context sized for networks with n nodes. It grows on
// demand, so n is only a hint.
func NewContext(n int) *Context {
	c := &Context{forest: blossom.New[int](0)}
	c.resize(n)
	return c
}

func (c *Context) resize(n int) {
	if n == c.n && c.dist != nil {
		return
	}
	c.n = n
	c.dist = make([]int, n)
	c.prop = make([]int, n)
	c.petal = make([]int, n)
	c.stamp = make([]int, n)
	c.base = make([]int, n)
	c.pred = make([]int, n)
	c.mark = make([]int, n)
	c.gen = 0
	c.queue = graph.NewQueue(n)
}

// Reset clears all labels and prepares a search from s on g. It fails when s
// is not a node of g.
func (c *Context) Reset(g *graph.BalancedGraph, s int) error {
	if g == nil {
		return apperror.ErrNilGraph
	}
	if !g.ValidNode(s) {
		return apperror.NewWithField(apperror.CodeOutOfRange,
			fmt.Sprintf("source %d out of range [0,%d)", s, g.N()), "source")
	}

	c.resize(g.N())
	for v := 0; v < c.n; v++ {
		c.dist[v] = Unreached
		c.prop[v] = graph.NoArc
		c.petal[v] = graph.NoArc
		c.stamp[v] = 0
		c.base[v] = v
		c.pred[v] = graph.NoArc
	}
	c.clock = 0
	c.blossoms = 0
	c.rejected = 0
	c.forest.Reset(c.n)

	c.source = s
	c.target = graph.Comp(s)

	c.queue.Reset()
	c.primary = c.primary[:0]
	c.secondary = c.secondary[:0]
	c.work = c.work[:0]

	if c.cursorFor != g {
		c.cursor = g.NewCursor()
		c.cursorFor = g
	} else {
		c.cursor.ResetAll()
	}

	c.dist[s] = 0
	return nil
}

// Source returns the root of the current search.
func (c *Context) Source() int { return c.source }

// Target returns the complement of the root.
func (c *Context) Target() int { return c.target }

// Pred returns the path written by the last successful search or expansion:
// Pred()[v] is the arc entering v. The slice is owned by the context.
func (c *Context) Pred() []int { return c.pred }

// Blossoms returns the number of blossoms shrunk by the last search.
func (c *Context) Blossoms() int { return c.blossoms }

// Rejected returns the number of closing arcs the last search discarded
// because the resulting path had no balanced capacity.
func (c *Context) Rejected() int { return c.rejected }

// Base returns the entry node of the blossom containing v.
func (c *Context) Base(v int) int {
	return c.base[c.forest.Find(v)]
}

// LabelProp labels v as reached over tree arc a with distance d.
func (c *Context) LabelProp(v, a, d int) { c.setProp(v, a, d) }

// LabelPetal labels v through petal a with distance d.
func (c *Context) LabelPetal(v, a, d int) { c.setPetal(v, a, d) }

// Unlabel removes every label of v. Blossom membership is kept.
func (c *Context) Unlabel(v int) { c.unlabel(v) }

// shrink merges v into the blossom with entry node b.
func (c *Context) shrink(b, v int) {
	r := c.forest.Merge(b, v)
	c.base[r] = b
}

// nextBase steps from blossom base x to the base of its tree parent.
func (c *Context) nextBase(g *graph.BalancedGraph, x int) (int, error) {
	a := c.prop[x]
	if a == graph.NoArc {
		return graph.NoNode, apperror.NewCritical(apperror.CodeConsistencyViolation,
			fmt.Sprintf("blossom base %d has no tree arc", x))
	}
	return c.Base(g.StartNode(a)), nil
}

// CommonBase returns the first blossom base shared by the tree paths from x
// and y to the root. Nothing is modified except the scratch marks.
func (c *Context) CommonBase(g *graph.BalancedGraph, x, y int) (int, error) {
	c.gen++
	if c.gen == math.MaxInt {
		clear(c.mark)
		c.gen = 1
	}

	var err error
	for steps := 0; ; steps++ {
		if steps > c.n {
			return graph.NoNode, c.loopError(x)
		}
		c.mark[x] = c.gen
		if x == c.source {
			break
		}
		if x, err = c.nextBase(g, x); err != nil {
			return graph.NoNode, err
		}
	}

	for steps := 0; c.mark[y] != c.gen; steps++ {
		if steps > c.n || y == c.source {
			return graph.NoNode, c.loopError(y)
		}
		if y, err = c.nextBase(g, y); err != nil {
			return graph.NoNode, err
		}
	}
	return y, nil
}

// chain lists the blossom bases from x up to b, b excluded.
// StemTop walks the tree down from the common base b as long as the tree arc
// of the current base keeps a balanced residual capacity of two, so a path
// may use that arc together with its complement. It returns the base where
// the walk stops, which may be the source.
func (c *Context) StemTop(g *graph.BalancedGraph, b int) (int, error) {
	var err error
	for steps := 0; b != c.source && c.prop[b] != graph.NoArc && g.BalCap(c.prop[b]) >= 2; steps++ {
		if steps > c.n {
			return graph.NoNode, c.loopError(b)
		}
		if b, err = c.nextBase(g, b); err != nil {
			return graph.NoNode, err
		}
	}
	return b, nil
}

func (c *Context) chain(g *graph.BalancedGraph, x, b int, out []int) ([]int, error) {
	var err error
	for steps := 0; x != b; steps++ {
		if steps > c.n || x == c.source {
			return out, c.loopError(x)
		}
		out = append(out, x)
		if x, err = c.nextBase(g, x); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (c *Context) loopError(v int) error {
	return apperror.NewCritical(apperror.CodeConsistencyViolation,
		fmt.Sprintf("base chain through node %d does not reach the common base", v))
}
