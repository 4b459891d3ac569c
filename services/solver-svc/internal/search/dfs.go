package search

import (
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// depthFirstSearch keeps tree-labelled nodes on the primary stack and nodes
// labelled through a petal on the secondary stack. Every node is scanned
// incrementally through the context cursor, so a node stays on its stack
// until all of its arcs are used.
type depthFirstSearch struct {
	tieBreak TieBreak
}

type stackFrontier struct{ c *Context }

func (f stackFrontier) add(v int, petal bool) {
	if petal {
		f.c.secondary = append(f.c.secondary, v)
	} else {
		f.c.primary = append(f.c.primary, v)
	}
}

func (d depthFirstSearch) Strategy() Strategy { return DepthFirst }

func (d depthFirstSearch) Search(c *Context, g *graph.BalancedGraph, s int) (bool, error) {
	if err := c.Reset(g, s); err != nil {
		return false, err
	}

	f := stackFrontier{c: c}
	c.primary = append(c.primary, s)
	for {
		stack := d.pick(c)
		if stack == nil {
			return false, nil
		}
		u := (*stack)[len(*stack)-1]

		a, ok := c.cursor.Next(u)
		if !ok {
			*stack = (*stack)[:len(*stack)-1]
			continue
		}

		found, err := c.scanArc(g, u, a, f)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
}

// pick returns the stack to continue from, nil when both are empty.
func (d depthFirstSearch) pick(c *Context) *[]int {
	switch {
	case len(c.primary) == 0 && len(c.secondary) == 0:
		return nil
	case len(c.secondary) == 0:
		return &c.primary
	case len(c.primary) == 0:
		return &c.secondary
	}

	p := c.primary[len(c.primary)-1]
	q := c.secondary[len(c.secondary)-1]
	if d.key(c, q) > d.key(c, p) {
		return &c.secondary
	}
	return &c.primary
}

func (d depthFirstSearch) key(c *Context, v int) int {
	if d.tieBreak == TieBreakTimestamp {
		return c.stamp[v]
	}
	return c.dist[v]
}
