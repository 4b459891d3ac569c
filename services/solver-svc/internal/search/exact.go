package search

import (
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// exactSearch scans labelled nodes in FIFO order. Arcs are taken in the
// adjacency order of the network, which makes the result reproducible.
type exactSearch struct{}

func (exactSearch) Strategy() Strategy { return Exact }

func (exactSearch) Search(c *Context, g *graph.BalancedGraph, s int) (bool, error) {
	if err := c.Reset(g, s); err != nil {
		return false, err
	}

	f := queueFrontier{q: c.queue}
	c.queue.Push(s)
	for !c.queue.Empty() {
		u := c.queue.Pop()
		for _, a := range g.Arcs(u) {
			found, err := c.scanArc(g, u, a, f)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		}
	}
	return false, nil
}
