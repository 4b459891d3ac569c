package search

import (
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// heuristicSearch grows a plain search tree and never shrinks blossoms. A
// closing arc (u, v) is tried only when the tree paths of u and Comp(v) meet
// at the root alone.
type heuristicSearch struct{}

func (heuristicSearch) Strategy() Strategy { return Heuristic }

func (heuristicSearch) Search(c *Context, g *graph.BalancedGraph, s int) (bool, error) {
	if err := c.Reset(g, s); err != nil {
		return false, err
	}
	t := c.target

	c.queue.Push(s)
	for !c.queue.Empty() {
		u := c.queue.Pop()
		for _, a := range g.Arcs(u) {
			if g.BalCap(a) <= 0 {
				continue
			}
			v := g.EndNode(a)
			cv := graph.Comp(v)

			if u == s && v == t {
				found, err := c.tryClose(g, a, 1)
				if err != nil || found {
					return found, err
				}
				continue
			}

			if !c.Labeled(cv) {
				if !c.Labeled(v) {
					c.setProp(v, a, c.dist[u]+1)
					c.queue.Push(v)
				}
				continue
			}
			if c.prop[u] != graph.NoArc && a == graph.Reverse(c.prop[u]) {
				continue
			}
			if !c.disjointTreePaths(g, u, cv) {
				continue
			}

			found, err := c.tryClose(g, a, c.dist[u]+c.dist[cv]+1)
			if err != nil || found {
				return found, err
			}
		}
	}
	return false, nil
}

// disjointTreePaths reports whether the tree paths from x and from y to the
// root share no node but the root.
func (c *Context) disjointTreePaths(g *graph.BalancedGraph, x, y int) bool {
	c.gen++
	for steps := 0; x != c.source; steps++ {
		if steps > c.n || c.prop[x] == graph.NoArc {
			return false
		}
		c.mark[x] = c.gen
		x = g.StartNode(c.prop[x])
	}
	for steps := 0; y != c.source; steps++ {
		if steps > c.n || c.prop[y] == graph.NoArc || c.mark[y] == c.gen {
			return false
		}
		y = g.StartNode(c.prop[y])
	}
	return true
}
