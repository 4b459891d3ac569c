package search

import (
	"fmt"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// task is one pending expansion. Expand(w, z) writes the labelled path from
// w to z. CoExpand(w, z) writes the complement of that path, which runs from
// Comp(z) to Comp(w).
type task struct {
	co   bool
	w, z int
}

// Expand writes the augmenting path from the root to its complement into
// Pred. The target must be labelled.
func (c *Context) Expand(g *graph.BalancedGraph) error {
	if !c.Labeled(c.target) {
		return apperror.New(apperror.CodeRejectedOperation,
			fmt.Sprintf("target %d is not labelled", c.target))
	}
	return c.ExpandPath(g, c.source, c.target)
}

// ExpandPath writes the labelled path from w to z into Pred. Entries of Pred
// off the path are cleared. For identical labels and forest the result is
// identical.
func (c *Context) ExpandPath(g *graph.BalancedGraph, w, z int) error {
	for v := range c.pred {
		c.pred[v] = graph.NoArc
	}

	c.work = append(c.work[:0], task{w: w, z: z})
	for len(c.work) > 0 {
		tk := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]

		var err error
		if tk.co {
			err = c.coExpand(g, tk.w, tk.z)
		} else {
			err = c.expand(g, tk.w, tk.z)
		}
		if err != nil {
			c.work = c.work[:0]
			return err
		}
	}
	return nil
}

func (c *Context) expand(g *graph.BalancedGraph, w, z int) error {
	for z != w {
		switch {
		case c.prop[z] != graph.NoArc:
			a := c.prop[z]
			c.pred[z] = a
			z = g.StartNode(a)

		case c.petal[z] != graph.NoArc:
			a := c.petal[z]
			x1, x2 := g.StartNode(a), g.EndNode(a)
			c.pred[x2] = a
			c.work = append(c.work, task{co: true, w: graph.Comp(z), z: graph.Comp(x2)})
			z = x1

		default:
			return c.unlabelledError(w, z)
		}
	}
	return nil
}

func (c *Context) coExpand(g *graph.BalancedGraph, w, z int) error {
	for z != w {
		switch {
		case c.prop[z] != graph.NoArc:
			a := c.prop[z]
			p := g.StartNode(a)
			c.pred[graph.Comp(p)] = graph.Complement(a)
			z = p

		case c.petal[z] != graph.NoArc:
			a := c.petal[z]
			x1, x2 := g.StartNode(a), g.EndNode(a)
			c.work = append(c.work, task{w: graph.Comp(z), z: graph.Comp(x2)})
			c.pred[graph.Comp(x1)] = graph.Complement(a)
			z = x1

		default:
			return c.unlabelledError(w, z)
		}
	}
	return nil
}

func (c *Context) unlabelledError(w, z int) error {
	return apperror.NewCritical(apperror.CodeConsistencyViolation,
		fmt.Sprintf("expansion towards %d reached node %d without label", w, z)).
		WithDetails("anchor", w).
		WithDetails("node", z)
}
