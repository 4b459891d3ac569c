package search

import (
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// frontier receives every node the labelling rules label.
type frontier interface {
	add(v int, petal bool)
}

type queueFrontier struct{ q *graph.Queue }

func (f queueFrontier) add(v int, _ bool) { f.q.Push(v) }

// scanArc applies the labelling rules to arc a leaving the labelled node u.
// It reports true once the target is labelled through a path with positive
// balanced bottleneck; the path is then in Pred.
func (c *Context) scanArc(g *graph.BalancedGraph, u, a int, f frontier) (bool, error) {
	if g.BalCap(a) <= 0 {
		return false, nil
	}
	v := g.EndNode(a)
	cv := graph.Comp(v)

	if !c.Labeled(cv) {
		if !c.Labeled(v) {
			c.setProp(v, a, c.dist[u]+1)
			f.add(v, false)
		}
		return false, nil
	}

	if c.prop[u] != graph.NoArc && a == graph.Reverse(c.prop[u]) {
		return false, nil
	}
	if c.Labeled(v) && c.Base(u) == c.Base(v) {
		return false, nil
	}

	b, err := c.CommonBase(g, c.Base(u), c.Base(cv))
	if err != nil {
		return false, err
	}
	tenacity := c.dist[u] + c.dist[cv] + 1
	if b == c.source {
		return c.tryClose(g, a, tenacity)
	}
	top, err := c.StemTop(g, b)
	if err != nil {
		return false, err
	}
	if top == c.source {
		if found, err := c.tryClose(g, a, tenacity); found || err != nil {
			return found, err
		}
		top = b
	}

	if err := c.Contract(g, u, a, b, top, func(v int) { f.add(v, true) }); err != nil {
		return false, err
	}
	return false, nil
}

// Contract shrinks the blossom closed by arc a from u, given the common base b
// of u and Comp(EndNode(a)). The base chains of both sides are walked towards
// b, always advancing the side with the larger distance label. Every
// unlabelled complement met on the way gets a petal label and is reported to
// label. When top differs from b, the bases from b down to top (as returned
// by StemTop) are absorbed as well and the blossom is based at top.
func (c *Context) Contract(g *graph.BalancedGraph, u, a, b, top int, label func(v int)) error {
	v := g.EndNode(a)
	cv := graph.Comp(v)
	bu, bc := c.Base(u), c.Base(cv)

	if bu == b && bc == b && top == b {
		// u and cv share the blossom; only its unlabelled base complement is new
		if !c.Labeled(v) {
			c.setPetal(v, a, c.dist[u]+1)
			c.shrink(b, v)
			c.blossoms++
			label(v)
		}
		return nil
	}

	tenacity := c.dist[u] + c.dist[cv] + 1
	us, err := c.chain(g, bu, b, c.sideU[:0])
	if err != nil {
		return err
	}
	cs, err := c.chain(g, bc, b, c.sideC[:0])
	if err != nil {
		return err
	}
	stem, err := c.chain(g, b, top, c.stem[:0])
	if err != nil {
		return err
	}
	c.sideU, c.sideC, c.stem = us, cs, stem

	i, j := 0, 0
	for i < len(us) || j < len(cs) {
		if j >= len(cs) || (i < len(us) && c.dist[us[i]] >= c.dist[cs[j]]) {
			c.absorb(top, us[i], graph.Complement(a), tenacity, label)
			i++
		} else {
			c.absorb(top, cs[j], a, tenacity, label)
			j++
		}
	}
	// the stem below b is reached on the c side: up to u, over a, then back
	// along the complement of the path from the stem node to cv
	for _, w := range stem {
		c.absorb(top, w, a, tenacity, label)
	}
	c.blossoms++
	return nil
}

// absorb merges w into the blossom of top and labels its complement through
// petal if it is still unlabelled.
func (c *Context) absorb(top, w, petal, tenacity int, label func(v int)) {
	c.shrink(top, w)
	if cw := graph.Comp(w); !c.Labeled(cw) {
		c.setPetal(cw, petal, tenacity-c.dist[w])
		c.shrink(top, cw)
		label(cw)
	}
}

// tryClose labels the target through petal a, expands the candidate path and
// keeps it when its balanced bottleneck is positive. Otherwise the target
// label is removed again.
func (c *Context) tryClose(g *graph.BalancedGraph, a, tenacity int) (bool, error) {
	t := c.target
	c.setPetal(t, a, tenacity)

	if err := c.ExpandPath(g, c.source, t); err != nil {
		c.unlabel(t)
		return false, err
	}

	lambda, err := g.FindBalCap(c.pred, c.source, t)
	if err != nil {
		c.unlabel(t)
		if apperror.Is(err, apperror.CodeBrokenPath) {
			// candidate is not a simple walk
			c.rejected++
			return false, nil
		}
		return false, err
	}
	if lambda < 1 {
		c.unlabel(t)
		c.rejected++
		return false, nil
	}
	return true, nil
}
