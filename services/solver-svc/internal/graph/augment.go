package graph

import (
	"fmt"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
)

// =============================================================================
// Balanced Augmentation
// =============================================================================

// A path P from s to t is given as a predecessor array: pred[v] is the
// residual arc entering v on P. Augmenting by Lambda pushes Lambda on every
// arc of P and on every arc of Comp(P), the complementary path that also runs
// from s to t. An edge touched several times gets the net coefficient of all
// its occurrences, so Lambda is bounded by floor(residual / |coefficient|).

// pathCoefficients walks the pred chain from t back to s and returns the net
// coefficient of every touched edge. The returned slice comes from the
// scratch pool and must be released by the caller.
func (g *BalancedGraph) pathCoefficients(pred []int, s, t int) (*[]int64, []int, error) {
	if err := g.checkNode(s, "source"); err != nil {
		return nil, nil, err
	}
	if err := g.checkNode(t, "target"); err != nil {
		return nil, nil, err
	}
	if len(pred) < g.nodes {
		return nil, nil, apperror.NewCritical(apperror.CodeBrokenPath,
			fmt.Sprintf("pred array has %d entries for %d nodes", len(pred), g.nodes))
	}

	coef := GetPool().AcquireInt64s(len(g.edges))
	seen := GetPool().AcquireInts(len(g.edges), 0)
	defer GetPool().ReleaseInts(seen)
	touched := make([]int, 0, 16)

	add := func(a int) {
		e := a >> 1
		if (*seen)[e] == 0 {
			(*seen)[e] = 1
			touched = append(touched, e)
		}
		if a&1 == 0 {
			(*coef)[e]++
		} else {
			(*coef)[e]--
		}
	}

	v := t
	for steps := 0; v != s; steps++ {
		a := pred[v]
		if steps >= g.nodes || !g.ValidArc(a) || g.EndNode(a) != v {
			GetPool().ReleaseInt64s(coef)
			return nil, nil, apperror.NewCritical(apperror.CodeBrokenPath,
				fmt.Sprintf("pred chain from %d to %d broken at node %d", t, s, v))
		}
		add(a)
		add(a ^ 2)
		v = g.StartNode(a)
	}

	return coef, touched, nil
}

// FindBalCap returns the largest Lambda by which the path stored in pred can
// be augmented together with its complement.
func (g *BalancedGraph) FindBalCap(pred []int, s, t int) (int64, error) {
	coef, touched, err := g.pathCoefficients(pred, s, t)
	if err != nil {
		return 0, err
	}
	defer GetPool().ReleaseInt64s(coef)

	lambda := int64(-1)
	for _, e := range touched {
		k := (*coef)[e]
		var res int64
		switch {
		case k > 0:
			res = (g.edges[e].Capacity - g.edges[e].Flow) / k
		case k < 0:
			res = g.edges[e].Flow / -k
		default:
			continue
		}
		if lambda < 0 || res < lambda {
			lambda = res
		}
	}
	if lambda < 0 {
		// every occurrence cancelled out
		return 0, nil
	}
	return lambda, nil
}

// BalAugment pushes lambda along the path stored in pred and along its
// complement. It fails without mutation when lambda is not positive or when
// some edge cannot take the change.
func (g *BalancedGraph) BalAugment(pred []int, s, t int, lambda int64) error {
	if lambda <= 0 {
		return apperror.New(apperror.CodeRejectedOperation,
			fmt.Sprintf("augmentation by non-positive amount %d", lambda))
	}

	coef, touched, err := g.pathCoefficients(pred, s, t)
	if err != nil {
		return err
	}
	defer GetPool().ReleaseInt64s(coef)

	for _, e := range touched {
		f := g.edges[e].Flow + (*coef)[e]*lambda
		if f < 0 || f > g.edges[e].Capacity {
			return apperror.New(apperror.CodeRejectedOperation,
				fmt.Sprintf("augmentation by %d exceeds the residual capacity of edge %d", lambda, e))
		}
	}
	for _, e := range touched {
		g.edges[e].Flow += (*coef)[e] * lambda
	}
	return nil
}

// PathArcs returns the arcs of the path stored in pred in order from s to t.
func (g *BalancedGraph) PathArcs(pred []int, s, t int) ([]int, error) {
	if len(pred) < g.nodes {
		return nil, apperror.NewCritical(apperror.CodeBrokenPath,
			fmt.Sprintf("pred array has %d entries for %d nodes", len(pred), g.nodes))
	}
	var rev []int
	v := t
	for steps := 0; v != s; steps++ {
		if !g.ValidNode(v) {
			return nil, g.checkNode(v, "node")
		}
		a := pred[v]
		if steps >= g.nodes || !g.ValidArc(a) || g.EndNode(a) != v {
			return nil, apperror.NewCritical(apperror.CodeBrokenPath,
				fmt.Sprintf("pred chain from %d to %d broken at node %d", t, s, v))
		}
		rev = append(rev, a)
		v = g.StartNode(a)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev, nil
}
