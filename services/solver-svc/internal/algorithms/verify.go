package algorithms

import (
	"fmt"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// =============================================================================
// Verification Hook
// =============================================================================

// Verify checks the flow on g independently of any driver:
//   - feasibility: 0 <= flow <= capacity on every edge
//   - balance: complementary edges carry equal flow
//   - conservation: zero divergence at every node except s and Comp(s)
//   - value: the divergence of s equals the reported value
//
// Every violation is collected as a critical error. The network is left as
// is.
func Verify(g *graph.BalancedGraph, s int, value int64) *apperror.ValidationErrors {
	v := apperror.NewValidationErrors()
	if g == nil {
		v.Add(apperror.NewCritical(apperror.CodeNilInput, "network is nil"))
		return v
	}
	if !g.ValidNode(s) {
		v.Add(apperror.NewCritical(apperror.CodeOutOfRange,
			fmt.Sprintf("source %d out of range [0,%d)", s, g.N())))
		return v
	}

	for e := 0; e < g.M(); e++ {
		edge := g.Edge(e)
		switch {
		case edge.Flow < 0:
			v.Add(apperror.NewCritical(apperror.CodeNegativeFlow,
				fmt.Sprintf("edge %d (%d,%d) carries negative flow %d", e, edge.From, edge.To, edge.Flow)).
				WithDetails("edge", e))
		case edge.Flow > edge.Capacity:
			v.Add(apperror.NewCritical(apperror.CodeCapacityOverflow,
				fmt.Sprintf("edge %d (%d,%d) carries %d over capacity %d", e, edge.From, edge.To, edge.Flow, edge.Capacity)).
				WithDetails("edge", e))
		}

		if e&1 == 0 {
			if mate := g.Edge(e + 1); mate.Flow != edge.Flow {
				v.Add(apperror.NewCritical(apperror.CodeBalanceViolation,
					fmt.Sprintf("edge %d carries %d but its complement %d carries %d", e, edge.Flow, e+1, mate.Flow)).
					WithDetails("edge", e))
			}
		}
	}

	t := graph.Comp(s)
	for n := 0; n < g.N(); n++ {
		if n == s || n == t {
			continue
		}
		if div := g.Divergence(n); div != 0 {
			v.Add(apperror.NewCritical(apperror.CodeConservationViolation,
				fmt.Sprintf("node %d has divergence %d", n, div)).
				WithDetails("node", n))
		}
	}

	if actual := g.FlowValue(s); actual != value {
		v.Add(apperror.NewCritical(apperror.CodeFlowValueMismatch,
			fmt.Sprintf("reported flow value %d, recomputed %d", value, actual)))
	}

	return v
}

// VerifyFlow runs Verify and folds the findings into one consistency error,
// nil when the flow is valid.
func VerifyFlow(g *graph.BalancedGraph, s int, value int64) error {
	v := Verify(g, s, value)
	if v.IsValid() {
		return nil
	}
	first := v.First()
	return apperror.Wrap(first, apperror.CodeConsistencyViolation,
		fmt.Sprintf("flow verification found %d violations", len(v.Errors))).
		WithSeverity(apperror.SeverityCritical).
		WithDetails("violations", v.ErrorMessages())
}
