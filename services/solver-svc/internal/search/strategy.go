package search

import (
	"fmt"
	"strings"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// Searcher looks for a balanced augmenting path from s to Comp(s).
//
// On success the path is already expanded into ctx.Pred() and its balanced
// bottleneck is at least 1. The network flows are never modified.
type Searcher interface {
	Search(ctx *Context, g *graph.BalancedGraph, s int) (bool, error)
	Strategy() Strategy
}

// Strategy selects a Searcher implementation.
type Strategy int

const (
	// Exact is breadth-first search with blossom shrinking. It finds an
	// augmenting path whenever one exists.
	Exact Strategy = iota
	// DepthFirst applies the same labelling rules in depth-first order.
	DepthFirst
	// Heuristic uses tree labels only and accepts a closing arc when the two
	// tree paths meet only at the root. It may miss paths.
	Heuristic
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case DepthFirst:
		return "depth_first"
	case Heuristic:
		return "heuristic"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Complete reports whether a failed search proves that no augmenting path
// exists.
func (s Strategy) Complete() bool {
	return s == Exact
}

// ParseStrategy converts a configuration name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exact", "bfs":
		return Exact, nil
	case "depth_first", "depth-first", "dfs":
		return DepthFirst, nil
	case "heuristic":
		return Heuristic, nil
	default:
		return Exact, apperror.NewWithField(apperror.CodeInvalidOption,
			fmt.Sprintf("unknown search strategy %q", name), "strategy")
	}
}

// TieBreak decides which stack the depth-first search continues from.
type TieBreak int

const (
	// TieBreakDistance continues from the top with the larger distance label.
	TieBreakDistance TieBreak = iota
	// TieBreakTimestamp continues from the most recently labelled top.
	TieBreakTimestamp
)

// String returns the configuration name of the tie-break rule.
func (t TieBreak) String() string {
	switch t {
	case TieBreakDistance:
		return "distance"
	case TieBreakTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("tiebreak(%d)", int(t))
	}
}

// ParseTieBreak converts a configuration name into a TieBreak.
func ParseTieBreak(name string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "distance":
		return TieBreakDistance, nil
	case "timestamp":
		return TieBreakTimestamp, nil
	default:
		return TieBreakDistance, apperror.NewWithField(apperror.CodeInvalidOption,
			fmt.Sprintf("unknown tie-break rule %q", name), "tie_break")
	}
}

// Options configures a Searcher.
type Options struct {
	TieBreak TieBreak
}

// New returns the Searcher for strategy.
func New(strategy Strategy, opts Options) (Searcher, error) {
	switch strategy {
	case Exact:
		return exactSearch{}, nil
	case DepthFirst:
		if opts.TieBreak != TieBreakDistance && opts.TieBreak != TieBreakTimestamp {
			return nil, apperror.NewWithField(apperror.CodeInvalidOption,
				fmt.Sprintf("unknown tie-break rule %d", opts.TieBreak), "tie_break")
		}
		return depthFirstSearch{tieBreak: opts.TieBreak}, nil
	case Heuristic:
		return heuristicSearch{}, nil
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidOption,
			fmt.Sprintf("unknown search strategy %d", int(strategy)), "strategy")
	}
}
