// Package solversvc exposes the balanced flow solver to other modules.
package solversvc

import (
	"context"
	"io"

	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/algorithms"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/converter"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/service"
)

type (
	// Network is a balanced network with its flow.
	Network = graph.BalancedGraph
	// Options configures a solve.
	Options = algorithms.Options
	// Result summarises a solve.
	Result = algorithms.Result
	// Strategy selects the augmenting path search.
	Strategy = search.Strategy

	// Service wraps solving with caching, history and observability.
	Service = service.SolverService
	// SolveRequest is one Service solve.
	SolveRequest = service.SolveRequest
	// SolveResponse carries the solved copy of the request network.
	SolveResponse = service.SolveResponse
)

// Search strategies.
const (
	Exact      = search.Exact
	DepthFirst = search.DepthFirst
	Heuristic  = search.Heuristic
)

// Algorithms.
const (
	AlgorithmBNS     = algorithms.AlgorithmBNS
	AlgorithmScaling = algorithms.AlgorithmScaling
	AlgorithmAnstee  = algorithms.AlgorithmAnstee
	AlgorithmPhase   = algorithms.AlgorithmPhase
)

// NewNetwork creates an empty network with 2*pairs nodes.
func NewNetwork(pairs int) *Network {
	return graph.NewBalancedGraph(pairs)
}

// ReadNetwork parses a network document and returns the network with its
// source node.
func ReadNetwork(r io.Reader) (*Network, int, error) {
	doc, err := converter.ParseNetwork(r)
	if err != nil {
		return nil, 0, err
	}
	g, err := doc.Build()
	if err != nil {
		return nil, 0, err
	}
	return g, doc.Source, nil
}

// DefaultOptions returns the default solve options.
func DefaultOptions() *Options {
	return algorithms.DefaultOptions()
}

// MaxBalFlow raises the flow of g from s to a maximum balanced flow in place.
func MaxBalFlow(ctx context.Context, g *Network, s int, opts *Options) (*Result, error) {
	return algorithms.MaxBalFlow(ctx, g, s, opts)
}

// Probe reports whether a balanced augmenting path from s exists.
func Probe(ctx context.Context, g *Network, s int, strategy Strategy) (bool, error) {
	return algorithms.Probe(ctx, g, s, strategy)
}

// NewService creates a solver service with default options and no cache or
// history.
func NewService(version string) *Service {
	return service.NewSolverService(version)
}
