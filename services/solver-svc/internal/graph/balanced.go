// Package graph provides the balanced network model used by the balanced
// flow solvers.
package graph

import (
	"fmt"
	"math"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
)

// =============================================================================
// Constants
// =============================================================================

// NoArc marks an absent arc in predecessor and label arrays.
const NoArc = -1

// NoNode marks an absent node.
const NoNode = -1

// Infinity is the capacity used for arcs without an upper bound.
const Infinity int64 = math.MaxInt64 / 4

// =============================================================================
// Edge
// =============================================================================

// Edge is one stored arc of the network.
//
// Edges are created in complementary pairs: edge 2k goes from u to v and
// edge 2k+1 goes from Comp(v) to Comp(u). Both carry the same capacity, and a
// balanced flow keeps their flows equal.
type Edge struct {
	// From is the tail node.
	From int

	// To is the head node.
	To int

	// Capacity is the upper bound on the flow.
	Capacity int64

	// Flow is the current flow amount, 0 <= Flow <= Capacity.
	Flow int64
}

// =============================================================================
// Balanced Graph
// =============================================================================

// BalancedGraph is a flow network whose nodes and arcs occur in
// complementary pairs.
//
// # Nodes
//
// Nodes are integers in [0, N). The complement of v is v^1, so the node set
// is a union of pairs {2i, 2i+1}.
//
// # Arcs
//
// Search and augmentation run on residual arcs. Residual arc a refers to
// edge a>>1; a&1 == 0 is the forward direction and a&1 == 1 the backward
// one. With this numbering
//
//	Reverse(a)    = a ^ 1
//	Complement(a) = a ^ 2
//
// because the complement of edge e is e^1 with the same orientation.
//
// # Concurrency
//
// BalancedGraph is not safe for concurrent use. Exactly one search or driver
// may work on a graph at a time.
type BalancedGraph struct {
	nodes int
	edges []Edge

	// adjacency holds the residual arcs leaving each node in insertion
	// order. The order fixes the scan order of every search.
	adjacency [][]int
}

// NewBalancedGraph creates a network with the given number of complementary
// node pairs, i.e. 2*pairs nodes.
func NewBalancedGraph(pairs int) *BalancedGraph {
	if pairs < 0 {
		pairs = 0
	}
	n := 2 * pairs
	return &BalancedGraph{
		nodes:     n,
		edges:     make([]Edge, 0, 4*n),
		adjacency: make([][]int, n),
	}
}

// AddArc adds the arc (u, v) with the given capacity together with its
// complement (Comp(v), Comp(u)). It returns the residual arc id of the
// forward arc (u, v).
func (g *BalancedGraph) AddArc(u, v int, capacity int64) (int, error) {
	if err := g.checkNode(u, "from"); err != nil {
		return NoArc, err
	}
	if err := g.checkNode(v, "to"); err != nil {
		return NoArc, err
	}
	if capacity < 0 {
		return NoArc, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("negative capacity %d on arc (%d,%d)", capacity, u, v), "capacity")
	}

	e := len(g.edges)
	g.edges = append(g.edges,
		Edge{From: u, To: v, Capacity: capacity},
		Edge{From: Comp(v), To: Comp(u), Capacity: capacity},
	)
	g.link(e)
	g.link(e + 1)

	return 2 * e, nil
}

func (g *BalancedGraph) link(e int) {
	edge := g.edges[e]
	g.adjacency[edge.From] = append(g.adjacency[edge.From], 2*e)
	g.adjacency[edge.To] = append(g.adjacency[edge.To], 2*e+1)
}

// Comp returns the complementary node of v.
func Comp(v int) int {
	return v ^ 1
}

// Reverse returns the residual arc in the opposite direction of a.
func Reverse(a int) int {
	return a ^ 1
}

// Complement returns the complementary residual arc of a.
func Complement(a int) int {
	return a ^ 2
}

// EdgeOf returns the stored edge index behind residual arc a.
func EdgeOf(a int) int {
	return a >> 1
}

// IsBackward reports whether a runs against its edge.
func IsBackward(a int) bool {
	return a&1 == 1
}

// =============================================================================
// Size And Range
// =============================================================================

// N returns the number of nodes.
func (g *BalancedGraph) N() int {
	return g.nodes
}

// M returns the number of stored edges, complements included.
func (g *BalancedGraph) M() int {
	return len(g.edges)
}

// ArcCount returns the number of residual arcs (2*M).
func (g *BalancedGraph) ArcCount() int {
	return 2 * len(g.edges)
}

// ValidNode reports whether v is a node of g.
func (g *BalancedGraph) ValidNode(v int) bool {
	return v >= 0 && v < g.nodes
}

// ValidArc reports whether a is a residual arc of g.
func (g *BalancedGraph) ValidArc(a int) bool {
	return a >= 0 && a < 2*len(g.edges)
}

// CheckNode returns a range error if v is not a node of g.
func (g *BalancedGraph) CheckNode(v int) error {
	return g.checkNode(v, "node")
}

// CheckArc returns a range error if a is not a residual arc of g.
func (g *BalancedGraph) CheckArc(a int) error {
	if g.ValidArc(a) {
		return nil
	}
	return apperror.NewWithField(apperror.CodeOutOfRange,
		fmt.Sprintf("arc %d out of range [0,%d)", a, 2*len(g.edges)), "arc")
}

func (g *BalancedGraph) checkNode(v int, field string) error {
	if g.ValidNode(v) {
		return nil
	}
	return apperror.NewWithField(apperror.CodeOutOfRange,
		fmt.Sprintf("node %d out of range [0,%d)", v, g.nodes), field)
}

// =============================================================================
// Arc Queries
// =============================================================================

// StartNode returns the tail of residual arc a.
func (g *BalancedGraph) StartNode(a int) int {
	e := &g.edges[a>>1]
	if a&1 == 0 {
		return e.From
	}
	return e.To
}

// EndNode returns the head of residual arc a.
func (g *BalancedGraph) EndNode(a int) int {
	e := &g.edges[a>>1]
	if a&1 == 0 {
		return e.To
	}
	return e.From
}

// Capacity returns the capacity of the edge behind a.
func (g *BalancedGraph) Capacity(a int) int64 {
	return g.edges[a>>1].Capacity
}

// Flow returns the flow on the edge behind a.
func (g *BalancedGraph) Flow(a int) int64 {
	return g.edges[a>>1].Flow
}

// ResCap returns the residual capacity of a: the free capacity for a forward
// arc, the current flow for a backward one.
func (g *BalancedGraph) ResCap(a int) int64 {
	e := &g.edges[a>>1]
	if a&1 == 0 {
		return e.Capacity - e.Flow
	}
	return e.Flow
}

// BalCap returns the balanced residual capacity of a, clamped by its own
// residual capacity and by the residual capacity of its complement.
func (g *BalancedGraph) BalCap(a int) int64 {
	r := g.ResCap(a)
	if c := g.ResCap(a ^ 2); c < r {
		return c
	}
	return r
}

// Edge returns a copy of stored edge e.
func (g *BalancedGraph) Edge(e int) Edge {
	return g.edges[e]
}

// Arcs returns the residual arcs leaving v in scan order. The slice is owned
// by the graph and must not be modified.
func (g *BalancedGraph) Arcs(v int) []int {
	return g.adjacency[v]
}

// MaxCapacity returns the largest finite edge capacity.
func (g *BalancedGraph) MaxCapacity() int64 {
	var maxCap int64
	for i := range g.edges {
		if c := g.edges[i].Capacity; c > maxCap && c < Infinity {
			maxCap = c
		}
	}
	return maxCap
}

// =============================================================================
// Flow Mutation
// =============================================================================

// Push sends delta units along residual arc a. A negative delta cancels
// flow. The caller keeps the flow within bounds.
func (g *BalancedGraph) Push(a int, delta int64) {
	if a&1 == 0 {
		g.edges[a>>1].Flow += delta
	} else {
		g.edges[a>>1].Flow -= delta
	}
}

// BalPush sends delta units along a and along its complement.
func (g *BalancedGraph) BalPush(a int, delta int64) {
	g.Push(a, delta)
	g.Push(a^2, delta)
}

// SetFlow sets the flow of edge e and of its complement. It fails without
// mutation when the value does not fit the capacity.
func (g *BalancedGraph) SetFlow(e int, flow int64) error {
	if e < 0 || e >= len(g.edges) {
		return apperror.NewWithField(apperror.CodeOutOfRange,
			fmt.Sprintf("edge %d out of range [0,%d)", e, len(g.edges)), "edge")
	}
	if flow < 0 || flow > g.edges[e].Capacity {
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("flow %d outside [0,%d] on edge %d", flow, g.edges[e].Capacity, e), "flow")
	}
	g.edges[e].Flow = flow
	g.edges[e^1].Flow = flow
	return nil
}

// Divergence returns the net outflow of v.
func (g *BalancedGraph) Divergence(v int) int64 {
	var div int64
	for _, a := range g.adjacency[v] {
		if a&1 == 0 {
			div += g.edges[a>>1].Flow
		} else {
			div -= g.edges[a>>1].Flow
		}
	}
	return div
}

// FlowValue returns the value of the current flow from s, the net outflow of
// s.
func (g *BalancedGraph) FlowValue(s int) int64 {
	return g.Divergence(s)
}

// ResetFlow sets every flow to zero.
func (g *BalancedGraph) ResetFlow() {
	for i := range g.edges {
		g.edges[i].Flow = 0
	}
}

// Clone returns a deep copy of the network, flows included.
func (g *BalancedGraph) Clone() *BalancedGraph {
	c := &BalancedGraph{
		nodes:     g.nodes,
		edges:     make([]Edge, len(g.edges)),
		adjacency: make([][]int, g.nodes),
	}
	copy(c.edges, g.edges)
	for v := range g.adjacency {
		c.adjacency[v] = append([]int(nil), g.adjacency[v]...)
	}
	return c
}

// CopyFlowFrom overwrites the flows of g with those of other. Both networks
// must have the same edge set.
func (g *BalancedGraph) CopyFlowFrom(other *BalancedGraph) error {
	if other == nil || len(other.edges) != len(g.edges) {
		return apperror.New(apperror.CodeInvalidArgument, "flow copy between networks of different shape")
	}
	for i := range g.edges {
		g.edges[i].Flow = other.edges[i].Flow
	}
	return nil
}

// Flows returns the flow of every stored edge in edge order.
func (g *BalancedGraph) Flows() []int64 {
	out := make([]int64, len(g.edges))
	for i := range g.edges {
		out[i] = g.edges[i].Flow
	}
	return out
}
