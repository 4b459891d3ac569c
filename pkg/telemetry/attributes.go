package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	// Network
	AttrNetworkNodes  = "network.nodes"
	AttrNetworkArcs   = "network.arcs"
	AttrNetworkSource = "network.source"
	AttrNetworkHash   = "network.hash"

	// Solver
	AttrAlgorithm     = "solver.algorithm"
	AttrStrategy      = "solver.strategy"
	AttrAugmentations = "solver.augmentations"
	AttrPhases        = "solver.phases"
	AttrBlossoms      = "solver.blossoms"
	AttrFlowValue     = "solver.flow_value"
	AttrStatus        = "solver.status"

	// Cache
	AttrCacheHit = "cache.hit"

	// Run
	AttrRunID = "run.id"
)

// NetworkAttributes returns the attributes of an input network.
func NetworkAttributes(nodes, arcs, source int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkArcs, arcs),
		attribute.Int(AttrNetworkSource, source),
	}
}

// SolveAttributes returns the attributes of a finished solve.
func SolveAttributes(algorithm, status string, value int64, augmentations, phases, blossoms int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, algorithm),
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrFlowValue, value),
		attribute.Int(AttrAugmentations, augmentations),
		attribute.Int(AttrPhases, phases),
		attribute.Int(AttrBlossoms, blossoms),
	}
}
