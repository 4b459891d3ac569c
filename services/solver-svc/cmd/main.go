// Command balflow computes maximum balanced flows on skew-symmetric
// networks.
//
// A network file lists node pairs, the source and the arcs; every arc
// implies its complement. A matching section builds the network of an
// undirected graph so that the flow value is twice its maximum matching:
//
//	pairs: 4
//	source: 0
//	matching:
//	  vertices: 3
//	  edges: [[0, 1], [1, 2], [2, 0]]
//
// # Commands
//
//	balflow solve net.yaml -a phase -o json   solve and print the flow
//	balflow probe net.yaml                    look for an augmenting path
//	balflow algorithms                        list the drivers
//	balflow history [stats|prune]             inspect recorded runs
//	balflow migrate up|down|status            manage the history schema
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: BALFLOW_)
//  2. The file given by --config or CONFIG_PATH, else config.yaml in the
//     standard locations
//  3. Default values
//
// Key options (environment variable format):
//
//	BALFLOW_SOLVER_ALGORITHM   - bns, scaling, anstee, phase (default: bns)
//	BALFLOW_SOLVER_STRATEGY    - exact, depth_first, heuristic (default: exact)
//	BALFLOW_SOLVER_TIMEOUT     - run timeout (default: 30s)
//	BALFLOW_CACHE_ENABLED      - cache results (default: false)
//	BALFLOW_CACHE_DRIVER       - memory, redis, bolt (default: memory)
//	BALFLOW_DATABASE_ENABLED   - record runs in PostgreSQL (default: false)
//	BALFLOW_METRICS_ENABLED    - serve Prometheus metrics (default: false)
//	BALFLOW_TRACING_ENABLED    - export OpenTelemetry traces (default: false)
//
// Components that fail to start (cache, database, tracing) are logged and
// skipped; solving never depends on them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, version, os.Args[1:])
	stop()
	os.Exit(code)
}
