// Package algorithms provides the maximum balanced flow drivers: balanced
// network search with augmentation, balanced capacity scaling, Anstee's
// reduction to ordinary maximum flow, and the phase-structured engine.
//
// # Thread Safety
//
// Drivers are NOT thread-safe. Exactly one driver may run on a network at a
// time. Use BalancedGraph.Clone() or the SolverPool for concurrent solves on
// the same input.
//
// # Determinism
//
// Every driver scans arcs in insertion order and resolves ties by scan order,
// so identical networks and options give identical flows.
//
// # Context Support
//
// Drivers check the context once per augmentation or phase. On cancellation
// the flows reached so far are kept and a partial Result is returned together
// with the cancellation error.
//
// # Example Usage
//
//	g := graph.NewBalancedGraph(3)
//	g.AddArc(0, 2, 1)
//	g.AddArc(3, 1, 1)
//	g.AddArc(2, 3, 1)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	result, err := algorithms.MaxBalFlow(ctx, g, 0, nil)
//	if err != nil {
//	    log.Printf("Error: %v", err)
//	} else {
//	    log.Printf("Balanced flow: %d", result.Value)
//	}
package algorithms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
)

// =============================================================================
// Error Definitions
// =============================================================================

// Standard errors returned by the drivers. They are *apperror.Error values,
// so both errors.Is and apperror.Code work on them.
var (
	// ErrNilGraph indicates that a nil network was passed.
	ErrNilGraph = apperror.ErrNilGraph

	// ErrSourceOutOfRange indicates that the source is not a node of the network.
	ErrSourceOutOfRange = apperror.NewWithField(apperror.CodeOutOfRange, "source node out of range", "source")

	// ErrNothingPending indicates that CancelOdd ran without pending remainders.
	ErrNothingPending = apperror.New(apperror.CodeNothingPending, "no odd remainder pending")

	// ErrContextCanceled indicates that the run was cancelled via context.
	ErrContextCanceled = apperror.ErrCanceled

	// ErrTimeout indicates that the run exceeded its timeout.
	ErrTimeout = apperror.ErrTimeout

	// ErrIterationLimit indicates that MaxIterations was reached.
	ErrIterationLimit = apperror.ErrIterationLimit
)

// =============================================================================
// Algorithm
// =============================================================================

// Algorithm selects a maximum balanced flow driver.
type Algorithm int

const (
	// AlgorithmBNS repeats balanced network search and augmentation.
	AlgorithmBNS Algorithm = iota
	// AlgorithmScaling runs balanced capacity scaling.
	AlgorithmScaling
	// AlgorithmAnstee starts from an ordinary maximum flow.
	AlgorithmAnstee
	// AlgorithmPhase runs the phase-structured engine.
	AlgorithmPhase
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmBNS:
		return "bns"
	case AlgorithmScaling:
		return "scaling"
	case AlgorithmAnstee:
		return "anstee"
	case AlgorithmPhase:
		return "phase"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm converts a configuration name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bns", "augment":
		return AlgorithmBNS, nil
	case "scaling", "capacity_scaling":
		return AlgorithmScaling, nil
	case "anstee":
		return AlgorithmAnstee, nil
	case "phase", "mv", "micali_vazirani":
		return AlgorithmPhase, nil
	default:
		return AlgorithmBNS, apperror.NewWithField(apperror.CodeInvalidAlgorithm,
			fmt.Sprintf("unknown algorithm %q", name), "algorithm")
	}
}

// =============================================================================
// Solver Options
// =============================================================================

// Options configures a run.
//
// Zero values are safe to use; DefaultOptions() documents the defaults.
// Options can be chained using the builder pattern:
//
//	opts := DefaultOptions().
//	    WithAlgorithm(AlgorithmScaling).
//	    WithVerify(true)
type Options struct {
	// Algorithm selects the driver used by MaxBalFlow.
	Algorithm Algorithm

	// Strategy is the search used by the augmentation loop. A failed
	// incomplete strategy is confirmed by Exact.
	Strategy search.Strategy

	// TieBreak configures DepthFirst.
	TieBreak search.TieBreak

	// HeuristicAttempts is the number of Heuristic searches tried before the
	// configured strategy. Zero disables them.
	HeuristicAttempts int

	// MaxIterations limits the number of augmentations. Zero or negative
	// means unlimited.
	MaxIterations int

	// Timeout sets the maximum duration of a run. Zero relies on the context.
	Timeout time.Duration

	// Verify runs the verification hook after the run.
	Verify bool

	// Logger receives per-phase debug records. nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the defaults:
//   - Algorithm: BNS
//   - Strategy: Exact
//   - TieBreak: distance
//   - HeuristicAttempts: 0
//   - MaxIterations: unlimited
//   - Timeout: 30 seconds
//   - Verify: false
func DefaultOptions() *Options {
	return &Options{
		Algorithm: AlgorithmBNS,
		Strategy:  search.Exact,
		TieBreak:  search.TieBreakDistance,
		Timeout:   30 * time.Second,
	}
}

// WithAlgorithm sets the driver and returns the options for chaining.
func (o *Options) WithAlgorithm(a Algorithm) *Options {
	o.Algorithm = a
	return o
}

// WithStrategy sets the search strategy and returns the options for chaining.
func (o *Options) WithStrategy(s search.Strategy) *Options {
	o.Strategy = s
	return o
}

// WithTimeout sets the timeout and returns the options for chaining.
func (o *Options) WithTimeout(timeout time.Duration) *Options {
	o.Timeout = timeout
	return o
}

// WithMaxIterations sets the augmentation limit and returns the options for
// chaining.
func (o *Options) WithMaxIterations(max int) *Options {
	o.MaxIterations = max
	return o
}

// WithVerify enables the verification hook and returns the options for
// chaining.
func (o *Options) WithVerify(verify bool) *Options {
	o.Verify = verify
	return o
}

// WithLogger sets the logger and returns the options for chaining.
func (o *Options) WithLogger(l *slog.Logger) *Options {
	o.Logger = l
	return o
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// =============================================================================
// Solver Result
// =============================================================================

// Status is the outcome of a run.
type Status int

const (
	// StatusOptimal means no balanced augmenting path is left.
	StatusOptimal Status = iota
	// StatusCanceled means the context was cancelled.
	StatusCanceled
	// StatusTimeout means the deadline passed.
	StatusTimeout
	// StatusIterationLimit means MaxIterations was reached.
	StatusIterationLimit
	// StatusError means the run failed.
	StatusError
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusCanceled:
		return "canceled"
	case StatusTimeout:
		return "timeout"
	case StatusIterationLimit:
		return "iteration_limit"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a run. It is returned even when the run fails,
// describing the flow that was reached.
type Result struct {
	// Algorithm is the driver that ran.
	Algorithm Algorithm

	// Value is the flow value at the end of the run, the net outflow of s.
	Value int64

	// Increase is the value gained by this run.
	Increase int64

	// Augmentations is the number of balanced augmentations performed.
	Augmentations int

	// Phases is the number of scaling or engine phases.
	Phases int

	// Blossoms is the number of blossoms shrunk over all searches.
	Blossoms int

	// Rejected is the number of closing arcs discarded for lack of balanced
	// capacity.
	Rejected int

	// Status indicates the outcome.
	Status Status

	// Error is the error that ended the run, nil for StatusOptimal.
	Error error

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// =============================================================================
// Validation
// =============================================================================

func validate(g *graph.BalancedGraph, s int) error {
	if g == nil {
		return ErrNilGraph
	}
	if !g.ValidNode(s) {
		return apperror.Wrap(ErrSourceOutOfRange, apperror.CodeOutOfRange,
			fmt.Sprintf("source %d out of range [0,%d)", s, g.N())).WithField("source")
	}
	return nil
}

// =============================================================================
// Main Solver Entry Point
// =============================================================================

// MaxBalFlow computes a maximum balanced flow from s to Comp(s), starting
// from the flow currently on g. The flows are updated in place.
//
// # Parameters
//
//   - ctx: Context for cancellation and timeout. Must not be nil.
//   - g: The balanced network. Its flows must be balanced and feasible.
//   - s: The source node. The target is Comp(s).
//   - opts: Options. nil uses DefaultOptions().
//
// # Algorithm Selection
//
//   - AlgorithmBNS: search and augment until no path is left.
//   - AlgorithmScaling: capacity scaling phases, then BNS.
//   - AlgorithmAnstee: ordinary max flow, symmetric replay, then BNS.
//   - AlgorithmPhase: several disjoint augmentations per phase.
//
// Range errors are returned before anything is mutated. On cancellation or
// timeout the partial result is returned together with the error.
func MaxBalFlow(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validate(g, s); err != nil {
		return &Result{Algorithm: opts.Algorithm, Status: StatusError, Error: err}, err
	}

	switch opts.Algorithm {
	case AlgorithmBNS:
		return BNSAndAugment(ctx, g, s, opts)
	case AlgorithmScaling:
		return BalancedScaling(ctx, g, s, opts)
	case AlgorithmAnstee:
		return Anstee(ctx, g, s, opts)
	case AlgorithmPhase:
		return Phase(ctx, g, s, opts)
	default:
		err := apperror.NewWithField(apperror.CodeInvalidAlgorithm,
			fmt.Sprintf("unknown algorithm %d", int(opts.Algorithm)), "algorithm")
		return &Result{Algorithm: opts.Algorithm, Status: StatusError, Error: err}, err
	}
}

// Probe reports whether a balanced augmenting path from s exists, using the
// given strategy. The flows are not modified. A failed incomplete strategy
// is not confirmed; use search.Exact for a definite answer.
func Probe(ctx context.Context, g *graph.BalancedGraph, s int, strategy search.Strategy) (bool, error) {
	if err := validate(g, s); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, contextError(err)
	}

	searcher, err := search.New(strategy, search.Options{})
	if err != nil {
		return false, err
	}
	return searcher.Search(search.NewContext(g.N()), g, s)
}

// contextError maps a context error onto the coded sentinels.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeTimeout, ErrTimeout.Message)
	}
	return apperror.Wrap(err, apperror.CodeCanceled, ErrContextCanceled.Message)
}

// statusOf derives the Status from the error that ended a run.
func statusOf(err error) Status {
	switch apperror.Code(err) {
	case apperror.CodeCanceled:
		return StatusCanceled
	case apperror.CodeTimeout:
		return StatusTimeout
	case apperror.CodeIterationLimit:
		return StatusIterationLimit
	default:
		return StatusError
	}
}

// =============================================================================
// Solver Pool
// =============================================================================

// SolverPool runs independent solves concurrently, each on its own copy of
// the network.
//
// It provides:
//   - Concurrency limiting to prevent resource exhaustion
//   - Automatic network cloning so the input stays untouched
type SolverPool struct {
	workers chan struct{}
}

// NewSolverPool creates a pool with the given maximum concurrency.
// If maxConcurrency <= 0, it defaults to 10.
func NewSolverPool(maxConcurrency int) *SolverPool {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &SolverPool{
		workers: make(chan struct{}, maxConcurrency),
	}
}

// Acquire obtains a worker slot, blocking until one is free or ctx is done.
// Call Release() when the work is complete.
func (sp *SolverPool) Acquire(ctx context.Context) error {
	select {
	case sp.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	}
}

// Release returns a worker slot to the pool.
func (sp *SolverPool) Release() {
	<-sp.workers
}

// SolvePooled solves a clone of g and returns the solved clone with the
// result. The original network is NOT modified.
func (sp *SolverPool) SolvePooled(ctx context.Context, g *graph.BalancedGraph, s int, opts *Options) (*graph.BalancedGraph, *Result, error) {
	if err := validate(g, s); err != nil {
		return nil, &Result{Status: StatusError, Error: err}, err
	}
	if err := sp.Acquire(ctx); err != nil {
		return nil, &Result{Status: statusOf(err), Error: err}, err
	}
	defer sp.Release()

	cloned := g.Clone()
	result, err := MaxBalFlow(ctx, cloned, s, opts)
	return cloned, result, err
}

// BatchTask is a single task for batch processing.
type BatchTask struct {
	// TaskID is a user-defined identifier for correlating results.
	TaskID string

	// Graph is the input network. It is cloned internally.
	Graph *graph.BalancedGraph

	// Source is the source node.
	Source int

	// Options for the run. nil uses defaults.
	Options *Options
}

// BatchResult is the result of a batch task.
type BatchResult struct {
	// TaskID matches the input BatchTask.TaskID.
	TaskID string

	// Graph is the solved copy of the input.
	Graph *graph.BalancedGraph

	// Result is the solver result for this task.
	Result *Result

	// Error is the error of the run, if any.
	Error error
}

// BatchSolve solves several networks in parallel up to the pool's limit.
// Results are returned in input order.
func (sp *SolverPool) BatchSolve(ctx context.Context, tasks []BatchTask) []BatchResult {
	results := make([]BatchResult, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t BatchTask) {
			defer wg.Done()
			solved, result, err := sp.SolvePooled(ctx, t.Graph, t.Source, t.Options)
			results[idx] = BatchResult{
				TaskID: t.TaskID,
				Graph:  solved,
				Result: result,
				Error:  err,
			}
		}(i, task)
	}

	wg.Wait()
	return results
}

// =============================================================================
// Algorithm Information
// =============================================================================

// AlgorithmInfo describes a driver for display and selection.
type AlgorithmInfo struct {
	// Algorithm is the enum value.
	Algorithm Algorithm

	// Name is the human-readable name.
	Name string

	// Description is a brief description.
	Description string

	// TimeComplexity is the Big-O time complexity.
	TimeComplexity string

	// BestFor lists scenarios where the driver excels.
	BestFor []string

	// Caveats lists limitations.
	Caveats []string
}

// GetAlgorithmInfo returns information about a driver, nil for unknown ones.
func GetAlgorithmInfo(algo Algorithm) *AlgorithmInfo {
	infos := map[Algorithm]*AlgorithmInfo{
		AlgorithmBNS: {
			Algorithm:      AlgorithmBNS,
			Name:           "Balanced augmentation",
			Description:    "Balanced network search with blossom shrinking, one augmentation per search",
			TimeComplexity: "O(V × E × value)",
			BestFor:        []string{"small_networks", "unit_capacities", "matching"},
			Caveats:        []string{"Number of searches grows with the flow value"},
		},
		AlgorithmScaling: {
			Algorithm:      AlgorithmScaling,
			Name:           "Balanced capacity scaling",
			Description:    "Plain path search over arcs with large balanced capacity, then augmentation",
			TimeComplexity: "O(E² × log U)",
			BestFor:        []string{"large_capacities"},
			Caveats:        []string{"No gain on unit capacity networks"},
		},
		AlgorithmAnstee: {
			Algorithm:      AlgorithmAnstee,
			Name:           "Anstee",
			Description:    "Ordinary maximum flow, symmetric replay of its paths, balanced correction of odd remainders",
			TimeComplexity: "O(V² × E) + correction",
			BestFor:        []string{"large_values", "few_odd_cycles"},
			Caveats:        []string{"Needs a scratch copy of the network"},
		},
		AlgorithmPhase: {
			Algorithm:      AlgorithmPhase,
			Name:           "Phase engine",
			Description:    "Level-synchronous search with bridges by tenacity and several disjoint augmentations per phase",
			TimeComplexity: "O(√V × E) phases of O(E) each",
			BestFor:        []string{"matching", "large_sparse_networks"},
			Caveats:        []string{"Most involved bookkeeping"},
		},
	}

	return infos[algo]
}

// GetAllAlgorithms returns information about all drivers in a stable order.
func GetAllAlgorithms() []*AlgorithmInfo {
	algorithms := []Algorithm{AlgorithmBNS, AlgorithmScaling, AlgorithmAnstee, AlgorithmPhase}

	var infos []*AlgorithmInfo
	for _, algo := range algorithms {
		if info := GetAlgorithmInfo(algo); info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}

// RecommendAlgorithm suggests a driver from the network shape:
//   - unit capacities: Phase
//   - capacities above 1024: Scaling
//   - otherwise: BNS
func RecommendAlgorithm(g *graph.BalancedGraph) Algorithm {
	if g == nil || g.M() == 0 {
		return AlgorithmBNS
	}
	maxCap := g.MaxCapacity()
	switch {
	case maxCap <= 1:
		return AlgorithmPhase
	case maxCap > 1024:
		return AlgorithmScaling
	default:
		return AlgorithmBNS
	}
}
