// Package service runs balanced flow solves with caching, run history,
// metrics and tracing around the algorithms package.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/cache"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/logger"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/metrics"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/telemetry"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/algorithms"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/converter"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/repository"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
)

// SolverService solves balanced flow problems.
type SolverService struct {
	version  string
	defaults algorithms.Options
	pool     *algorithms.SolverPool
	results  *cache.ResultCache
	cacheTTL time.Duration
	runs     repository.RunRepository
	metrics  *metrics.Metrics
	tracker  *metrics.SolveTracker
	log      *slog.Logger
}

// Option configures a SolverService.
type Option func(*SolverService)

// WithDefaults sets the options used when a request leaves a field empty.
func WithDefaults(opts *algorithms.Options) Option {
	return func(s *SolverService) {
		if opts != nil {
			s.defaults = *opts
		}
	}
}

// WithConcurrency limits the number of solves running at once.
func WithConcurrency(n int) Option {
	return func(s *SolverService) { s.pool = algorithms.NewSolverPool(n) }
}

// WithResultCache enables result caching. A non-positive ttl uses the cache
// default.
func WithResultCache(rc *cache.ResultCache, ttl time.Duration) Option {
	return func(s *SolverService) {
		s.results = rc
		s.cacheTTL = ttl
	}
}

// WithRepository records every solve in repo.
func WithRepository(repo repository.RunRepository) Option {
	return func(s *SolverService) { s.runs = repo }
}

// WithMetrics replaces the default metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SolverService) { s.metrics = m }
}

// WithLogger replaces the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SolverService) { s.log = l }
}

// NewSolverService creates a service. Without options it solves with
// algorithms.DefaultOptions and records to the default metrics only.
func NewSolverService(version string, opts ...Option) *SolverService {
	s := &SolverService{
		version:  version,
		defaults: *algorithms.DefaultOptions(),
		metrics:  metrics.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = algorithms.NewSolverPool(0)
	}
	if s.log == nil {
		s.log = logger.Log
	}
	s.log = s.log.With(slog.String("component", "solver"))
	if s.metrics != nil {
		s.tracker = metrics.NewSolveTracker(s.metrics.SolvesInFlight)
	}
	return s
}

// Version returns the service version.
func (s *SolverService) Version() string { return s.version }

// SolveRequest is one solve. Empty names fall back to the service defaults.
type SolveRequest struct {
	Graph     *graph.BalancedGraph
	Source    int
	Algorithm string
	Strategy  string
	TieBreak  string
	// Verify overrides the default verification setting when set.
	Verify *bool
	// NoCache skips the cache lookup. The result is still stored.
	NoCache bool
}

// SolveResponse carries the solved copy of the request network.
type SolveResponse struct {
	RunID       string
	NetworkHash string
	Cached      bool
	Result      *algorithms.Result
	Graph       *graph.BalancedGraph
}

// Solve computes a maximum balanced flow on a copy of req.Graph. On
// cancellation, timeout or iteration limit the partial result is returned
// together with the error.
func (s *SolverService) Solve(ctx context.Context, req *SolveRequest) (*SolveResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SolverService.Solve")
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	opts, err := s.buildOptions(req)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	g := req.Graph
	key := converter.NetworkKey(g, req.Source)
	hash := cache.NetworkHash(key)
	algorithm := opts.Algorithm.String()
	variant := opts.Strategy.String()

	span.SetAttributes(telemetry.NetworkAttributes(g.N(), g.M(), req.Source)...)
	span.SetAttributes(
		attribute.String(telemetry.AttrNetworkHash, hash),
		attribute.String(telemetry.AttrAlgorithm, algorithm),
		attribute.String(telemetry.AttrStrategy, variant),
	)
	if s.metrics != nil {
		s.metrics.RecordNetworkSize("solve", g.N(), g.M())
	}

	log := s.log.With(slog.String("network", hash[:12]), slog.String("algorithm", algorithm))

	if resp := s.fromCache(ctx, req, key, algorithm, variant, log); resp != nil {
		resp.NetworkHash = hash
		s.record(ctx, resp, req, variant, log)
		return resp, nil
	}

	opts.Logger = log
	if s.tracker != nil {
		s.tracker.Start(algorithm)
	}
	solved, result, err := s.pool.SolvePooled(ctx, g, req.Source, opts)
	if s.tracker != nil {
		s.tracker.End(algorithm)
	}

	resp := &SolveResponse{
		RunID:       uuid.NewString(),
		NetworkHash: hash,
		Result:      result,
		Graph:       solved,
	}
	span.SetAttributes(attribute.String(telemetry.AttrRunID, resp.RunID))
	if result != nil {
		result.Algorithm = opts.Algorithm
		span.SetAttributes(telemetry.SolveAttributes(algorithm, result.Status.String(), result.Value,
			result.Augmentations, result.Phases, result.Blossoms)...)
		if s.metrics != nil {
			s.metrics.RecordSolve(metrics.SolveStats{
				Algorithm:     algorithm,
				Status:        result.Status.String(),
				Duration:      result.Duration,
				Value:         result.Value,
				Augmentations: result.Augmentations,
				Phases:        result.Phases,
				Blossoms:      result.Blossoms,
				Rejected:      result.Rejected,
			})
		}
	}

	if err != nil {
		telemetry.SetError(ctx, err)
		log.Warn("solve stopped", "run_id", resp.RunID, "error", err)
	} else {
		log.Info("solve finished",
			"run_id", resp.RunID,
			"value", result.Value,
			"augmentations", result.Augmentations,
			"duration", result.Duration)
		s.store(ctx, key, algorithm, variant, resp, log)
	}

	if solved != nil {
		s.record(ctx, resp, req, variant, log)
	}
	return resp, err
}

// fromCache rebuilds a response from a cached result, nil on a miss.
func (s *SolverService) fromCache(ctx context.Context, req *SolveRequest, key cache.Network, algorithm, variant string, log *slog.Logger) *SolveResponse {
	if s.results == nil || req.NoCache {
		return nil
	}

	cached, found, err := s.results.Get(ctx, key, algorithm, variant)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(found)
	}
	telemetry.SetAttributes(ctx, attribute.Bool(telemetry.AttrCacheHit, found))
	if !found {
		return nil
	}

	solved := req.Graph.Clone()
	for e := 0; e < solved.M(); e += 2 {
		if err := solved.SetFlow(e, cached.Flows[e]); err != nil {
			log.Warn("cached flow does not fit the network", "error", err)
			s.invalidate(ctx, key, log)
			return nil
		}
	}
	if err := algorithms.VerifyFlow(solved, req.Source, cached.Value); err != nil {
		log.Warn("cached flow failed verification", "error", err)
		s.invalidate(ctx, key, log)
		return nil
	}

	telemetry.AddEvent(ctx, "cache_hit", attribute.Int64(telemetry.AttrFlowValue, cached.Value))
	log.Debug("served from cache", "value", cached.Value)

	alg, _ := algorithms.ParseAlgorithm(cached.Algorithm)
	return &SolveResponse{
		RunID:  uuid.NewString(),
		Cached: true,
		Graph:  solved,
		Result: &algorithms.Result{
			Algorithm:     alg,
			Value:         cached.Value,
			Increase:      cached.Increase,
			Augmentations: cached.Augmentations,
			Phases:        cached.Phases,
			Blossoms:      cached.Blossoms,
			Status:        algorithms.StatusOptimal,
		},
	}
}

// store caches an optimal result. Failures are logged only.
func (s *SolverService) store(ctx context.Context, key cache.Network, algorithm, variant string, resp *SolveResponse, log *slog.Logger) {
	if s.results == nil || resp.Result.Status != algorithms.StatusOptimal {
		return
	}
	r := resp.Result
	entry := &cache.CachedResult{
		RunID:         resp.RunID,
		Algorithm:     algorithm,
		Status:        r.Status.String(),
		Value:         r.Value,
		Increase:      r.Increase,
		Augmentations: r.Augmentations,
		Phases:        r.Phases,
		Blossoms:      r.Blossoms,
		Flows:         resp.Graph.Flows(),
		DurationMs:    float64(r.Duration.Microseconds()) / 1000,
		ComputedAt:    time.Now().UTC(),
	}
	if err := s.results.Set(ctx, key, algorithm, variant, entry, s.cacheTTL); err != nil {
		log.Warn("failed to cache solve result", "error", err)
	}
}

// record writes the run history. Failures are logged only.
func (s *SolverService) record(ctx context.Context, resp *SolveResponse, req *SolveRequest, variant string, log *slog.Logger) {
	if s.runs == nil {
		return
	}
	r := resp.Result
	run := &repository.Run{
		ID:            resp.RunID,
		NetworkHash:   resp.NetworkHash,
		Nodes:         req.Graph.N(),
		Arcs:          req.Graph.M(),
		Source:        req.Source,
		Algorithm:     r.Algorithm.String(),
		Strategy:      variant,
		Status:        r.Status.String(),
		Value:         r.Value,
		Increase:      r.Increase,
		Augmentations: r.Augmentations,
		Phases:        r.Phases,
		Blossoms:      r.Blossoms,
		Rejected:      r.Rejected,
		DurationMs:    float64(r.Duration.Microseconds()) / 1000,
		Cached:        resp.Cached,
		Flows:         resp.Graph.Flows(),
	}
	if r.Error != nil {
		run.Error = r.Error.Error()
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

// Probe reports whether an augmenting path exists from source. The network
// is not modified.
func (s *SolverService) Probe(ctx context.Context, g *graph.BalancedGraph, source int, strategy string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "SolverService.Probe")
	defer span.End()

	st := s.defaults.Strategy
	if strategy != "" {
		var err error
		if st, err = search.ParseStrategy(strategy); err != nil {
			return false, err
		}
	}
	if g != nil {
		span.SetAttributes(telemetry.NetworkAttributes(g.N(), g.M(), source)...)
	}
	span.SetAttributes(attribute.String(telemetry.AttrStrategy, st.String()))

	found, err := algorithms.Probe(ctx, g, source, st)
	if err != nil {
		telemetry.SetError(ctx, err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("probe.found", found))
	return found, nil
}

// Algorithms describes the available drivers.
func (s *SolverService) Algorithms() []*algorithms.AlgorithmInfo {
	return algorithms.GetAllAlgorithms()
}

// History lists recorded runs.
func (s *SolverService) History(ctx context.Context, opts *repository.ListOptions) ([]*repository.Run, int64, error) {
	if s.runs == nil {
		return nil, 0, apperror.New(apperror.CodeUnimplemented, "run history is not configured")
	}
	ctx, span := telemetry.StartSpan(ctx, "SolverService.History")
	defer span.End()
	return s.runs.List(ctx, opts)
}

// Stats aggregates the recorded runs per algorithm.
func (s *SolverService) Stats(ctx context.Context) ([]*repository.AlgorithmStats, error) {
	if s.runs == nil {
		return nil, apperror.New(apperror.CodeUnimplemented, "run history is not configured")
	}
	return s.runs.Stats(ctx)
}

// Prune deletes runs recorded before cutoff.
func (s *SolverService) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.runs == nil {
		return 0, apperror.New(apperror.CodeUnimplemented, "run history is not configured")
	}
	n, err := s.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("pruned run history", "deleted", n, "cutoff", cutoff)
	return n, nil
}

func validateRequest(req *SolveRequest) error {
	if req == nil || req.Graph == nil {
		return apperror.ErrNilGraph
	}
	if !req.Graph.ValidNode(req.Source) {
		return apperror.NewWithField(apperror.CodeInvalidSource,
			fmt.Sprintf("source %d out of range [0,%d)", req.Source, req.Graph.N()), "source")
	}
	return nil
}

var errNoCache = apperror.New(apperror.CodeUnimplemented, "result cache is not configured")

func (s *SolverService) invalidate(ctx context.Context, key cache.Network, log *slog.Logger) {
	if _, err := s.results.Invalidate(ctx, key); err != nil {
		log.Warn("failed to invalidate cached results", "error", err)
	}
}

// CacheStats returns the statistics of the result cache.
func (s *SolverService) CacheStats(ctx context.Context) (*cache.Stats, error) {
	if s.results == nil {
		return nil, errNoCache
	}
	return s.results.Stats(ctx)
}

// ClearCache drops every cached result and returns how many were dropped.
func (s *SolverService) ClearCache(ctx context.Context) (int64, error) {
	if s.results == nil {
		return 0, errNoCache
	}
	n, err := s.results.InvalidateAll(ctx)
	if err != nil {
		return n, apperror.Wrap(err, apperror.CodeInternal, "failed to clear result cache")
	}
	s.log.Info("cleared result cache", "deleted", n)
	return n, nil
}

// AlgorithmAuto lets the service pick the driver from the network shape.
const AlgorithmAuto = "auto"

// buildOptions overlays the request on a copy of the defaults.
func (s *SolverService) buildOptions(req *SolveRequest) (*algorithms.Options, error) {
	opts := s.defaults

	switch req.Algorithm {
	case "":
	case AlgorithmAuto:
		opts.Algorithm = algorithms.RecommendAlgorithm(req.Graph)
	default:
		a, err := algorithms.ParseAlgorithm(req.Algorithm)
		if err != nil {
			return nil, err
		}
		opts.Algorithm = a
	}
	if req.Strategy != "" {
		st, err := search.ParseStrategy(req.Strategy)
		if err != nil {
			return nil, err
		}
		opts.Strategy = st
	}
	if req.TieBreak != "" {
		tb, err := search.ParseTieBreak(req.TieBreak)
		if err != nil {
			return nil, err
		}
		opts.TieBreak = tb
	}
	if req.Verify != nil {
		opts.Verify = *req.Verify
	}
	return &opts, nil
}
