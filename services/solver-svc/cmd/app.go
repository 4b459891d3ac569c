package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jimmyskull/goblin.2.8b18-sub000/migrations"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/cache"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/config"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/database"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/logger"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/metrics"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/telemetry"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/algorithms"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/repository"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/search"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/service"
)

// app holds the initialised stack of one CLI invocation.
type app struct {
	cfg *config.Config
	svc *service.SolverService
	db  *database.PostgresDB

	closers []func(context.Context) error
}

// newApp brings up the stack in order: telemetry, metrics, cache, database,
// then the service. Optional components that fail to start are logged and
// skipped.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	log := logger.WithService(cfg.App.Name)

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     true,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.Warn("failed to init telemetry", "error", err)
		} else {
			a.closers = append(a.closers, tp.Shutdown)
			log.Debug("telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// a registry per invocation keeps repeated runs in one process apart
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "solver", reg, reg)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	if cfg.Metrics.Enabled {
		srv := m.NewServer(cfg.Metrics.Port, cfg.Metrics.Path)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", "error", err)
			}
		}()
		a.closers = append(a.closers, srv.Shutdown)
	}

	opts, err := solverOptions(cfg.Solver)
	if err != nil {
		a.Close()
		return nil, err
	}
	svcOpts := []service.Option{
		service.WithDefaults(opts),
		service.WithConcurrency(cfg.Solver.MaxConcurrency),
		service.WithMetrics(m),
	}

	if cfg.Cache.Enabled {
		base, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			log.Warn("failed to create cache, continuing without cache", "error", err)
		} else {
			rc := cache.NewResultCache(base, cfg.Cache.DefaultTTL)
			a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
			svcOpts = append(svcOpts, service.WithResultCache(rc, cfg.Cache.DefaultTTL))
			if err := m.RegisterCacheCollector(cfg.Metrics.Namespace, "cache", rc); err != nil {
				log.Warn("failed to register cache collector", "error", err)
			}
			log.Debug("result cache initialized", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.DefaultTTL)
		}
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			log.Warn("failed to connect to database, run history disabled", "error", err)
		} else {
			a.db = db
			a.closers = append(a.closers, func(context.Context) error { db.Close(); return nil })
			if err := database.RunMigrations(ctx, db.Pool(), cfg.Database.AutoMigrate, migrations.Postgres()); err != nil {
				a.Close()
				return nil, err
			}
			svcOpts = append(svcOpts, service.WithRepository(repository.NewPostgresRunRepository(db)))
		}
	}

	a.svc = service.NewSolverService(cfg.App.Version, svcOpts...)
	return a, nil
}

// Close releases everything newApp started, last started first.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Log.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

// solverOptions converts the solver section into algorithm options.
func solverOptions(cfg config.SolverConfig) (*algorithms.Options, error) {
	alg, err := algorithms.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	st, err := search.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	tb, err := search.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	opts := algorithms.DefaultOptions().
		WithAlgorithm(alg).
		WithStrategy(st).
		WithTimeout(cfg.Timeout).
		WithMaxIterations(cfg.MaxIterations).
		WithVerify(cfg.Verify)
	opts.TieBreak = tb
	opts.HeuristicAttempts = cfg.HeuristicAttempts
	return opts, nil
}
