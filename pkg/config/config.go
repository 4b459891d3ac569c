// Package config loads the configuration of the balanced flow tools.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Solver   SolverConfig   `koanf:"solver"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level      string `koanf:"level"`     // debug, info, warn, error
	Format     string `koanf:"format"`    // json, text
	Output     string `koanf:"output"`    // stdout, stderr, file
	FilePath   string `koanf:"file_path"` // used when output is file
	MaxSize    int    `koanf:"max_size"`  // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// SolverConfig holds the default run options.
type SolverConfig struct {
	Algorithm         string        `koanf:"algorithm"` // bns, scaling, anstee, phase
	Strategy          string        `koanf:"strategy"`  // exact, depth_first, heuristic
	TieBreak          string        `koanf:"tie_break"` // distance, timestamp
	HeuristicAttempts int           `koanf:"heuristic_attempts"`
	MaxIterations     int           `koanf:"max_iterations"`
	Timeout           time.Duration `koanf:"timeout"`
	Verify            bool          `koanf:"verify"`
	MaxConcurrency    int           `koanf:"max_concurrency"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // memory, redis, bolt
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	BoltPath   string        `koanf:"bolt_path"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // memory driver only
}

// Address returns the redis address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the run history store.
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	validLevels     = set("debug", "info", "warn", "error")
	validAlgorithms = set("", "bns", "augment", "scaling", "capacity_scaling", "anstee", "phase", "mv", "micali_vazirani")
	validStrategies = set("", "exact", "bfs", "depth_first", "depth-first", "dfs", "heuristic")
	validTieBreaks  = set("", "distance", "timestamp")
	validDrivers    = set("memory", "redis", "bolt")
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Validate checks the configuration and fills a missing log level.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if !validAlgorithms[strings.ToLower(c.Solver.Algorithm)] {
		errs = append(errs, fmt.Sprintf("solver.algorithm must be one of: bns, scaling, anstee, phase, got %s", c.Solver.Algorithm))
	}
	if !validStrategies[strings.ToLower(c.Solver.Strategy)] {
		errs = append(errs, fmt.Sprintf("solver.strategy must be one of: exact, depth_first, heuristic, got %s", c.Solver.Strategy))
	}
	if !validTieBreaks[strings.ToLower(c.Solver.TieBreak)] {
		errs = append(errs, fmt.Sprintf("solver.tie_break must be one of: distance, timestamp, got %s", c.Solver.TieBreak))
	}
	if c.Solver.HeuristicAttempts < 0 {
		errs = append(errs, "solver.heuristic_attempts must be non-negative")
	}
	if c.Solver.Timeout < 0 {
		errs = append(errs, "solver.timeout must be non-negative")
	}

	if c.Cache.Enabled && !validDrivers[c.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, bolt, got %s", c.Cache.Driver))
	}
	if c.Cache.Enabled && c.Cache.Driver == "bolt" && c.Cache.BoltPath == "" {
		errs = append(errs, "cache.bolt_path is required for the bolt driver")
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be within [0,1], got %v", c.Tracing.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
