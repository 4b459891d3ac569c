package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "BALFLOW_"
	configEnvVar = "CONFIG_PATH"
)

// ErrConfigNotFound is returned by loadConfigFile when no file exists in the
// search paths. Load treats it as "defaults and environment only".
var ErrConfigNotFound = errors.New("config file not found")

// Loader merges configuration from several sources.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	explicit    string
	used        string
}

// NewLoader creates a loader with the standard search paths.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"balflow.yaml",
			"config/balflow.yaml",
			"/etc/balflow/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths replaces the search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithFile names a config file that must exist. It takes precedence over
// CONFIG_PATH and the search paths.
func WithFile(path string) LoaderOption {
	return func(l *Loader) {
		l.explicit = path
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load merges, lowest priority first:
//  1. defaults
//  2. config file (yaml)
//  3. environment variables
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// File returns the config file that was loaded, empty if none.
func (l *Loader) File() string {
	return l.used
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "balflow",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Solver
		"solver.algorithm":          "bns",
		"solver.strategy":           "exact",
		"solver.tie_break":          "distance",
		"solver.heuristic_attempts": 0,
		"solver.max_iterations":     0,
		"solver.timeout":            30 * time.Second,
		"solver.verify":             false,
		"solver.max_concurrency":    4,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.bolt_path":   "balflow-cache.db",
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 1000,

		// Database
		"database.enabled":            false,
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "balflow",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Metrics
		"metrics.enabled":   false,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "balflow",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "balflow",
		"tracing.sample_rate":  0.1,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if l.explicit != "" {
		if _, err := os.Stat(l.explicit); err != nil {
			return err
		}
		return l.loadFile(l.explicit)
	}

	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.loadFile(configPath)
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.loadFile(absPath)
		}
	}

	return fmt.Errorf("%w in paths: %v", ErrConfigNotFound, l.configPaths)
}

func (l *Loader) loadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return err
	}
	l.used = path
	return nil
}

// loadEnv maps BALFLOW_SECTION_KEY onto section.key. Keys with underscores
// in the field name go through envKeyMappings.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			key = strings.Replace(key, "_", ".", 1)
		}

		return key, value
	}), nil)
}

var envKeyMappings = map[string]string{
	// Log
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",

	// Solver
	"solver_tie_break":          "solver.tie_break",
	"solver_heuristic_attempts": "solver.heuristic_attempts",
	"solver_max_iterations":     "solver.max_iterations",
	"solver_max_concurrency":    "solver.max_concurrency",

	// Cache
	"cache_bolt_path":   "cache.bolt_path",
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// Database
	"database_ssl_mode":           "database.ssl_mode",
	"database_max_open_conns":     "database.max_open_conns",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_auto_migrate":       "database.auto_migrate",

	// Tracing
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",
}

// MustLoad loads the configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load loads the configuration with the default loader.
func Load() (*Config, error) {
	return NewLoader().Load()
}
