package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:    AppConfig{Name: "balflow"},
		Log:    LogConfig{Level: "info"},
		Solver: SolverConfig{Algorithm: "bns", Strategy: "exact", TieBreak: "distance"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app.name"},
		{name: "invalid log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "empty log level defaults", mutate: func(c *Config) { c.Log.Level = "" }},
		{name: "phase alias", mutate: func(c *Config) { c.Solver.Algorithm = "micali_vazirani" }},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Solver.Algorithm = "dinic" }, wantErr: "solver.algorithm"},
		{name: "unknown strategy", mutate: func(c *Config) { c.Solver.Strategy = "random" }, wantErr: "solver.strategy"},
		{name: "unknown tie-break", mutate: func(c *Config) { c.Solver.TieBreak = "coin" }, wantErr: "solver.tie_break"},
		{name: "negative attempts", mutate: func(c *Config) { c.Solver.HeuristicAttempts = -1 }, wantErr: "heuristic_attempts"},
		{name: "negative timeout", mutate: func(c *Config) { c.Solver.Timeout = -time.Second }, wantErr: "solver.timeout"},
		{
			name:    "unknown cache driver",
			mutate:  func(c *Config) { c.Cache = CacheConfig{Enabled: true, Driver: "memcached"} },
			wantErr: "cache.driver",
		},
		{
			name:    "bolt without path",
			mutate:  func(c *Config) { c.Cache = CacheConfig{Enabled: true, Driver: "bolt"} },
			wantErr: "cache.bolt_path",
		},
		{
			name:   "disabled cache is not checked",
			mutate: func(c *Config) { c.Cache = CacheConfig{Driver: "memcached"} },
		},
		{
			name:    "metrics port",
			mutate:  func(c *Config) { c.Metrics = MetricsConfig{Enabled: true, Port: 70000} },
			wantErr: "metrics.port",
		},
		{
			name:    "sample rate",
			mutate:  func(c *Config) { c.Tracing.SampleRate = 1.5 },
			wantErr: "tracing.sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateFillsLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Username: "u",
		Password: "p",
		Database: "balflow",
		SSLMode:  "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=balflow sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestCacheConfig_Address(t *testing.T) {
	c := CacheConfig{Host: "redis", Port: 6380}
	if got := c.Address(); got != "redis:6380" {
		t.Errorf("Address() = %q", got)
	}
}

func TestConfig_Environment(t *testing.T) {
	tests := []struct {
		env         string
		development bool
		production  bool
	}{
		{"development", true, false},
		{"dev", true, false},
		{"production", false, true},
		{"prod", false, true},
		{"staging", false, false},
	}
	for _, tt := range tests {
		c := Config{App: AppConfig{Environment: tt.env}}
		if c.IsDevelopment() != tt.development {
			t.Errorf("%s: IsDevelopment() = %v", tt.env, c.IsDevelopment())
		}
		if c.IsProduction() != tt.production {
			t.Errorf("%s: IsProduction() = %v", tt.env, c.IsProduction())
		}
	}
}
