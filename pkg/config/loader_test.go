package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noFiles() LoaderOption {
	return WithConfigPaths(filepath.Join(os.TempDir(), "balflow-does-not-exist.yaml"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_LoadDefaults(t *testing.T) {
	l := NewLoader(noFiles())
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "balflow" {
		t.Errorf("expected app name 'balflow', got %s", cfg.App.Name)
	}
	if cfg.Solver.Algorithm != "bns" {
		t.Errorf("expected algorithm 'bns', got %s", cfg.Solver.Algorithm)
	}
	if cfg.Solver.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Solver.Timeout)
	}
	if cfg.Cache.DefaultTTL != 24*time.Hour {
		t.Errorf("expected cache ttl 24h, got %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Log.Output != "stderr" {
		t.Errorf("expected log output 'stderr', got %s", cfg.Log.Output)
	}
	if l.File() != "" {
		t.Errorf("expected no config file, got %s", l.File())
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: custom
solver:
  algorithm: phase
  strategy: depth_first
  tie_break: timestamp
  verify: true
  timeout: 5s
cache:
  enabled: true
  driver: bolt
  bolt_path: /tmp/cache.db
`)

	l := NewLoader(WithConfigPaths(path))
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom" {
		t.Errorf("expected app name 'custom', got %s", cfg.App.Name)
	}
	if cfg.Solver.Algorithm != "phase" || cfg.Solver.Strategy != "depth_first" || cfg.Solver.TieBreak != "timestamp" {
		t.Errorf("unexpected solver section: %+v", cfg.Solver)
	}
	if !cfg.Solver.Verify {
		t.Error("expected verify from file")
	}
	if cfg.Solver.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Solver.Timeout)
	}
	if cfg.Cache.Driver != "bolt" || cfg.Cache.BoltPath != "/tmp/cache.db" {
		t.Errorf("unexpected cache section: %+v", cfg.Cache)
	}
	if l.File() != path {
		t.Errorf("expected file %s, got %s", path, l.File())
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("BALFLOW_APP_NAME", "env-balflow")
	t.Setenv("BALFLOW_SOLVER_ALGORITHM", "anstee")
	t.Setenv("BALFLOW_SOLVER_HEURISTIC_ATTEMPTS", "3")
	t.Setenv("BALFLOW_CACHE_DEFAULT_TTL", "1h")

	cfg, err := NewLoader(noFiles()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-balflow" {
		t.Errorf("expected app name 'env-balflow', got %s", cfg.App.Name)
	}
	if cfg.Solver.Algorithm != "anstee" {
		t.Errorf("expected algorithm 'anstee', got %s", cfg.Solver.Algorithm)
	}
	if cfg.Solver.HeuristicAttempts != 3 {
		t.Errorf("expected 3 heuristic attempts, got %d", cfg.Solver.HeuristicAttempts)
	}
	if cfg.Cache.DefaultTTL != time.Hour {
		t.Errorf("expected cache ttl 1h, got %v", cfg.Cache.DefaultTTL)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: file-balflow
solver:
  algorithm: scaling
`)
	t.Setenv("BALFLOW_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(path)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	if cfg.Solver.Algorithm != "scaling" {
		t.Errorf("expected algorithm from file, got %s", cfg.Solver.Algorithm)
	}
}

func TestLoader_InvalidValue(t *testing.T) {
	t.Setenv("BALFLOW_SOLVER_STRATEGY", "random")

	if _, err := NewLoader(noFiles()).Load(); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoader_WithFile(t *testing.T) {
	path := writeConfig(t, "app:\n  name: explicit\n")

	cfg, err := NewLoader(WithFile(path)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Name != "explicit" {
		t.Errorf("expected 'explicit', got %s", cfg.App.Name)
	}

	if _, err := NewLoader(WithFile(path + ".missing")).Load(); err == nil {
		t.Error("expected error for a missing explicit file")
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_APP_NAME", "custom-prefix")

	cfg, err := NewLoader(noFiles(), WithEnvPrefix("CUSTOM_")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Name != "custom-prefix" {
		t.Errorf("expected 'custom-prefix', got %s", cfg.App.Name)
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	path := writeConfig(t, "app:\n  name: config-env-var\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := NewLoader(noFiles()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Name != "config-env-var" {
		t.Errorf("expected 'config-env-var', got %s", cfg.App.Name)
	}
}

func TestMustLoad(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config: %v", r)
		}
	}()

	if cfg := MustLoad(noFiles()); cfg == nil {
		t.Error("expected non-nil config")
	}
}
