package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envVars = []string{
	"FWNET_CLUSTERS", "FWNET_NODES_PER_CLUSTER", "FWNET_DIMENSION", "FWNET_NOISE_RATE",
	"FWNET_SEED", "FWNET_ITERATIONS", "FWNET_VARIANTS", "FWNET_PARALLEL",
	"FWNET_MU", "FWNET_CONSTRAINT", "FWNET_RADIUS", "FWNET_STEP_RULE", "FWNET_LOSS",
	"FWNET_WORKERS", "FWNET_DEGENERATE",
	"FWNET_ASYNC_POLICY", "FWNET_ASYNC_SEED", "FWNET_ASYNC_CADENCE",
	"FWNET_METRICS_ENABLED", "FWNET_METRICS_ADDR", "FWNET_LOG_LEVEL",
}

// clearEnv unsets every FWNET_ variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Test Experiment defaults
	if cfg.Experiment.Clusters != 1 {
		t.Errorf("Expected 1 cluster, got %d", cfg.Experiment.Clusters)
	}
	if cfg.Experiment.NodesPerCluster != 100 {
		t.Errorf("Expected 100 nodes per cluster, got %d", cfg.Experiment.NodesPerCluster)
	}
	if cfg.Experiment.Dimension != 20 {
		t.Errorf("Expected dimension 20, got %d", cfg.Experiment.Dimension)
	}
	if cfg.Experiment.NoiseRate != 0.05 {
		t.Errorf("Expected noise rate 0.05, got %v", cfg.Experiment.NoiseRate)
	}
	if cfg.Experiment.Seed != 2017 {
		t.Errorf("Expected seed 2017, got %d", cfg.Experiment.Seed)
	}
	if cfg.Experiment.Iterations != 500 {
		t.Errorf("Expected 500 iterations, got %d", cfg.Experiment.Iterations)
	}
	if len(cfg.Experiment.Variants) != 5 {
		t.Errorf("Expected 5 variants, got %v", cfg.Experiment.Variants)
	}
	if cfg.Experiment.Nodes() != 100 {
		t.Errorf("Expected 100 nodes, got %d", cfg.Experiment.Nodes())
	}

	// Test Optimizer defaults
	if cfg.Optimizer.Mu != 1 {
		t.Errorf("Expected mu 1, got %v", cfg.Optimizer.Mu)
	}
	if cfg.Optimizer.Constraint != "l2" || cfg.Optimizer.Radius != 1 {
		t.Errorf("Expected l2 ball of radius 1, got %s radius %v", cfg.Optimizer.Constraint, cfg.Optimizer.Radius)
	}
	if cfg.Optimizer.StepRule != "diminishing" {
		t.Errorf("Expected diminishing step rule, got %s", cfg.Optimizer.StepRule)
	}
	if cfg.Optimizer.Degenerate != "abort" {
		t.Errorf("Expected abort degenerate policy, got %s", cfg.Optimizer.Degenerate)
	}

	// Test Async defaults
	if cfg.Async.Policy != "permutation" {
		t.Errorf("Expected permutation policy, got %s", cfg.Async.Policy)
	}
	if cfg.Async.Cadence != "activation" {
		t.Errorf("Expected activation cadence, got %s", cfg.Async.Cadence)
	}

	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config is invalid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("FWNET_CLUSTERS", "3")
	t.Setenv("FWNET_NODES_PER_CLUSTER", "10")
	t.Setenv("FWNET_DIMENSION", "8")
	t.Setenv("FWNET_NOISE_RATE", "0.1")
	t.Setenv("FWNET_SEED", "42")
	t.Setenv("FWNET_ITERATIONS", "50")
	t.Setenv("FWNET_VARIANTS", "local, regularized")
	t.Setenv("FWNET_PARALLEL", "false")
	t.Setenv("FWNET_MU", "0.5")
	t.Setenv("FWNET_CONSTRAINT", "l1")
	t.Setenv("FWNET_WORKERS", "4")
	t.Setenv("FWNET_ASYNC_POLICY", "round-robin")
	t.Setenv("FWNET_ASYNC_CADENCE", "epoch")
	t.Setenv("FWNET_METRICS_ENABLED", "true")
	t.Setenv("FWNET_METRICS_ADDR", "localhost:9100")
	t.Setenv("FWNET_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()

	if cfg.Experiment.Nodes() != 30 {
		t.Errorf("Expected 30 nodes, got %d", cfg.Experiment.Nodes())
	}
	if cfg.Experiment.Dimension != 8 {
		t.Errorf("Expected dimension 8, got %d", cfg.Experiment.Dimension)
	}
	if cfg.Experiment.NoiseRate != 0.1 {
		t.Errorf("Expected noise rate 0.1, got %v", cfg.Experiment.NoiseRate)
	}
	if cfg.Experiment.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Experiment.Seed)
	}
	if cfg.Experiment.Iterations != 50 {
		t.Errorf("Expected 50 iterations, got %d", cfg.Experiment.Iterations)
	}
	if strings.Join(cfg.Experiment.Variants, ",") != "local,regularized" {
		t.Errorf("Expected variants [local regularized], got %v", cfg.Experiment.Variants)
	}
	if cfg.Experiment.Parallel {
		t.Error("Expected parallel disabled")
	}
	if cfg.Optimizer.Mu != 0.5 {
		t.Errorf("Expected mu 0.5, got %v", cfg.Optimizer.Mu)
	}
	if cfg.Optimizer.Constraint != "l1" {
		t.Errorf("Expected l1 constraint, got %s", cfg.Optimizer.Constraint)
	}
	if cfg.Optimizer.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Optimizer.Workers)
	}
	if cfg.Async.Policy != "round-robin" || cfg.Async.Cadence != "epoch" {
		t.Errorf("Expected round-robin/epoch, got %s/%s", cfg.Async.Policy, cfg.Async.Cadence)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != "localhost:9100" {
		t.Errorf("Expected metrics on localhost:9100, got %v %s", cfg.Metrics.Enabled, cfg.Metrics.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t)

	// Unparseable numbers keep the default
	t.Setenv("FWNET_ITERATIONS", "many")
	t.Setenv("FWNET_MU", "strong")
	cfg := LoadFromEnv()

	if cfg.Experiment.Iterations != 500 {
		t.Errorf("Expected default iterations 500 for invalid value, got %d", cfg.Experiment.Iterations)
	}
	if cfg.Optimizer.Mu != 1 {
		t.Errorf("Expected default mu 1 for invalid value, got %v", cfg.Optimizer.Mu)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "fwnet.yaml")
	data := `
experiment:
  nodes_per_cluster: 12
  iterations: 40
  variants: [centralized, async-regularized]
optimizer:
  mu: 2.5
  step_rule: line-search
async:
  policy: uniform
  seed: 7
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	// env overrides the file
	t.Setenv("FWNET_ITERATIONS", "60")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Experiment.NodesPerCluster != 12 {
		t.Errorf("Expected 12 nodes per cluster, got %d", cfg.Experiment.NodesPerCluster)
	}
	if cfg.Experiment.Iterations != 60 {
		t.Errorf("Expected env override 60 iterations, got %d", cfg.Experiment.Iterations)
	}
	if len(cfg.Experiment.Variants) != 2 || cfg.Experiment.Variants[1] != "async-regularized" {
		t.Errorf("Unexpected variants %v", cfg.Experiment.Variants)
	}
	if cfg.Optimizer.Mu != 2.5 || cfg.Optimizer.StepRule != "line-search" {
		t.Errorf("Unexpected optimizer %+v", cfg.Optimizer)
	}
	if cfg.Async.Policy != "uniform" || cfg.Async.Seed != 7 {
		t.Errorf("Unexpected async %+v", cfg.Async)
	}

	// untouched fields keep their defaults
	if cfg.Experiment.Dimension != 20 {
		t.Errorf("Expected default dimension 20, got %d", cfg.Experiment.Dimension)
	}
	if cfg.Optimizer.Radius != 1 {
		t.Errorf("Expected default radius 1, got %v", cfg.Optimizer.Radius)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("experiment: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "Valid default config", mutate: func(*Config) {}},
		{name: "Zero iterations", mutate: func(c *Config) { c.Experiment.Iterations = 0 }, wantErr: "Iterations"},
		{name: "Dimension one", mutate: func(c *Config) { c.Experiment.Dimension = 1 }, wantErr: "Dimension"},
		{name: "Noise rate one", mutate: func(c *Config) { c.Experiment.NoiseRate = 1 }, wantErr: "NoiseRate"},
		{name: "Negative mu", mutate: func(c *Config) { c.Optimizer.Mu = -1 }, wantErr: "Mu"},
		{name: "Zero radius", mutate: func(c *Config) { c.Optimizer.Radius = 0 }, wantErr: "Radius"},
		{name: "Unknown constraint", mutate: func(c *Config) { c.Optimizer.Constraint = "simplex" }, wantErr: "Constraint"},
		{name: "Unknown variant", mutate: func(c *Config) { c.Experiment.Variants = []string{"gossip"} }, wantErr: "Variants"},
		{name: "No variants", mutate: func(c *Config) { c.Experiment.Variants = nil }, wantErr: "Variants"},
		{name: "Duplicate variant", mutate: func(c *Config) { c.Experiment.Variants = []string{"local", "local"} }, wantErr: "duplicate"},
		{name: "Unknown policy", mutate: func(c *Config) { c.Async.Policy = "lottery" }, wantErr: "Policy"},
		{name: "Bad metrics address", mutate: func(c *Config) { c.Metrics.Address = "nowhere" }, wantErr: "Address"},
		{
			name: "Metrics enabled without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
