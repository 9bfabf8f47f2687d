package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds the whole simulation configuration
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Async      AsyncConfig      `yaml:"async"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExperimentConfig describes the generated problem and the runs over it
type ExperimentConfig struct {
	Clusters        int      `yaml:"clusters" validate:"min=1"`          // number of task clusters (default: 1)
	NodesPerCluster int      `yaml:"nodes_per_cluster" validate:"min=1"` // nodes per cluster (default: 100)
	Dimension       int      `yaml:"dimension" validate:"min=2"`         // parameter dimension D (default: 20)
	NoiseRate       float64  `yaml:"noise_rate" validate:"gte=0,lt=1"`   // label flip probability (default: 0.05)
	Seed            int64    `yaml:"seed"`                               // data and graph seed (default: 2017)
	Iterations      int      `yaml:"iterations" validate:"min=1"`        // recorded steps per run (default: 500)
	Sigma           float64  `yaml:"sigma" validate:"gt=0"`              // similarity bandwidth (default: 0.1)
	Threshold       float64  `yaml:"threshold" validate:"gte=0"`         // similarity cut-off (default: 1e-3)
	Variants        []string `yaml:"variants" validate:"min=1,dive,oneof=centralized local regularized async-regularized global-regularized"`
	Parallel        bool     `yaml:"parallel"` // run variants concurrently
}

// OptimizerConfig holds the Frank-Wolfe settings shared by every variant
type OptimizerConfig struct {
	Mu                   float64 `yaml:"mu" validate:"gte=0"`                                // regularization strength (default: 1)
	Constraint           string  `yaml:"constraint" validate:"oneof=l2 l1 linf"`             // feasible set (default: l2)
	Radius               float64 `yaml:"radius" validate:"gt=0"`                             // feasible set radius (default: 1)
	StepRule             string  `yaml:"step_rule" validate:"oneof=diminishing line-search"` // default: diminishing
	LineSearchIterations int     `yaml:"line_search_iterations" validate:"min=1"`            // default: 40
	Loss                 string  `yaml:"loss" validate:"oneof=logistic squared-hinge"`       // default: logistic
	Workers              int     `yaml:"workers" validate:"min=1"`                           // compute-phase workers (default: 1)
	Degenerate           string  `yaml:"degenerate" validate:"oneof=abort skip"`             // default: abort
}

// AsyncConfig holds the asynchronous variant's ordering
type AsyncConfig struct {
	Policy  string `yaml:"policy" validate:"oneof=round-robin permutation uniform"` // default: permutation
	Seed    int64  `yaml:"seed"`                                                    // default: 2017
	Cadence string `yaml:"cadence" validate:"oneof=activation epoch"`               // default: activation
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"omitempty,hostname_port"` // e.g. ":9090"
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"` // default: info
}

// Default returns the configuration of the reference moons experiment
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Clusters:        1,
			NodesPerCluster: 100,
			Dimension:       20,
			NoiseRate:       0.05,
			Seed:            2017,
			Iterations:      500,
			Sigma:           0.1,
			Threshold:       1e-3,
			Variants: []string{
				"centralized",
				"regularized",
				"async-regularized",
				"local",
				"global-regularized",
			},
			Parallel: true,
		},
		Optimizer: OptimizerConfig{
			Mu:                   1,
			Constraint:           "l2",
			Radius:               1,
			StepRule:             "diminishing",
			LineSearchIterations: 40,
			Loss:                 "logistic",
			Workers:              1,
			Degenerate:           "abort",
		},
		Async: AsyncConfig{
			Policy:  "permutation",
			Seed:    2017,
			Cadence: "activation",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile reads a YAML file over the defaults and then applies
// environment overrides
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	// Experiment configuration
	setInt(&cfg.Experiment.Clusters, "FWNET_CLUSTERS")
	setInt(&cfg.Experiment.NodesPerCluster, "FWNET_NODES_PER_CLUSTER")
	setInt(&cfg.Experiment.Dimension, "FWNET_DIMENSION")
	setFloat(&cfg.Experiment.NoiseRate, "FWNET_NOISE_RATE")
	setInt64(&cfg.Experiment.Seed, "FWNET_SEED")
	setInt(&cfg.Experiment.Iterations, "FWNET_ITERATIONS")
	if variants := os.Getenv("FWNET_VARIANTS"); variants != "" {
		cfg.Experiment.Variants = splitList(variants)
	}
	if parallel := os.Getenv("FWNET_PARALLEL"); parallel == "false" {
		cfg.Experiment.Parallel = false
	}

	// Optimizer configuration
	setFloat(&cfg.Optimizer.Mu, "FWNET_MU")
	setString(&cfg.Optimizer.Constraint, "FWNET_CONSTRAINT")
	setFloat(&cfg.Optimizer.Radius, "FWNET_RADIUS")
	setString(&cfg.Optimizer.StepRule, "FWNET_STEP_RULE")
	setString(&cfg.Optimizer.Loss, "FWNET_LOSS")
	setInt(&cfg.Optimizer.Workers, "FWNET_WORKERS")
	setString(&cfg.Optimizer.Degenerate, "FWNET_DEGENERATE")

	// Async configuration
	setString(&cfg.Async.Policy, "FWNET_ASYNC_POLICY")
	setInt64(&cfg.Async.Seed, "FWNET_ASYNC_SEED")
	setString(&cfg.Async.Cadence, "FWNET_ASYNC_CADENCE")

	// Metrics and logging
	if enabled := os.Getenv("FWNET_METRICS_ENABLED"); enabled == "true" {
		cfg.Metrics.Enabled = true
	}
	setString(&cfg.Metrics.Address, "FWNET_METRICS_ADDR")
	setString(&cfg.Logging.Level, "FWNET_LOG_LEVEL")
}

// Invalid numbers leave the current value in place
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics enabled but no address specified")
	}

	seen := make(map[string]bool, len(c.Experiment.Variants))
	for _, v := range c.Experiment.Variants {
		if seen[v] {
			return fmt.Errorf("duplicate variant: %s", v)
		}
		seen[v] = true
	}
	return nil
}

// Nodes returns the total number of nodes
func (c *ExperimentConfig) Nodes() int {
	return c.Clusters * c.NodesPerCluster
}

func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", field, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be > %s, got %v", field, e.Param(), e.Value())
	case "lt":
		return fmt.Sprintf("%s must be < %s, got %v", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, e.Param(), e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, e.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
