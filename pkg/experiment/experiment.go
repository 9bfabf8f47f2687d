// Package experiment runs several scheduler variants over the same graph and
// collects their snapshot series into a report.
package experiment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/callback"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/config"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/constraint"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/dataset"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/frankwolfe"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/observability"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/scheduler"
)

// Baseline is an external method compared against the Frank-Wolfe variants.
// It must not modify g and must return Iterations+1 snapshots.
type Baseline interface {
	Name() string
	Run(g *graph.Graph, opts scheduler.Options) (*scheduler.Result, error)
}

// RunReport is the outcome of one variant
type RunReport struct {
	Variant     string              `json:"variant"`
	RunID       string              `json:"run_id"`
	DurationMS  int64               `json:"duration_ms"`
	Activations int                 `json:"activations"`
	Snapshots   []callback.Snapshot `json:"snapshots"`
}

// Final returns the last snapshot of the run
func (r RunReport) Final() callback.Snapshot {
	return r.Snapshots[len(r.Snapshots)-1]
}

// Report collects every run of an experiment in configuration order
type Report struct {
	Runs      []RunReport        `json:"runs"`
	TrueTheta *callback.Snapshot `json:"true_theta,omitempty"`
}

// Run returns the report of the named variant
func (r *Report) Run(variant string) (RunReport, bool) {
	for _, run := range r.Runs {
		if run.Variant == variant {
			return run, true
		}
	}
	return RunReport{}, false
}

// OptionsFromConfig converts the optimizer settings into scheduler options.
// Registry, logger and metrics are left for the caller.
func OptionsFromConfig(cfg *config.Config) (scheduler.Options, error) {
	set, err := constraint.New(constraint.Kind(cfg.Optimizer.Constraint), cfg.Optimizer.Radius)
	if err != nil {
		return scheduler.Options{}, fmt.Errorf("%w: %w", scheduler.ErrInvalidConfig, err)
	}
	rule, err := frankwolfe.NewStepRule(cfg.Optimizer.StepRule, cfg.Optimizer.LineSearchIterations)
	if err != nil {
		return scheduler.Options{}, fmt.Errorf("%w: %w", scheduler.ErrInvalidConfig, err)
	}
	loss, err := model.NewLoss(cfg.Optimizer.Loss)
	if err != nil {
		return scheduler.Options{}, fmt.Errorf("%w: %w", scheduler.ErrInvalidConfig, err)
	}

	return scheduler.Options{
		Dimension:  cfg.Experiment.Dimension,
		Iterations: cfg.Experiment.Iterations,
		Set:        set,
		StepRule:   rule,
		Loss:       loss,
		Degenerate: scheduler.DegeneratePolicy(cfg.Optimizer.Degenerate),
		Workers:    cfg.Optimizer.Workers,
		Async: scheduler.AsyncOptions{
			Policy:  scheduler.ActivationPolicy(cfg.Async.Policy),
			Seed:    cfg.Async.Seed,
			Cadence: scheduler.Cadence(cfg.Async.Cadence),
		},
	}, nil
}

// Runner drives an experiment
type Runner struct {
	config    *config.Config
	registry  *callback.Registry
	logger    *observability.Logger
	metrics   *observability.Metrics
	baselines []Baseline
}

// NewRunner creates a runner with the built-in metrics registered
func NewRunner(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) *Runner {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Runner{
		config:   cfg,
		registry: callback.NewDefaultRegistry(),
		logger:   logger,
		metrics:  metrics,
	}
}

// Registry returns the callback registry shared by every run; custom
// evaluators registered on it show up in every snapshot
func (r *Runner) Registry() *callback.Registry {
	return r.registry
}

// AddBaseline appends a baseline run after the configured variants
func (r *Runner) AddBaseline(b Baseline) {
	r.baselines = append(r.baselines, b)
}

// Generate builds the configured moons problem
func (r *Runner) Generate() (*graph.Graph, *dataset.Moons, error) {
	exp := r.config.Experiment
	opts := dataset.GraphOptions{Sigma: exp.Sigma, Threshold: exp.Threshold}

	var (
		g     *graph.Graph
		moons *dataset.Moons
	)
	err := r.logger.LogOperation("generate moons", func() error {
		var err error
		g, moons, err = dataset.Generate(exp.Clusters, exp.NodesPerCluster, exp.Dimension, exp.Seed, exp.NoiseRate, opts)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("Graph generated", map[string]interface{}{
		"nodes": g.Len(),
		"edges": g.EdgeCount(),
	})
	return g, moons, nil
}

type job struct {
	name string
	run  func(opts scheduler.Options) (*scheduler.Result, error)
}

// Run executes every configured variant and baseline on g. Each run works on
// its own copy of g. trueTheta, when non-nil, adds the snapshot of the oracle
// graph to the report.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, trueTheta [][]float64) (*Report, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", scheduler.ErrInvalidConfig, err)
	}
	opts, err := OptionsFromConfig(r.config)
	if err != nil {
		return nil, err
	}
	opts.Registry = r.registry
	opts.Logger = r.logger
	opts.Metrics = r.metrics

	mu := r.config.Optimizer.Mu
	var jobs []job
	for _, name := range r.config.Experiment.Variants {
		variant := scheduler.Variant(name)
		jobs = append(jobs, job{
			name: name,
			run: func(opts scheduler.Options) (*scheduler.Result, error) {
				return scheduler.RunVariant(g, variant, mu, opts)
			},
		})
	}
	for _, b := range r.baselines {
		jobs = append(jobs, job{
			name: b.Name(),
			run: func(opts scheduler.Options) (*scheduler.Result, error) {
				return b.Run(g.Clone(), opts)
			},
		})
	}

	runs := make([]RunReport, len(jobs))
	execute := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		j := jobs[i]
		return r.logger.LogOperation("run "+j.name, func() error {
			res, err := j.run(opts)
			if err != nil {
				return fmt.Errorf("%s: %w", j.name, err)
			}
			if want := opts.Iterations + 1; len(res.Snapshots) != want {
				return fmt.Errorf("%s: %d snapshots, expected %d", j.name, len(res.Snapshots), want)
			}
			runs[i] = RunReport{
				Variant:     j.name,
				RunID:       res.RunID,
				DurationMS:  res.Duration.Milliseconds(),
				Activations: res.Activations,
				Snapshots:   res.Snapshots,
			}
			return nil
		})
	}

	start := time.Now()
	if r.config.Experiment.Parallel {
		eg, egCtx := errgroup.WithContext(ctx)
		for i := range jobs {
			i := i
			eg.Go(func() error { return execute(egCtx, i) })
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range jobs {
			if err := execute(ctx, i); err != nil {
				return nil, err
			}
		}
	}

	report := &Report{Runs: runs}
	if trueTheta != nil {
		oracle, err := dataset.TrueThetaGraph(g, trueTheta)
		if err != nil {
			return nil, err
		}
		snap, err := r.registry.Snapshot(oracle)
		if err != nil {
			return nil, fmt.Errorf("%w: true theta: %w", scheduler.ErrCallback, err)
		}
		report.TrueTheta = &snap
	}

	r.logger.Info("Experiment finished", map[string]interface{}{
		"runs":        len(runs),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return report, nil
}
