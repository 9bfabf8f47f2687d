package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/callback"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/config"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/experiment"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/observability"
)

type runFlags struct {
	configFile  string
	clusters    int
	nodes       int
	dimension   int
	iterations  int
	seed        int64
	mu          float64
	workers     int
	variants    []string
	sequential  bool
	output      string
	metric      string
	metricsAddr string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fwsim",
		Short: "Simulate personalized Frank-Wolfe learning over a network of agents",
		Long: `fwsim generates a synthetic moons problem, runs the centralized, local,
regularized, asynchronous and global-mean Frank-Wolfe variants over it and
reports the metric series of every run.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fwsim v%s (commit: %s)\n", version, commit)
		},
	}
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured experiment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f.configFile)
			if err != nil {
				return err
			}
			applyOverrides(cmd, f, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runExperiment(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, f.output, f.metric)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "path to YAML configuration file (optional)")
	fs.IntVar(&f.clusters, "clusters", 0, "number of task clusters")
	fs.IntVar(&f.nodes, "nodes", 0, "nodes per cluster")
	fs.IntVar(&f.dimension, "dimension", 0, "parameter dimension")
	fs.IntVarP(&f.iterations, "iterations", "k", 0, "recorded steps per run")
	fs.Int64Var(&f.seed, "seed", 0, "data, graph and activation seed")
	fs.Float64Var(&f.mu, "mu", 0, "regularization strength")
	fs.IntVar(&f.workers, "workers", 0, "compute-phase workers per synchronous round")
	fs.StringSliceVar(&f.variants, "variants", nil, "variants to run (comma separated)")
	fs.BoolVar(&f.sequential, "sequential", false, "run variants one after another")
	fs.StringVarP(&f.output, "output", "o", "table", "output format: table, json or csv")
	fs.StringVar(&f.metric, "metric", callback.MetricAccuracy, "metric shown by the table output")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	return cmd
}

func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.LoadFromEnv(), nil
}

// applyOverrides copies every flag set on the command line into cfg
func applyOverrides(cmd *cobra.Command, f *runFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("clusters") {
		cfg.Experiment.Clusters = f.clusters
	}
	if changed("nodes") {
		cfg.Experiment.NodesPerCluster = f.nodes
	}
	if changed("dimension") {
		cfg.Experiment.Dimension = f.dimension
	}
	if changed("iterations") {
		cfg.Experiment.Iterations = f.iterations
	}
	if changed("seed") {
		cfg.Experiment.Seed = f.seed
		cfg.Async.Seed = f.seed
	}
	if changed("mu") {
		cfg.Optimizer.Mu = f.mu
	}
	if changed("workers") {
		cfg.Optimizer.Workers = f.workers
	}
	if changed("variants") {
		cfg.Experiment.Variants = f.variants
	}
	if f.sequential {
		cfg.Experiment.Parallel = false
	}
	if changed("metrics-addr") {
		cfg.Metrics.Enabled = f.metricsAddr != ""
		cfg.Metrics.Address = f.metricsAddr
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
}

func runExperiment(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, output, metric string) error {
	switch output {
	case "table", "json", "csv":
	default:
		return fmt.Errorf("unknown output format: %q", output)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Logging.Level), stderr)
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	if cfg.Metrics.Enabled {
		stopServer := serveMetrics(cfg.Metrics.Address, reg, logger)
		defer stopServer()
	}

	runner := experiment.NewRunner(cfg, logger, metrics)
	g, moons, err := runner.Generate()
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, g, moons.TrueTheta)
	if err != nil {
		return err
	}

	switch output {
	case "json":
		return experiment.WriteJSON(stdout, report)
	case "csv":
		return experiment.WriteCSV(stdout, report)
	default:
		return experiment.WriteTable(stdout, report, metric)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *observability.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server shutdown: %v\n", err)
		}
	}
}
