package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the optimization engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Progress metrics
	RoundsTotal      *prometheus.CounterVec
	ActivationsTotal *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	DegenerateSkips  *prometheus.CounterVec

	// Convergence metrics
	DualityGap  *prometheus.GaugeVec
	MetricValue *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwnet_runs_total",
				Help: "Total number of scheduler runs by variant and final state",
			},
			[]string{"variant", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fwnet_run_duration_seconds",
				Help:    "Wall-clock duration of a scheduler run in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"variant"},
		),
		RoundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwnet_rounds_total",
				Help: "Total number of recorded update steps (rounds, activations or epochs)",
			},
			[]string{"variant"},
		),
		ActivationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwnet_node_activations_total",
				Help: "Total number of per-node Frank-Wolfe steps",
			},
			[]string{"variant"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fwnet_step_duration_seconds",
				Help:    "Duration of one scheduler update step in seconds",
				Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"variant"},
		),
		DegenerateSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwnet_degenerate_skips_total",
				Help: "Node updates skipped because the node was degenerate",
			},
			[]string{"variant"},
		),
		DualityGap: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwnet_duality_gap",
				Help: "Mean Frank-Wolfe duality gap over nodes after the last step",
			},
			[]string{"variant"},
		),
		MetricValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwnet_metric_value",
				Help: "Last recorded snapshot value by variant, metric and split",
			},
			[]string{"variant", "metric", "split"},
		),
	}
}

// RecordRun records a finished run with its final state
func (m *Metrics) RecordRun(variant, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(variant, status).Inc()
	m.RunDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordStep records one scheduler step and the node updates it performed
func (m *Metrics) RecordStep(variant string, activations int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RoundsTotal.WithLabelValues(variant).Inc()
	m.ActivationsTotal.WithLabelValues(variant).Add(float64(activations))
	m.StepDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordDegenerateSkip records a node update held back by the skip policy
func (m *Metrics) RecordDegenerateSkip(variant string) {
	if m == nil {
		return
	}
	m.DegenerateSkips.WithLabelValues(variant).Inc()
}

// UpdateGap sets the mean duality gap
func (m *Metrics) UpdateGap(variant string, gap float64) {
	if m == nil {
		return
	}
	m.DualityGap.WithLabelValues(variant).Set(gap)
}

// UpdateMetricValue sets the last train and test value of a snapshot metric
func (m *Metrics) UpdateMetricValue(variant, metric string, train, test float64) {
	if m == nil {
		return
	}
	m.MetricValue.WithLabelValues(variant, metric, "train").Set(train)
	m.MetricValue.WithLabelValues(variant, metric, "test").Set(test)
}
