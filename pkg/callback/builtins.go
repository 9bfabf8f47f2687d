package callback

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

// Built-in metric names
const (
	MetricAccuracy = "accuracy"
	MetricLoss     = "loss"
	MetricVariance = "variance" // spread of per-node prediction accuracy
)

// ErrNoEvaluableNodes is returned when no node has samples for a metric
var ErrNoEvaluableNodes = errors.New("callback: no node has samples to evaluate")

// RegisterBuiltins registers accuracy, loss (logistic) and variance
func RegisterBuiltins(r *Registry) {
	r.MustRegister(MetricAccuracy, EvaluatorFunc(CentralAccuracy))
	r.MustRegister(MetricLoss, CentralLoss(model.Logistic{}))
	r.MustRegister(MetricVariance, EvaluatorFunc(AccuracyVariance))
}

// NodeAccuracies returns each node's accuracy on its own train and test
// samples; nodes with no samples in a split are left out of that split.
func NodeAccuracies(g *graph.Graph) (train, test []float64) {
	for _, node := range g.Nodes() {
		if acc, err := model.Accuracy(node.Theta, node.Train); err == nil {
			train = append(train, acc)
		}
		if acc, err := model.Accuracy(node.Theta, node.Test); err == nil {
			test = append(test, acc)
		}
	}
	return train, test
}

// CentralAccuracy averages per-node accuracy over the graph
func CentralAccuracy(g *graph.Graph) (float64, float64, error) {
	train, test := NodeAccuracies(g)
	if len(train) == 0 || len(test) == 0 {
		return 0, 0, fmt.Errorf("accuracy: %w", ErrNoEvaluableNodes)
	}
	return stat.Mean(train, nil), stat.Mean(test, nil), nil
}

// CentralLoss averages per-node loss of each node's own parameter
func CentralLoss(loss model.Loss) Evaluator {
	return EvaluatorFunc(func(g *graph.Graph) (float64, float64, error) {
		var train, test []float64
		for _, node := range g.Nodes() {
			if v, err := loss.Value(node.Theta, node.Train); err == nil {
				train = append(train, v)
			}
			if v, err := loss.Value(node.Theta, node.Test); err == nil {
				test = append(test, v)
			}
		}
		if len(train) == 0 || len(test) == 0 {
			return 0, 0, fmt.Errorf("loss: %w", ErrNoEvaluableNodes)
		}
		return stat.Mean(train, nil), stat.Mean(test, nil), nil
	})
}

// AccuracyVariance backs the "variance" built-in. Per-node prediction
// variance is measured as the population variance, across nodes, of each
// node's accuracy on its own split. It is 0 when every node predicts its data
// equally well and grows as personalized models diverge in quality.
func AccuracyVariance(g *graph.Graph) (float64, float64, error) {
	train, test := NodeAccuracies(g)
	if len(train) == 0 || len(test) == 0 {
		return 0, 0, fmt.Errorf("variance: %w", ErrNoEvaluableNodes)
	}
	return stat.PopVariance(train, nil), stat.PopVariance(test, nil), nil
}
