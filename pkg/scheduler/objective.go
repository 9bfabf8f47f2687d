package scheduler

import (
	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

// paramView returns the parameter of node j as the objective should see it:
// a frozen copy for synchronous rounds, the live value for activations
type paramView func(j int) []float64

type localObjective struct {
	loss model.Loss
	data model.Samples
}

func (o localObjective) Value(theta []float64) (float64, error) {
	return o.loss.Value(theta, o.data)
}

func (o localObjective) Gradient(theta, grad []float64) error {
	return o.loss.Gradient(theta, o.data, grad)
}

// neighborObjective adds (mu/2) Σ_j w_ij ||θ - θ_j||²
type neighborObjective struct {
	localObjective
	mu        float64
	neighbors []int
	weights   []float64
	params    paramView
}

func newNeighborObjective(local localObjective, mu float64, node *graph.Node, params paramView) neighborObjective {
	ids := node.NeighborIDs()
	weights := make([]float64, len(ids))
	for k, id := range ids {
		weights[k] = node.Neighbors[id]
	}
	return neighborObjective{
		localObjective: local,
		mu:             mu,
		neighbors:      ids,
		weights:        weights,
		params:         params,
	}
}

func (o neighborObjective) Value(theta []float64) (float64, error) {
	v, err := o.localObjective.Value(theta)
	if err != nil {
		return 0, err
	}
	var reg float64
	for k, j := range o.neighbors {
		reg += o.weights[k] * vecmath.SquaredDistance(theta, o.params(j))
	}
	return v + o.mu/2*reg, nil
}

func (o neighborObjective) Gradient(theta, grad []float64) error {
	if err := o.localObjective.Gradient(theta, grad); err != nil {
		return err
	}
	for k, j := range o.neighbors {
		c := o.mu * o.weights[k]
		other := o.params(j)
		for d := range grad {
			grad[d] += c * (theta[d] - other[d])
		}
	}
	return nil
}

// meanObjective adds (mu/2) ||θ - θ̄||² for a fixed mean θ̄
type meanObjective struct {
	localObjective
	mu   float64
	mean []float64
}

func (o meanObjective) Value(theta []float64) (float64, error) {
	v, err := o.localObjective.Value(theta)
	if err != nil {
		return 0, err
	}
	return v + o.mu/2*vecmath.SquaredDistance(theta, o.mean), nil
}

func (o meanObjective) Gradient(theta, grad []float64) error {
	if err := o.localObjective.Gradient(theta, grad); err != nil {
		return err
	}
	for d := range grad {
		grad[d] += o.mu * (theta[d] - o.mean[d])
	}
	return nil
}
