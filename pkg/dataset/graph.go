package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
)

// GraphOptions controls how node similarities become edges
type GraphOptions struct {
	Sigma     float64 // bandwidth of the angular similarity (default 0.1)
	Threshold float64 // similarities below it are dropped (default 1e-3)
}

// DefaultGraphOptions returns the options used by the moons experiment
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{Sigma: 0.1, Threshold: 1e-3}
}

// Similarities returns exp((cos(φ_i - φ_j) - 1) / sigma) for every pair,
// with a zero diagonal
func Similarities(models *Models, sigma float64) *mat.SymDense {
	n := models.Len()
	sim := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim.SetSym(i, j, math.Exp((math.Cos(models.Angles[i]-models.Angles[j])-1)/sigma))
		}
	}
	return sim
}

// SyntheticGraph links the nodes of moons by thresholded similarity of their
// true models
func SyntheticGraph(moons *Moons, models *Models, opts GraphOptions) (*graph.Graph, error) {
	if moons == nil || models == nil {
		return nil, fmt.Errorf("%w: nil moons or models", ErrInvalidParams)
	}
	if len(moons.Train) != models.Len() {
		return nil, fmt.Errorf("%w: %d datasets for %d models", ErrInvalidParams, len(moons.Train), models.Len())
	}
	if opts.Sigma == 0 {
		opts.Sigma = DefaultGraphOptions().Sigma
	}
	if opts.Sigma < 0 || opts.Threshold < 0 {
		return nil, fmt.Errorf("%w: sigma %v threshold %v", ErrInvalidParams, opts.Sigma, opts.Threshold)
	}

	n := models.Len()
	weights := Similarities(models, opts.Sigma)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if weights.At(i, j) < opts.Threshold {
				weights.SetSym(i, j, 0)
			}
		}
	}

	nodes := make([]*graph.Node, n)
	for i := range nodes {
		nodes[i] = graph.NewNode(models.Clusters[i], moons.Train[i], moons.Test[i])
	}
	return graph.FromSymDense(nodes, weights)
}

// TrueThetaGraph returns a copy of g whose nodes hold their true parameters,
// the reference every learned model is compared against
func TrueThetaGraph(g *graph.Graph, trueTheta [][]float64) (*graph.Graph, error) {
	if len(trueTheta) != g.Len() {
		return nil, fmt.Errorf("%w: %d true parameters for %d nodes", ErrInvalidParams, len(trueTheta), g.Len())
	}
	out := g.Clone()
	for i, node := range out.Nodes() {
		if dim := node.Train.Dim(); node.Train.Len() > 0 && dim != len(trueTheta[i]) {
			return nil, fmt.Errorf("%w: node %d has dimension %d, true parameter %d", ErrInvalidParams, i, dim, len(trueTheta[i]))
		}
		node.Theta = append([]float64(nil), trueTheta[i]...)
	}
	return out, nil
}

// Generate builds the whole moons problem: models, data and graph
func Generate(clusters, nodesPerCluster, dim int, seed int64, noiseRate float64, opts GraphOptions) (*graph.Graph, *Moons, error) {
	models, err := GenerateModels(clusters, nodesPerCluster, seed)
	if err != nil {
		return nil, nil, err
	}
	moons, err := GenerateMoons(models, dim, seed, noiseRate)
	if err != nil {
		return nil, nil, err
	}
	g, err := SyntheticGraph(moons, models, opts)
	if err != nil {
		return nil, nil, err
	}
	return g, moons, nil
}
