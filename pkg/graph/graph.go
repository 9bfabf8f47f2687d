// Package graph models the communication network: nodes holding private data
// and a symmetric, non-negative similarity matrix linking them.
package graph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

// ErrEmptyGraph is returned when a graph has no nodes
var ErrEmptyGraph = errors.New("graph: no nodes")

// Graph is an ordered set of nodes plus their weight matrix.
// The weight matrix is read-only once the graph is built.
type Graph struct {
	nodes   []*Node
	weights *mat.SymDense
}

// New builds a graph from nodes and a dense weight matrix. The matrix must be
// square, symmetric, non-negative with a zero diagonal. Node IDs are set to
// their index and neighbor maps are rebuilt from the matrix.
func New(nodes []*Node, weights [][]float64) (*Graph, error) {
	n := len(nodes)
	if n == 0 {
		return nil, ErrEmptyGraph
	}
	if len(weights) != n {
		return nil, fmt.Errorf("weight matrix has %d rows, expected %d", len(weights), n)
	}

	data := make([]float64, n*n)
	for i, row := range weights {
		if len(row) != n {
			return nil, fmt.Errorf("weight matrix row %d has %d columns, expected %d", i, len(row), n)
		}
		for j, w := range row {
			if w != weights[j][i] {
				return nil, fmt.Errorf("weight matrix not symmetric at (%d,%d): %v != %v", i, j, w, weights[j][i])
			}
			data[i*n+j] = w
		}
	}

	return FromSymDense(nodes, mat.NewSymDense(n, data))
}

// FromSymDense builds a graph from a symmetric matrix; the matrix is copied
func FromSymDense(nodes []*Node, weights *mat.SymDense) (*Graph, error) {
	n := len(nodes)
	if n == 0 {
		return nil, ErrEmptyGraph
	}
	if weights == nil || weights.SymmetricDim() != n {
		return nil, fmt.Errorf("weight matrix dimension does not match %d nodes", n)
	}

	w := mat.NewSymDense(n, nil)
	w.CopySym(weights)

	for i := 0; i < n; i++ {
		if nodes[i] == nil {
			return nil, fmt.Errorf("node %d is nil", i)
		}
		if d := w.At(i, i); d != 0 {
			return nil, fmt.Errorf("weight matrix diagonal (%d,%d) = %v, expected 0", i, i, d)
		}
		for j := i + 1; j < n; j++ {
			v := w.At(i, j)
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("invalid weight at (%d,%d): %v (must be finite and >= 0)", i, j, v)
			}
		}
	}

	g := &Graph{nodes: nodes, weights: w}
	g.linkNeighbors()
	return g, nil
}

// linkNeighbors rebuilds every neighbor map from the weight matrix
func (g *Graph) linkNeighbors() {
	n := len(g.nodes)
	for i, node := range g.nodes {
		node.ID = i
		node.Neighbors = make(map[int]float64)
		for j := 0; j < n; j++ {
			if w := g.weights.At(i, j); w > 0 {
				node.Neighbors[j] = w
			}
		}
	}
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node at index i
func (g *Graph) Node(i int) *Node {
	return g.nodes[i]
}

// Nodes returns the node slice; callers must not reorder it
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Weight returns w[i][j]
func (g *Graph) Weight(i, j int) float64 {
	return g.weights.At(i, j)
}

// Weights returns a copy of the weight matrix
func (g *Graph) Weights() *mat.SymDense {
	w := mat.NewSymDense(g.Len(), nil)
	w.CopySym(g.weights)
	return w
}

// EdgeCount returns the number of undirected edges with positive weight
func (g *Graph) EdgeCount() int {
	count := 0
	for _, node := range g.nodes {
		count += len(node.Neighbors)
	}
	return count / 2
}

// Clone returns a deep copy sharing no mutable state with g
func (g *Graph) Clone() *Graph {
	nodes := make([]*Node, len(g.nodes))
	for i, node := range g.nodes {
		nodes[i] = node.Clone()
	}
	return &Graph{nodes: nodes, weights: g.Weights()}
}

// WithWeights returns a deep copy of g linked by a different weight matrix
func (g *Graph) WithWeights(weights [][]float64) (*Graph, error) {
	clone := g.Clone()
	return New(clone.nodes, weights)
}

// Validate checks the structural invariants: every neighbor entry matches a
// non-zero matrix entry and vice versa
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}
	n := len(g.nodes)
	for i, node := range g.nodes {
		if node.ID != i {
			return fmt.Errorf("node at index %d has ID %d", i, node.ID)
		}
		for j, w := range node.Neighbors {
			if j < 0 || j >= n {
				return fmt.Errorf("node %d references unknown neighbor %d", i, j)
			}
			if w <= 0 || g.weights.At(i, j) != w {
				return fmt.Errorf("node %d neighbor %d weight %v does not match matrix entry %v", i, j, w, g.weights.At(i, j))
			}
		}
		for j := 0; j < n; j++ {
			if g.weights.At(i, j) > 0 && !node.HasNeighbor(j) {
				return fmt.Errorf("matrix links %d and %d but node %d does not list it", i, j, i)
			}
		}
	}
	return nil
}

// Params returns a frozen copy of every node's parameter, indexed by node ID
func (g *Graph) Params() [][]float64 {
	params := make([][]float64, len(g.nodes))
	for i, node := range g.nodes {
		params[i] = vecmath.Clone(node.Theta)
	}
	return params
}

// SetAll copies theta into every node's parameter
func (g *Graph) SetAll(theta []float64) {
	for _, node := range g.nodes {
		node.Theta = vecmath.Clone(theta)
	}
}

// PooledTrain concatenates the training samples of every node
func (g *Graph) PooledTrain() model.Samples {
	sets := make([]model.Samples, len(g.nodes))
	for i, node := range g.nodes {
		sets[i] = node.Train
	}
	return model.Concat(sets...)
}

// PooledTest concatenates the test samples of every node
func (g *Graph) PooledTest() model.Samples {
	sets := make([]model.Samples, len(g.nodes))
	for i, node := range g.nodes {
		sets[i] = node.Test
	}
	return model.Concat(sets...)
}
