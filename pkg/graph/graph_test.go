package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

func testNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = NewNode(0,
			model.Samples{X: [][]float64{{float64(i), 1}}, Y: []float64{1}},
			model.Samples{X: [][]float64{{1, float64(i)}}, Y: []float64{-1}},
		)
		nodes[i].Theta = []float64{0, 0}
	}
	return nodes
}

func triangle() [][]float64 {
	return [][]float64{
		{0, 1, 0.5},
		{1, 0, 0},
		{0.5, 0, 0},
	}
}

func TestNew(t *testing.T) {
	g, err := New(testNodes(3), triangle())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if g.Len() != 3 {
		t.Errorf("Expected 3 nodes, got %d", g.Len())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("Expected 2 edges, got %d", g.EdgeCount())
	}

	n0 := g.Node(0)
	if n0.ID != 0 || len(n0.Neighbors) != 2 {
		t.Errorf("Node 0 should have ID 0 and 2 neighbors, got ID %d, %d neighbors", n0.ID, len(n0.Neighbors))
	}
	if n0.Weight(2) != 0.5 {
		t.Errorf("Expected weight 0.5 to node 2, got %v", n0.Weight(2))
	}
	if g.Node(1).HasNeighbor(2) {
		t.Error("Nodes 1 and 2 should not be linked")
	}
	if got := n0.NeighborIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("NeighborIDs = %v, expected [1 2]", got)
	}
	if n0.Degree() != 1.5 {
		t.Errorf("Degree = %v, expected 1.5", n0.Degree())
	}

	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed on a fresh graph: %v", err)
	}
}

func TestNewRejectsInvalidMatrices(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		weights [][]float64
	}{
		{"wrong row count", 3, [][]float64{{0, 1}, {1, 0}}},
		{"ragged row", 2, [][]float64{{0, 1}, {1}}},
		{"asymmetric", 2, [][]float64{{0, 1}, {2, 0}}},
		{"non-zero diagonal", 2, [][]float64{{1, 0}, {0, 0}}},
		{"negative weight", 2, [][]float64{{0, -1}, {-1, 0}}},
		{"infinite weight", 2, [][]float64{{0, math.Inf(1)}, {math.Inf(1), 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(testNodes(tt.n), tt.weights); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := New(nil, nil); !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestClone(t *testing.T) {
	g, err := New(testNodes(3), triangle())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c := g.Clone()
	c.Node(0).Theta[0] = 42
	c.Node(0).Train.X[0][0] = 42
	c.Node(0).Neighbors[1] = 7

	if g.Node(0).Theta[0] != 0 {
		t.Error("Clone shares parameters with the original")
	}
	if g.Node(0).Train.X[0][0] != 0 {
		t.Error("Clone shares training data with the original")
	}
	if g.Node(0).Weight(1) != 1 {
		t.Error("Clone shares neighbor maps with the original")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("original graph corrupted: %v", err)
	}
	if err := c.Validate(); err == nil {
		t.Error("Validate should catch a neighbor weight that disagrees with the matrix")
	}
}

func TestWithWeights(t *testing.T) {
	g, err := New(testNodes(3), triangle())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	empty := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	z, err := g.WithWeights(empty)
	if err != nil {
		t.Fatalf("WithWeights failed: %v", err)
	}
	if z.EdgeCount() != 0 {
		t.Errorf("Expected no edges, got %d", z.EdgeCount())
	}
	if g.EdgeCount() != 2 {
		t.Error("WithWeights must not modify the original graph")
	}
}

func TestParamsAreFrozenCopies(t *testing.T) {
	g, err := New(testNodes(2), [][]float64{{0, 1}, {1, 0}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	params := g.Params()
	g.Node(1).Theta[1] = 3
	if params[1][1] != 0 {
		t.Error("Params must not alias node parameters")
	}

	g.SetAll([]float64{0.5, 0.5})
	g.Node(0).Theta[0] = 1
	if g.Node(1).Theta[0] != 0.5 {
		t.Error("SetAll must give each node its own copy")
	}
}

func TestPooled(t *testing.T) {
	g, err := New(testNodes(3), triangle())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if g.PooledTrain().Len() != 3 || g.PooledTest().Len() != 3 {
		t.Errorf("Expected 3 pooled samples, got train=%d test=%d", g.PooledTrain().Len(), g.PooledTest().Len())
	}
	if g.Node(0).Degenerate() {
		t.Error("Node with samples should not be degenerate")
	}
	if !NewNode(0, model.Samples{}, model.Samples{}).Degenerate() {
		t.Error("Node without training samples should be degenerate")
	}
}
