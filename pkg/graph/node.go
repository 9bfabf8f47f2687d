package graph

import (
	"sort"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

// Node is one agent: its private data, its personalized parameter and the
// similarity-weighted links to its neighbors.
//
// Theta is owned by the node: only the node's own update step writes it.
// Nodes carry no lock; the schedulers guarantee a single writer per node and
// hand readers frozen copies when a round needs isolation.
type Node struct {
	ID      int
	Cluster int
	Train   model.Samples
	Test    model.Samples

	// Theta is the personalized parameter (dimension D)
	Theta []float64

	// Neighbors maps neighbor ID to its non-negative similarity weight.
	// Derived from the graph's weight matrix.
	Neighbors map[int]float64

	// Steps counts the Frank-Wolfe steps this node has taken; it drives the
	// step-size schedule.
	Steps int

	// Gap is the duality gap of the node's last step
	Gap float64
}

// NewNode creates a node with the given data and no neighbors
func NewNode(cluster int, train, test model.Samples) *Node {
	return &Node{
		Cluster:   cluster,
		Train:     train,
		Test:      test,
		Neighbors: make(map[int]float64),
	}
}

// Weight returns the similarity weight to neighbor id, 0 when not linked
func (n *Node) Weight(id int) float64 {
	return n.Neighbors[id]
}

// HasNeighbor checks if id is linked to this node
func (n *Node) HasNeighbor(id int) bool {
	_, ok := n.Neighbors[id]
	return ok
}

// NeighborIDs returns the neighbor IDs in ascending order.
// The order is fixed so that floating-point sums over neighbors are reproducible.
func (n *Node) NeighborIDs() []int {
	ids := make([]int, 0, len(n.Neighbors))
	for id := range n.Neighbors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Degree returns the sum of the neighbor weights
func (n *Node) Degree() float64 {
	var sum float64
	for _, id := range n.NeighborIDs() {
		sum += n.Neighbors[id]
	}
	return sum
}

// Degenerate reports whether the node has no training samples, which leaves
// its local objective undefined
func (n *Node) Degenerate() bool {
	return n.Train.Len() == 0
}

// Clone deep-copies the node
func (n *Node) Clone() *Node {
	neighbors := make(map[int]float64, len(n.Neighbors))
	for id, w := range n.Neighbors {
		neighbors[id] = w
	}

	return &Node{
		ID:        n.ID,
		Cluster:   n.Cluster,
		Train:     n.Train.Clone(),
		Test:      n.Test.Clone(),
		Theta:     vecmath.Clone(n.Theta),
		Neighbors: neighbors,
		Steps:     n.Steps,
		Gap:       n.Gap,
	}
}
