// Package dataset generates the synthetic "moons" problem: every node owns a
// rotated two-moons dataset, and nodes with similar rotations are linked.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInvalidParams is returned for unusable generator arguments
var ErrInvalidParams = errors.New("dataset: invalid parameters")

// Models describes each node's ground-truth task
type Models struct {
	Angles   []float64   // rotation φ_i of node i's moons
	V        [][]float64 // (cos φ_i, sin φ_i)
	Clusters []int       // cluster of node i
}

// Len returns the number of nodes
func (m *Models) Len() int {
	return len(m.Angles)
}

// TrueTheta returns the unit-norm separating direction of every node in dim
// dimensions; only the first two coordinates are non-zero
func (m *Models) TrueTheta(dim int) [][]float64 {
	thetas := make([][]float64, len(m.Angles))
	for i, phi := range m.Angles {
		theta := make([]float64, dim)
		// the moons split along the rotated y axis
		theta[0], theta[1] = -math.Sin(phi), math.Cos(phi)
		thetas[i] = theta
	}
	return thetas
}

// GenerateModels draws nodesPerCluster rotation angles around each of
// clusters evenly spaced centers
func GenerateModels(clusters, nodesPerCluster int, seed int64) (*Models, error) {
	if clusters < 1 {
		return nil, fmt.Errorf("%w: clusters %d (must be > 0)", ErrInvalidParams, clusters)
	}
	if nodesPerCluster < 1 {
		return nil, fmt.Errorf("%w: nodes per cluster %d (must be > 0)", ErrInvalidParams, nodesPerCluster)
	}

	rng := rand.New(rand.NewSource(seed))
	n := clusters * nodesPerCluster
	m := &Models{
		Angles:   make([]float64, 0, n),
		V:        make([][]float64, 0, n),
		Clusters: make([]int, 0, n),
	}

	halfWidth := math.Pi / float64(2*clusters)
	for c := 0; c < clusters; c++ {
		center := 2 * math.Pi * float64(c) / float64(clusters)
		for k := 0; k < nodesPerCluster; k++ {
			phi := center + (2*rng.Float64()-1)*halfWidth
			m.Angles = append(m.Angles, phi)
			m.V = append(m.V, []float64{math.Cos(phi), math.Sin(phi)})
			m.Clusters = append(m.Clusters, c)
		}
	}
	return m, nil
}
