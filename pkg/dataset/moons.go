package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

// Sample counts and noise of the generated moons
const (
	MinTrainSamples = 3
	MaxTrainSamples = 20
	TestSamples     = 100

	// standard deviation of the gaussian jitter on the two moon coordinates
	moonJitter = 0.1
)

// Moons holds every node's samples plus the pooled arrays
type Moons struct {
	Dim       int
	Train     []model.Samples // per node
	Test      []model.Samples // per node
	TrueTheta [][]float64
}

// PooledTrain concatenates the training samples of every node
func (m *Moons) PooledTrain() model.Samples {
	return model.Concat(m.Train...)
}

// PooledTest concatenates the test samples of every node
func (m *Moons) PooledTest() model.Samples {
	return model.Concat(m.Test...)
}

// GenerateMoons samples a rotated two-moons dataset per node. The first two
// coordinates carry the moons rotated by the node's angle, the remaining
// dim-2 coordinates are standard gaussian noise. Each label is flipped with
// probability noiseRate.
func GenerateMoons(models *Models, dim int, seed int64, noiseRate float64) (*Moons, error) {
	if models == nil || models.Len() == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidParams)
	}
	if dim < 2 {
		return nil, fmt.Errorf("%w: dimension %d (must be >= 2)", ErrInvalidParams, dim)
	}
	if noiseRate < 0 || noiseRate >= 1 || math.IsNaN(noiseRate) {
		return nil, fmt.Errorf("%w: noise rate %v (must be in [0, 1))", ErrInvalidParams, noiseRate)
	}

	rng := rand.New(rand.NewSource(seed))
	n := models.Len()
	moons := &Moons{
		Dim:       dim,
		Train:     make([]model.Samples, n),
		Test:      make([]model.Samples, n),
		TrueTheta: models.TrueTheta(dim),
	}

	for i, phi := range models.Angles {
		m := MinTrainSamples + rng.Intn(MaxTrainSamples-MinTrainSamples+1)
		moons.Train[i] = sampleMoons(rng, m, dim, phi, noiseRate)
		moons.Test[i] = sampleMoons(rng, TestSamples, dim, phi, noiseRate)
	}
	return moons, nil
}

func sampleMoons(rng *rand.Rand, n, dim int, phi, noiseRate float64) model.Samples {
	s := model.Samples{
		X: make([][]float64, n),
		Y: make([]float64, n),
	}
	sin, cos := math.Sincos(phi)
	for k := 0; k < n; k++ {
		t := math.Pi * rng.Float64()
		var x, y, label float64
		if rng.Intn(2) == 0 {
			// outer moon
			x, y, label = math.Cos(t), math.Sin(t), 1
		} else {
			// inner moon
			x, y, label = 1-math.Cos(t), 0.5-math.Sin(t), -1
		}
		// center both moons on the origin
		x += rng.NormFloat64()*moonJitter - 0.5
		y += rng.NormFloat64()*moonJitter - 0.25

		row := make([]float64, dim)
		row[0] = cos*x - sin*y
		row[1] = sin*x + cos*y
		for d := 2; d < dim; d++ {
			row[d] = rng.NormFloat64()
		}
		if rng.Float64() < noiseRate {
			label = -label
		}
		s.X[k] = row
		s.Y[k] = label
	}
	return s
}
