package dataset

import (
	"errors"
	"math"
	"testing"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

func TestGenerateModels(t *testing.T) {
	m, err := GenerateModels(3, 4, 2017)
	if err != nil {
		t.Fatalf("GenerateModels failed: %v", err)
	}
	if m.Len() != 12 {
		t.Fatalf("Expected 12 models, got %d", m.Len())
	}

	for i, v := range m.V {
		if norm := math.Hypot(v[0], v[1]); math.Abs(norm-1) > 1e-12 {
			t.Errorf("V[%d] has norm %v, expected 1", i, norm)
		}
		if want := i / 4; m.Clusters[i] != want {
			t.Errorf("node %d in cluster %d, expected %d", i, m.Clusters[i], want)
		}
	}

	again, _ := GenerateModels(3, 4, 2017)
	for i := range m.Angles {
		if m.Angles[i] != again.Angles[i] {
			t.Fatalf("same seed produced different angle at %d", i)
		}
	}
}

func TestGenerateModelsInvalid(t *testing.T) {
	tests := []struct {
		name            string
		clusters, nodes int
	}{
		{"zero clusters", 0, 5},
		{"zero nodes", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateModels(tt.clusters, tt.nodes, 1); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestTrueThetaIsUnitNorm(t *testing.T) {
	m, _ := GenerateModels(1, 5, 3)
	for i, theta := range m.TrueTheta(6) {
		if len(theta) != 6 {
			t.Fatalf("theta %d has dimension %d", i, len(theta))
		}
		var sq float64
		for _, v := range theta {
			sq += v * v
		}
		if math.Abs(sq-1) > 1e-12 {
			t.Errorf("theta %d has squared norm %v", i, sq)
		}
	}
}

func TestGenerateMoons(t *testing.T) {
	models, _ := GenerateModels(1, 10, 2017)
	moons, err := GenerateMoons(models, 5, 2017, 0)
	if err != nil {
		t.Fatalf("GenerateMoons failed: %v", err)
	}

	for i := range models.Angles {
		train, test := moons.Train[i], moons.Test[i]
		if n := train.Len(); n < MinTrainSamples || n > MaxTrainSamples {
			t.Errorf("node %d has %d training samples", i, n)
		}
		if test.Len() != TestSamples {
			t.Errorf("node %d has %d test samples", i, test.Len())
		}
		if err := train.Validate(5); err != nil {
			t.Errorf("node %d train: %v", i, err)
		}
		if err := test.Validate(5); err != nil {
			t.Errorf("node %d test: %v", i, err)
		}
	}

	// the true direction separates the noiseless moons well
	var correct, total float64
	for i, theta := range moons.TrueTheta {
		acc, err := model.Accuracy(theta, moons.Test[i])
		if err != nil {
			t.Fatal(err)
		}
		correct += acc * float64(moons.Test[i].Len())
		total += float64(moons.Test[i].Len())
	}
	if acc := correct / total; acc < 0.75 {
		t.Errorf("true-theta accuracy %v, expected >= 0.75", acc)
	}

	pooled := moons.PooledTest()
	if pooled.Len() != 10*TestSamples {
		t.Errorf("pooled test has %d samples", pooled.Len())
	}
}

func TestGenerateMoonsNoiseFlipsLabels(t *testing.T) {
	models, _ := GenerateModels(1, 5, 9)
	clean, _ := GenerateMoons(models, 3, 9, 0)
	noisy, _ := GenerateMoons(models, 3, 9, 0.5)

	accuracy := func(m *Moons) float64 {
		var sum float64
		for i, theta := range m.TrueTheta {
			acc, _ := model.Accuracy(theta, m.Test[i])
			sum += acc
		}
		return sum / float64(len(m.TrueTheta))
	}
	if accuracy(noisy) >= accuracy(clean) {
		t.Errorf("label noise did not lower accuracy: clean %v noisy %v", accuracy(clean), accuracy(noisy))
	}
}

func TestGenerateMoonsInvalid(t *testing.T) {
	models, _ := GenerateModels(1, 2, 1)
	tests := []struct {
		name  string
		dim   int
		noise float64
	}{
		{"dimension one", 1, 0},
		{"negative noise", 4, -0.1},
		{"noise one", 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateMoons(models, tt.dim, 1, tt.noise); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestSyntheticGraph(t *testing.T) {
	models := &Models{
		Angles:   []float64{0, 0.1, math.Pi},
		V:        [][]float64{{1, 0}, {math.Cos(0.1), math.Sin(0.1)}, {-1, 0}},
		Clusters: []int{0, 0, 1},
	}
	moons, err := GenerateMoons(models, 3, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	g, err := SyntheticGraph(moons, models, DefaultGraphOptions())
	if err != nil {
		t.Fatalf("SyntheticGraph failed: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("Expected 3 nodes, got %d", g.Len())
	}

	want := math.Exp((math.Cos(0.1) - 1) / 0.1)
	if got := g.Weight(0, 1); math.Abs(got-want) > 1e-12 {
		t.Errorf("Weight(0,1) = %v, expected %v", got, want)
	}
	if g.Weight(1, 0) != g.Weight(0, 1) {
		t.Error("weights are not symmetric")
	}
	// opposite angles: exp(-20) is below the threshold
	if g.Weight(0, 2) != 0 || g.Node(2).Degree() != 0 {
		t.Errorf("opposite nodes should not be linked, weight %v", g.Weight(0, 2))
	}
	if g.Node(2).Cluster != 1 {
		t.Errorf("node 2 in cluster %d", g.Node(2).Cluster)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("generated graph is invalid: %v", err)
	}
}

func TestTrueThetaGraph(t *testing.T) {
	g, moons, err := Generate(1, 4, 3, 5, 0, DefaultGraphOptions())
	if err != nil {
		t.Fatal(err)
	}

	oracle, err := TrueThetaGraph(g, moons.TrueTheta)
	if err != nil {
		t.Fatalf("TrueThetaGraph failed: %v", err)
	}
	for i, node := range oracle.Nodes() {
		for d := range node.Theta {
			if node.Theta[d] != moons.TrueTheta[i][d] {
				t.Fatalf("node %d theta %v, expected %v", i, node.Theta, moons.TrueTheta[i])
			}
		}
		if g.Node(i).Theta != nil {
			t.Errorf("source graph node %d was modified", i)
		}
	}

	if _, err := TrueThetaGraph(g, moons.TrueTheta[:2]); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams, got %v", err)
	}
}
