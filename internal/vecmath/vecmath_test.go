package vecmath

import (
	"math"
	"testing"
)

const epsilon = 1e-12

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name     string
		v        []float64
		expected bool
	}{
		{"empty", nil, true},
		{"finite", []float64{1, -2, 0}, true},
		{"nan", []float64{1, math.NaN()}, false},
		{"positive inf", []float64{math.Inf(1)}, false},
		{"negative inf", []float64{0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.v); got != tt.expected {
				t.Errorf("IsFinite(%v) = %v, expected %v", tt.v, got, tt.expected)
			}
		})
	}
}

func TestMean(t *testing.T) {
	vs := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	mean := Mean(vs, 2)
	if !almostEqual(mean[0], 3) || !almostEqual(mean[1], 4) {
		t.Errorf("Mean = %v, expected [3 4]", mean)
	}

	empty := Mean(nil, 3)
	if len(empty) != 3 || empty[0] != 0 {
		t.Errorf("Mean of no vectors should be the zero vector, got %v", empty)
	}
}

func TestInterpolate(t *testing.T) {
	a := []float64{0, 2}
	b := []float64{2, 0}

	mid := Interpolate(nil, a, b, 0.5)
	if !almostEqual(mid[0], 1) || !almostEqual(mid[1], 1) {
		t.Errorf("Interpolate at 0.5 = %v, expected [1 1]", mid)
	}

	// in-place
	Interpolate(a, a, b, 1)
	if a[0] != 2 || a[1] != 0 {
		t.Errorf("Interpolate in place at 1 = %v, expected %v", a, b)
	}
}

func TestSquaredDistance(t *testing.T) {
	if d := SquaredDistance([]float64{0, 0}, []float64{3, 4}); !almostEqual(d, 25) {
		t.Errorf("SquaredDistance = %v, expected 25", d)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on dimension mismatch")
		}
	}()
	SquaredDistance([]float64{1}, []float64{1, 2})
}

func TestCloneAll(t *testing.T) {
	src := [][]float64{{1, 2}, {3}}
	dst := CloneAll(src)
	dst[0][0] = 42
	if src[0][0] != 1 {
		t.Error("CloneAll must not share backing arrays")
	}
}
