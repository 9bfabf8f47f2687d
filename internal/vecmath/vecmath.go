// Package vecmath holds small float64 vector helpers shared by the optimizer
// packages. Heavy lifting is delegated to gonum/floats.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Clone returns an independent copy of v
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// CloneAll deep-copies a slice of vectors
func CloneAll(vs [][]float64) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = Clone(v)
	}
	return out
}

// Zeros returns a zero vector of the given dimension
func Zeros(dim int) []float64 {
	return make([]float64, dim)
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// NormL2 computes the Euclidean norm of v
func NormL2(v []float64) float64 {
	return floats.Norm(v, 2)
}

// SquaredDistance returns ||a - b||²
func SquaredDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("vectors must have the same dimension")
	}
	d := floats.Distance(a, b, 2)
	return d * d
}

// Mean computes the component-wise mean of vs into a new vector.
// All vectors must share dimension dim.
func Mean(vs [][]float64, dim int) []float64 {
	mean := make([]float64, dim)
	if len(vs) == 0 {
		return mean
	}
	for _, v := range vs {
		floats.Add(mean, v)
	}
	floats.Scale(1/float64(len(vs)), mean)
	return mean
}

// Interpolate writes (1-gamma)*a + gamma*b into dst and returns it.
// dst may alias a.
func Interpolate(dst, a, b []float64, gamma float64) []float64 {
	if len(a) != len(b) {
		panic("vectors must have the same dimension")
	}
	if dst == nil {
		dst = make([]float64, len(a))
	}
	for i := range a {
		dst[i] = (1-gamma)*a[i] + gamma*b[i]
	}
	return dst
}
