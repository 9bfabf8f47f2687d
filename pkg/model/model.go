// Package model holds labeled samples and the linear classification losses
// each node minimizes.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
)

// ErrNoSamples is returned when a loss is evaluated on an empty sample set;
// the objective is undefined there.
var ErrNoSamples = errors.New("model: no samples")

// Samples is a labeled dataset; labels are -1 or +1
type Samples struct {
	X [][]float64 `json:"x"`
	Y []float64   `json:"y"`
}

// Len returns the number of samples
func (s Samples) Len() int {
	return len(s.Y)
}

// Dim returns the feature dimension, 0 when empty
func (s Samples) Dim() int {
	if len(s.X) == 0 {
		return 0
	}
	return len(s.X[0])
}

// Validate checks that every row has dimension dim and finite features, and
// that every label is ±1
func (s Samples) Validate(dim int) error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("%d feature rows but %d labels", len(s.X), len(s.Y))
	}
	for i, x := range s.X {
		if len(x) != dim {
			return fmt.Errorf("sample %d has dimension %d, expected %d", i, len(x), dim)
		}
		if !vecmath.IsFinite(x) {
			return fmt.Errorf("sample %d has a non-finite feature", i)
		}
		if s.Y[i] != 1 && s.Y[i] != -1 {
			return fmt.Errorf("sample %d has label %v, expected -1 or +1", i, s.Y[i])
		}
	}
	return nil
}

// Clone deep-copies the samples
func (s Samples) Clone() Samples {
	out := Samples{
		X: make([][]float64, len(s.X)),
		Y: make([]float64, len(s.Y)),
	}
	for i, x := range s.X {
		out.X[i] = make([]float64, len(x))
		copy(out.X[i], x)
	}
	copy(out.Y, s.Y)
	return out
}

// Concat pools several sample sets into one, preserving order
func Concat(sets ...Samples) Samples {
	var out Samples
	for _, s := range sets {
		out.X = append(out.X, s.X...)
		out.Y = append(out.Y, s.Y...)
	}
	return out
}

// Loss is a smooth margin loss averaged over samples
type Loss interface {
	// Value returns the mean loss of theta on s.
	Value(theta []float64, s Samples) (float64, error)

	// Gradient writes the gradient of Value at theta into grad.
	Gradient(theta []float64, s Samples, grad []float64) error

	Name() string
}

// NewLoss returns the loss registered under name
func NewLoss(name string) (Loss, error) {
	switch strings.ToLower(name) {
	case "logistic", "":
		return Logistic{}, nil
	case "squared-hinge", "squared_hinge":
		return SquaredHinge{}, nil
	default:
		return nil, fmt.Errorf("unknown loss: %q", name)
	}
}

// Logistic is log(1 + exp(-y <x, theta>))
type Logistic struct{}

func (Logistic) Name() string { return "logistic" }

func (Logistic) Value(theta []float64, s Samples) (float64, error) {
	if s.Len() == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for i, x := range s.X {
		sum += softplus(-s.Y[i] * floats.Dot(x, theta))
	}
	return sum / float64(s.Len()), nil
}

func (Logistic) Gradient(theta []float64, s Samples, grad []float64) error {
	if s.Len() == 0 {
		return ErrNoSamples
	}
	zero(grad)
	n := float64(s.Len())
	for i, x := range s.X {
		margin := s.Y[i] * floats.Dot(x, theta)
		floats.AddScaled(grad, -s.Y[i]*sigmoid(-margin)/n, x)
	}
	return nil
}

// SquaredHinge is max(0, 1 - y <x, theta>)²
type SquaredHinge struct{}

func (SquaredHinge) Name() string { return "squared-hinge" }

func (SquaredHinge) Value(theta []float64, s Samples) (float64, error) {
	if s.Len() == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for i, x := range s.X {
		if h := 1 - s.Y[i]*floats.Dot(x, theta); h > 0 {
			sum += h * h
		}
	}
	return sum / float64(s.Len()), nil
}

func (SquaredHinge) Gradient(theta []float64, s Samples, grad []float64) error {
	if s.Len() == 0 {
		return ErrNoSamples
	}
	zero(grad)
	n := float64(s.Len())
	for i, x := range s.X {
		if h := 1 - s.Y[i]*floats.Dot(x, theta); h > 0 {
			floats.AddScaled(grad, -2*h*s.Y[i]/n, x)
		}
	}
	return nil
}

// Predict returns +1 when <x, theta> > 0 and -1 otherwise
func Predict(theta, x []float64) float64 {
	if floats.Dot(x, theta) > 0 {
		return 1
	}
	return -1
}

// Accuracy returns the fraction of samples theta labels correctly
func Accuracy(theta []float64, s Samples) (float64, error) {
	if s.Len() == 0 {
		return 0, ErrNoSamples
	}
	correct := 0
	for i, x := range s.X {
		if Predict(theta, x) == s.Y[i] {
			correct++
		}
	}
	return float64(correct) / float64(s.Len()), nil
}

// numerically stable log(1 + e^z)
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
