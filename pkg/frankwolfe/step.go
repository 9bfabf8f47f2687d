// Package frankwolfe implements the conditional-gradient update.
//
// A step computes g = ∇f(θ), asks the constraint set for the vertex
// s = argmin_{v} <g, v>, and moves θ toward s by γ_t. The result is a convex
// combination of feasible points, so it is always feasible and no projection
// is ever needed.
package frankwolfe

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/constraint"
)

// ErrNonFinite is returned when a gradient or updated parameter contains NaN or Inf
var ErrNonFinite = errors.New("frankwolfe: non-finite value")

// Objective is a differentiable function of the parameter vector
type Objective interface {
	Value(theta []float64) (float64, error)
	Gradient(theta, grad []float64) error
}

// Result is the outcome of a single step
type Result struct {
	Theta      []float64 // updated parameter (freshly allocated)
	Gamma      float64   // step size used
	Gap        float64   // duality gap <g, θ - s>
	Stationary bool      // gradient vanished, θ returned unchanged
}

// Step performs one Frank-Wolfe update at iteration t. theta is never mutated.
func Step(theta []float64, obj Objective, set constraint.Set, rule StepRule, t int) (Result, error) {
	dim := len(theta)
	grad := make([]float64, dim)
	if err := obj.Gradient(theta, grad); err != nil {
		return Result{}, err
	}
	if !vecmath.IsFinite(grad) {
		return Result{}, fmt.Errorf("%w: gradient at iteration %d", ErrNonFinite, t)
	}

	s := make([]float64, dim)
	if err := set.LMO(grad, s); err != nil {
		switch {
		case errors.Is(err, constraint.ErrZeroGradient):
			return Result{Theta: vecmath.Clone(theta), Stationary: true}, nil
		case errors.Is(err, constraint.ErrNonFinite), errors.Is(err, constraint.ErrNoVertex):
			return Result{}, err
		default:
			return Result{}, fmt.Errorf("%w: %s at iteration %d: %w", constraint.ErrNoVertex, set.Name(), t, err)
		}
	}

	// <g, θ - s>
	gap := floats.Dot(grad, theta) - floats.Dot(grad, s)

	gamma, err := rule.StepSize(t, theta, s, grad, obj)
	if err != nil {
		return Result{}, err
	}

	next := vecmath.Interpolate(nil, theta, s, gamma)
	if !vecmath.IsFinite(next) {
		return Result{}, fmt.Errorf("%w: parameter at iteration %d", ErrNonFinite, t)
	}

	return Result{Theta: next, Gamma: gamma, Gap: gap}, nil
}

// StepRule chooses γ_t in [0, 1]
type StepRule interface {
	StepSize(t int, theta, s, grad []float64, obj Objective) (float64, error)
	Name() string
}

// NewStepRule builds a rule from its configured name
func NewStepRule(name string, lineSearchIterations int) (StepRule, error) {
	switch strings.ToLower(name) {
	case "diminishing", "":
		return Diminishing{}, nil
	case "line-search", "linesearch", "line_search":
		return LineSearch{Iterations: lineSearchIterations}, nil
	default:
		return nil, fmt.Errorf("unknown step size rule: %q", name)
	}
}

// Diminishing is the standard γ_t = 2/(t+2) schedule
type Diminishing struct{}

func (Diminishing) Name() string { return "diminishing" }

func (Diminishing) StepSize(t int, _, _, _ []float64, _ Objective) (float64, error) {
	if t < 0 {
		t = 0
	}
	return 2 / float64(t+2), nil
}

// LineSearch minimizes f((1-γ)θ + γs) over γ in [0, 1] by golden-section search
type LineSearch struct {
	Iterations int // golden-section iterations (default: 40)
}

func (LineSearch) Name() string { return "line-search" }

var invPhi = (math.Sqrt(5) - 1) / 2

func (ls LineSearch) StepSize(_ int, theta, s, _ []float64, obj Objective) (float64, error) {
	iters := ls.Iterations
	if iters <= 0 {
		iters = 40
	}

	point := make([]float64, len(theta))
	eval := func(gamma float64) (float64, error) {
		vecmath.Interpolate(point, theta, s, gamma)
		v, err := obj.Value(point)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) {
			return 0, fmt.Errorf("%w: objective value during line search", ErrNonFinite)
		}
		return v, nil
	}

	lo, hi := 0.0, 1.0
	c := hi - invPhi*(hi-lo)
	d := lo + invPhi*(hi-lo)
	fc, err := eval(c)
	if err != nil {
		return 0, err
	}
	fd, err := eval(d)
	if err != nil {
		return 0, err
	}

	for i := 0; i < iters; i++ {
		if fc < fd {
			hi, d, fd = d, c, fc
			c = hi - invPhi*(hi-lo)
			if fc, err = eval(c); err != nil {
				return 0, err
			}
		} else {
			lo, c, fc = c, d, fd
			d = lo + invPhi*(hi-lo)
			if fd, err = eval(d); err != nil {
				return 0, err
			}
		}
	}

	gamma := (lo + hi) / 2

	// the endpoints are not probed by the bracket
	best, err := eval(gamma)
	if err != nil {
		return 0, err
	}
	for _, edge := range []float64{0, 1} {
		v, err := eval(edge)
		if err != nil {
			return 0, err
		}
		if v < best {
			best, gamma = v, edge
		}
	}
	return gamma, nil
}
