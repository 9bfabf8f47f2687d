// Package constraint defines the feasible regions a parameter vector may live
// in, together with their linear minimization oracles.
package constraint

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
)

var (
	// ErrZeroGradient is returned by an LMO when the linear form vanishes and
	// no unique vertex minimizes it.
	ErrZeroGradient = errors.New("constraint: zero gradient has no unique minimizing vertex")

	// ErrNonFinite is returned when the gradient contains NaN or Inf.
	ErrNonFinite = errors.New("constraint: non-finite gradient")

	// ErrNoVertex is returned when no feasible vertex minimizes the linear
	// form, so the node's step is undefined.
	ErrNoVertex = errors.New("constraint: no feasible vertex minimizes the linear form")
)

// Kind names a supported feasible region
type Kind string

const (
	KindL2   Kind = "l2"
	KindL1   Kind = "l1"
	KindLInf Kind = "linf"
)

// Set is a compact convex feasible region
type Set interface {
	// LMO writes argmin_{v in Set} <grad, v> into dst.
	LMO(grad, dst []float64) error

	// Contains reports whether theta lies in the set, up to tol.
	Contains(theta []float64, tol float64) bool

	// Origin returns the feasible starting point of the given dimension.
	Origin(dim int) []float64

	Radius() float64
	Name() string
}

// New builds a Set from its configured kind and radius
func New(kind Kind, radius float64) (Set, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("invalid radius: %v (must be finite and > 0)", radius)
	}

	switch Kind(strings.ToLower(string(kind))) {
	case KindL2, "":
		return L2Ball{R: radius}, nil
	case KindL1:
		return L1Ball{R: radius}, nil
	case KindLInf:
		return LInfBall{R: radius}, nil
	default:
		return nil, fmt.Errorf("unknown constraint kind: %q", kind)
	}
}

// Default returns the Euclidean unit ball
func Default() Set {
	return L2Ball{R: 1}
}

func checkGrad(grad, dst []float64) error {
	if len(grad) != len(dst) {
		panic("vectors must have the same dimension")
	}
	if !vecmath.IsFinite(grad) {
		return ErrNonFinite
	}
	return nil
}

// L2Ball is {v : ||v||_2 <= R}
type L2Ball struct {
	R float64
}

// LMO returns -R * grad / ||grad||_2
func (b L2Ball) LMO(grad, dst []float64) error {
	if err := checkGrad(grad, dst); err != nil {
		return err
	}
	norm := floats.Norm(grad, 2)
	if norm == 0 {
		return ErrZeroGradient
	}
	floats.ScaleTo(dst, -b.R/norm, grad)
	return nil
}

func (b L2Ball) Contains(theta []float64, tol float64) bool {
	return floats.Norm(theta, 2) <= b.R+tol
}

func (b L2Ball) Origin(dim int) []float64 { return vecmath.Zeros(dim) }
func (b L2Ball) Radius() float64          { return b.R }
func (b L2Ball) Name() string             { return fmt.Sprintf("l2-ball(r=%g)", b.R) }

// L1Ball is {v : ||v||_1 <= R}; its vertices are ±R e_k
type L1Ball struct {
	R float64
}

// LMO picks the coordinate with the largest absolute gradient (first one on
// ties) and returns -R sign(g_k) e_k
func (b L1Ball) LMO(grad, dst []float64) error {
	if err := checkGrad(grad, dst); err != nil {
		return err
	}

	k := -1
	best := 0.0
	for i, g := range grad {
		if a := math.Abs(g); a > best {
			best = a
			k = i
		}
	}
	if k < 0 {
		return ErrZeroGradient
	}

	for i := range dst {
		dst[i] = 0
	}
	if grad[k] > 0 {
		dst[k] = -b.R
	} else {
		dst[k] = b.R
	}
	return nil
}

func (b L1Ball) Contains(theta []float64, tol float64) bool {
	return floats.Norm(theta, 1) <= b.R+tol
}

func (b L1Ball) Origin(dim int) []float64 { return vecmath.Zeros(dim) }
func (b L1Ball) Radius() float64          { return b.R }
func (b L1Ball) Name() string             { return fmt.Sprintf("l1-ball(r=%g)", b.R) }

// LInfBall is the box {v : |v_k| <= R}
type LInfBall struct {
	R float64
}

// LMO returns -R sign(grad); coordinates with zero gradient stay at 0
func (b LInfBall) LMO(grad, dst []float64) error {
	if err := checkGrad(grad, dst); err != nil {
		return err
	}

	nonZero := false
	for i, g := range grad {
		switch {
		case g > 0:
			dst[i] = -b.R
			nonZero = true
		case g < 0:
			dst[i] = b.R
			nonZero = true
		default:
			dst[i] = 0
		}
	}
	if !nonZero {
		return ErrZeroGradient
	}
	return nil
}

func (b LInfBall) Contains(theta []float64, tol float64) bool {
	return floats.Norm(theta, math.Inf(1)) <= b.R+tol
}

func (b LInfBall) Origin(dim int) []float64 { return vecmath.Zeros(dim) }
func (b LInfBall) Radius() float64          { return b.R }
func (b LInfBall) Name() string             { return fmt.Sprintf("linf-ball(r=%g)", b.R) }
