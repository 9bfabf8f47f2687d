package scheduler

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/constraint"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/frankwolfe"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
)

var (
	// ErrInvalidConfig is raised before a run starts when options or graph are unusable
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")

	// ErrDegenerateNode is raised for a node whose objective is undefined
	ErrDegenerateNode = errors.New("scheduler: degenerate node")

	// ErrCallback is raised when a metric evaluator fails
	ErrCallback = errors.New("scheduler: callback evaluation failed")

	// ErrNumericalInstability is raised when a gradient or parameter becomes non-finite
	ErrNumericalInstability = errors.New("scheduler: numerical instability")

	// ErrInfeasible is raised when an update leaves the constraint set
	ErrInfeasible = errors.New("scheduler: parameter left the constraint set")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// classify maps step failures onto the scheduler's error taxonomy
func classify(err error) error {
	switch {
	case errors.Is(err, model.ErrNoSamples), errors.Is(err, constraint.ErrNoVertex):
		return fmt.Errorf("%w: %w", ErrDegenerateNode, err)
	case errors.Is(err, frankwolfe.ErrNonFinite), errors.Is(err, constraint.ErrNonFinite):
		return fmt.Errorf("%w: %w", ErrNumericalInstability, err)
	default:
		return err
	}
}
