package scheduler

import (
	"math"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/callback"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/constraint"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/frankwolfe"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/observability"
)

// DegeneratePolicy decides what happens to a node whose objective is undefined
type DegeneratePolicy string

const (
	// DegenerateAbort aborts the whole run (default)
	DegenerateAbort DegeneratePolicy = "abort"

	// DegenerateSkip holds the node's parameter fixed for the round and continues
	DegenerateSkip DegeneratePolicy = "skip"
)

// ActivationPolicy selects the next node to activate in the asynchronous variant
type ActivationPolicy string

const (
	// ActivateRoundRobin activates nodes 0, 1, ..., n-1, 0, ...
	ActivateRoundRobin ActivationPolicy = "round-robin"

	// ActivatePermutation draws a fresh uniform permutation every epoch (no replacement)
	ActivatePermutation ActivationPolicy = "permutation"

	// ActivateUniform draws each activation uniformly at random (with replacement)
	ActivateUniform ActivationPolicy = "uniform"
)

// Cadence decides how many activations separate two snapshots
type Cadence string

const (
	// CadenceActivation records a snapshot after every single activation
	CadenceActivation Cadence = "activation"

	// CadenceEpoch records a snapshot after every len(nodes) activations
	CadenceEpoch Cadence = "epoch"
)

// AsyncOptions pins down the asynchronous variant's ordering and reporting
type AsyncOptions struct {
	Policy  ActivationPolicy // default: permutation
	Seed    int64            // seeds the activation order
	Cadence Cadence          // default: activation
}

// Options configures a scheduler run.
// Zero values of optional fields fall back to the defaults listed per field.
type Options struct {
	Dimension  int                // parameter dimension D (required)
	Iterations int                // number of recorded steps K; the run returns K+1 snapshots (required)
	Registry   *callback.Registry // metric evaluators (required)

	Set        constraint.Set      // feasible region (default: L2 unit ball)
	StepRule   frankwolfe.StepRule // step-size rule (default: 2/(t+2))
	Loss       model.Loss          // local loss (default: logistic)
	Degenerate DegeneratePolicy    // default: abort
	Workers    int                 // parallel compute-phase workers for synchronous variants (default: 1)
	Async      AsyncOptions

	Logger   *observability.Logger  // default: no-op
	Metrics  *observability.Metrics // optional
	Progress ProgressCallback       // optional, called after every recorded step
}

// ProgressCallback is called during a run to report progress
type ProgressCallback func(step, total int)

func (o Options) withDefaults() Options {
	if o.Set == nil {
		o.Set = constraint.Default()
	}
	if o.StepRule == nil {
		o.StepRule = frankwolfe.Diminishing{}
	}
	if o.Loss == nil {
		o.Loss = model.Logistic{}
	}
	if o.Degenerate == "" {
		o.Degenerate = DegenerateAbort
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Async.Policy == "" {
		o.Async.Policy = ActivatePermutation
	}
	if o.Async.Cadence == "" {
		o.Async.Cadence = CadenceActivation
	}
	if o.Logger == nil {
		o.Logger = observability.NewNopLogger()
	}
	return o
}

func (o Options) validate() error {
	if o.Dimension < 1 {
		return invalidf("dimension %d (must be > 0)", o.Dimension)
	}
	if o.Iterations < 1 {
		return invalidf("iterations %d (must be > 0)", o.Iterations)
	}
	if o.Registry == nil {
		return invalidf("nil callback registry")
	}
	if o.Workers < 1 {
		return invalidf("workers %d (must be > 0)", o.Workers)
	}
	if r := o.Set.Radius(); r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return invalidf("constraint radius %v (must be finite and > 0)", r)
	}

	switch o.Degenerate {
	case DegenerateAbort, DegenerateSkip:
	default:
		return invalidf("unknown degenerate policy %q", o.Degenerate)
	}
	switch o.Async.Policy {
	case ActivateRoundRobin, ActivatePermutation, ActivateUniform:
	default:
		return invalidf("unknown activation policy %q", o.Async.Policy)
	}
	switch o.Async.Cadence {
	case CadenceActivation, CadenceEpoch:
	default:
		return invalidf("unknown snapshot cadence %q", o.Async.Cadence)
	}
	return nil
}

func validateMu(mu float64) error {
	if mu < 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return invalidf("mu %v (must be finite and >= 0)", mu)
	}
	return nil
}
