// Package scheduler runs the Frank-Wolfe variants over a graph of nodes.
//
// All five variants share one engine. A Strategy says how a node's objective
// couples to the other nodes (pooled, local, neighbor, mean) and what one
// step is (a bulk-synchronous round or a single node activation). Each run
// works on its own deep copy of the graph and returns one metric snapshot
// per step plus the baseline.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/therealutkarshpriyadarshi/fwnet/internal/vecmath"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/callback"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/frankwolfe"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/model"
	"github.com/therealutkarshpriyadarshi/fwnet/pkg/observability"
)

// feasibilityTol is the slack allowed when checking a committed parameter
const feasibilityTol = 1e-9

// State is the lifecycle state of a run
type State int

const (
	StateInit State = iota
	StateRunning
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of a completed run
type Result struct {
	RunID       string
	Variant     Variant
	State       State
	Snapshots   []callback.Snapshot // Iterations+1 entries, baseline first
	Params      [][]float64         // final parameter of every node
	Activations int                 // node updates performed, skipped nodes excluded
	Duration    time.Duration
}

// Final returns the last recorded snapshot
func (r *Result) Final() callback.Snapshot {
	return r.Snapshots[len(r.Snapshots)-1]
}

type runner struct {
	strategy Strategy
	opts     Options
	label    string
	g        *graph.Graph
	log      *observability.Logger
	state    State

	// pooled coupling
	pooled      model.Samples
	shared      []float64
	sharedSteps int

	order       *activationOrder
	skip        []bool
	activations int
	progress    rate.Sometimes
}

// Run executes strategy on a private copy of g. The caller's graph is never
// modified. On failure the partial run is discarded and only the error is
// returned.
func Run(g *graph.Graph, strategy Strategy, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := strategy.validate(); err != nil {
		return nil, err
	}
	if g == nil || g.Len() == 0 {
		return nil, invalidf("empty graph")
	}

	label := strategy.label()
	runID := uuid.NewString()
	r := &runner{
		strategy: strategy,
		opts:     opts,
		label:    label,
		g:        g.Clone(),
		log: opts.Logger.WithFields(map[string]interface{}{
			"run_id":  runID,
			"variant": label,
		}),
		state:    StateInit,
		progress: rate.Sometimes{First: 1, Interval: time.Second},
	}

	start := time.Now()
	snapshots, err := r.run()
	duration := time.Since(start)
	if err != nil {
		r.state = StateAborted
		opts.Metrics.RecordRun(label, StateAborted.String(), duration)
		r.log.Error("Run aborted", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	opts.Metrics.RecordRun(label, StateDone.String(), duration)
	r.log.Info("Run finished", map[string]interface{}{
		"steps":       opts.Iterations,
		"activations": r.activations,
		"duration_ms": duration.Milliseconds(),
	})

	return &Result{
		RunID:       runID,
		Variant:     strategy.Name,
		State:       r.state,
		Snapshots:   snapshots,
		Params:      r.g.Params(),
		Activations: r.activations,
		Duration:    duration,
	}, nil
}

func (r *runner) run() ([]callback.Snapshot, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	snapshots := make([]callback.Snapshot, 0, r.opts.Iterations+1)
	baseline, err := r.record(0)
	if err != nil {
		return nil, err
	}
	snapshots = append(snapshots, baseline)

	r.state = StateRunning
	r.log.Info("Run started", map[string]interface{}{
		"nodes":      r.g.Len(),
		"iterations": r.opts.Iterations,
		"mu":         r.strategy.Mu,
		"constraint": r.opts.Set.Name(),
		"step_rule":  r.opts.StepRule.Name(),
	})

	for step := 1; step <= r.opts.Iterations; step++ {
		stepStart := time.Now()
		before := r.activations
		if err := r.advance(step); err != nil {
			return nil, err
		}
		r.opts.Metrics.RecordStep(r.label, r.activations-before, time.Since(stepStart))
		r.opts.Metrics.UpdateGap(r.label, r.meanGap())

		snap, err := r.record(step)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)

		if r.opts.Progress != nil {
			r.opts.Progress(step, r.opts.Iterations)
		}
		r.progress.Do(func() {
			r.log.Debug("Progress", map[string]interface{}{
				"step":     step,
				"total":    r.opts.Iterations,
				"mean_gap": r.meanGap(),
			})
		})
	}

	r.state = StateDone
	return snapshots, nil
}

// init validates the data against the options, resets every node to the
// origin and decides which nodes are degenerate
func (r *runner) init() error {
	dim := r.opts.Dimension
	if err := r.g.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	r.skip = make([]bool, r.g.Len())
	for _, node := range r.g.Nodes() {
		if err := node.Train.Validate(dim); err != nil {
			return invalidf("node %d train samples: %v", node.ID, err)
		}
		if err := node.Test.Validate(dim); err != nil {
			return invalidf("node %d test samples: %v", node.ID, err)
		}
		node.Theta = r.opts.Set.Origin(dim)
		node.Steps = 0
		node.Gap = 0

		if node.Degenerate() {
			if r.opts.Degenerate == DegenerateAbort {
				return fmt.Errorf("%w: node %d has no training samples", ErrDegenerateNode, node.ID)
			}
			r.skip[node.ID] = true
			r.log.Warn("Degenerate node will be held fixed", map[string]interface{}{"node": node.ID})
		}
	}

	switch {
	case r.strategy.Coupling == CouplingPooled:
		r.pooled = r.g.PooledTrain()
		if r.pooled.Len() == 0 {
			return fmt.Errorf("%w: pooled training set is empty", ErrDegenerateNode)
		}
		r.shared = r.opts.Set.Origin(dim)
		r.sharedSteps = 0
	case r.strategy.Ordering == OrderingActivation:
		r.order = newActivationOrder(r.opts.Async.Policy, r.g.Len(), r.opts.Async.Seed)
	}
	return nil
}

func (r *runner) advance(step int) error {
	switch {
	case r.strategy.Coupling == CouplingPooled:
		return r.pooledRound(step)
	case r.strategy.Ordering == OrderingActivation:
		n := 1
		if r.opts.Async.Cadence == CadenceEpoch {
			n = r.g.Len()
		}
		for k := 0; k < n; k++ {
			if err := r.activate(step); err != nil {
				return err
			}
		}
		return nil
	default:
		return r.syncRound(step)
	}
}

// pooledRound takes one step on the shared parameter and broadcasts it
func (r *runner) pooledRound(step int) error {
	obj := localObjective{loss: r.opts.Loss, data: r.pooled}
	res, err := frankwolfe.Step(r.shared, obj, r.opts.Set, r.opts.StepRule, r.sharedSteps)
	if err != nil {
		return fmt.Errorf("round %d: %w", step, classify(err))
	}
	if err := r.checkFeasible(res.Theta, -1, step); err != nil {
		return err
	}
	r.shared = res.Theta
	r.sharedSteps++
	r.activations++

	r.g.SetAll(r.shared)
	for _, node := range r.g.Nodes() {
		node.Steps = r.sharedSteps
		node.Gap = res.Gap
	}
	return nil
}

// syncRound runs one bulk-synchronous round: every node computes against
// the parameters frozen at the end of the previous round, then all updates
// commit together
func (r *runner) syncRound(step int) error {
	nodes := r.g.Nodes()
	frozen := r.g.Params()
	view := func(j int) []float64 { return frozen[j] }

	var mean []float64
	if r.strategy.Coupling == CouplingMean {
		mean = vecmath.Mean(frozen, r.opts.Dimension)
	}

	outcomes := make([]frankwolfe.Result, len(nodes))
	errs := make([]error, len(nodes))
	compute := func(i int) {
		node := nodes[i]
		if r.skip[i] {
			return
		}
		obj := r.objective(node, view, mean)
		outcomes[i], errs[i] = frankwolfe.Step(node.Theta, obj, r.opts.Set, r.opts.StepRule, node.Steps)
	}

	if r.opts.Workers > 1 {
		var eg errgroup.Group
		eg.SetLimit(r.opts.Workers)
		for i := range nodes {
			i := i
			eg.Go(func() error {
				compute(i)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for i := range nodes {
			compute(i)
		}
	}

	// Lowest node ID wins so the reported error does not depend on scheduling
	held := make([]bool, len(nodes))
	for i, err := range errs {
		if err == nil {
			continue
		}
		err = fmt.Errorf("node %d round %d: %w", i, step, classify(err))
		if !r.holdable(err) {
			return err
		}
		held[i] = true
		r.hold(i, step, err)
	}

	for i, node := range nodes {
		if r.skip[i] {
			r.opts.Metrics.RecordDegenerateSkip(r.label)
			continue
		}
		if held[i] {
			continue
		}
		if err := r.checkFeasible(outcomes[i].Theta, i, step); err != nil {
			return err
		}
		node.Theta = outcomes[i].Theta
		node.Gap = outcomes[i].Gap
		node.Steps++
		r.activations++
	}
	return nil
}

// activate updates a single node in place against the live parameters of
// its neighbors
func (r *runner) activate(step int) error {
	i := r.order.next()
	if r.skip[i] {
		r.opts.Metrics.RecordDegenerateSkip(r.label)
		return nil
	}

	nodes := r.g.Nodes()
	node := nodes[i]
	view := func(j int) []float64 { return nodes[j].Theta }
	obj := r.objective(node, view, nil)

	res, err := frankwolfe.Step(node.Theta, obj, r.opts.Set, r.opts.StepRule, node.Steps)
	if err != nil {
		err = fmt.Errorf("node %d step %d: %w", i, step, classify(err))
		if !r.holdable(err) {
			return err
		}
		r.hold(i, step, err)
		return nil
	}
	if err := r.checkFeasible(res.Theta, i, step); err != nil {
		return err
	}
	node.Theta = res.Theta
	node.Gap = res.Gap
	node.Steps++
	r.activations++
	return nil
}

// holdable reports whether a step failure only stalls its node for this step
func (r *runner) holdable(err error) bool {
	return r.opts.Degenerate == DegenerateSkip && errors.Is(err, ErrDegenerateNode)
}

// hold keeps node i at its current parameter for this step
func (r *runner) hold(i, step int, err error) {
	r.opts.Metrics.RecordDegenerateSkip(r.label)
	r.log.Warn("Degenerate step, node held", map[string]interface{}{
		"node":  i,
		"step":  step,
		"error": err.Error(),
	})
}

func (r *runner) objective(node *graph.Node, view paramView, mean []float64) frankwolfe.Objective {
	local := localObjective{loss: r.opts.Loss, data: node.Train}
	switch r.strategy.Coupling {
	case CouplingNeighbor:
		return newNeighborObjective(local, r.strategy.Mu, node, view)
	case CouplingMean:
		return meanObjective{localObjective: local, mu: r.strategy.Mu, mean: mean}
	default:
		return local
	}
}

func (r *runner) checkFeasible(theta []float64, node, step int) error {
	tol := feasibilityTol * max(1, r.opts.Set.Radius())
	if r.opts.Set.Contains(theta, tol) {
		return nil
	}
	if node < 0 {
		return fmt.Errorf("%w: shared parameter at round %d (%s)", ErrInfeasible, step, r.opts.Set.Name())
	}
	return fmt.Errorf("%w: node %d at step %d (%s)", ErrInfeasible, node, step, r.opts.Set.Name())
}

func (r *runner) record(step int) (callback.Snapshot, error) {
	snap, err := r.opts.Registry.Snapshot(r.g)
	if err != nil {
		return callback.Snapshot{}, fmt.Errorf("%w: step %d: %w", ErrCallback, step, err)
	}
	for _, name := range snap.Names() {
		p, _ := snap.Get(name)
		r.opts.Metrics.UpdateMetricValue(r.label, name, p.Train, p.Test)
	}
	return snap, nil
}

func (r *runner) meanGap() float64 {
	var sum float64
	for _, node := range r.g.Nodes() {
		sum += node.Gap
	}
	return sum / float64(r.g.Len())
}
