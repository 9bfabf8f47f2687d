// Package callback evaluates metrics over the current graph state and records
// them as immutable per-round snapshots.
package callback

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"
)

var (
	// ErrDuplicateMetric is returned when a name is registered twice
	ErrDuplicateMetric = errors.New("callback: metric already registered")

	// ErrNonFiniteMetric is returned when an evaluator yields NaN or Inf
	ErrNonFiniteMetric = errors.New("callback: non-finite metric value")
)

// Evaluator computes a (train, test) metric over the current graph
type Evaluator interface {
	Evaluate(g *graph.Graph) (train, test float64, err error)
}

// EvaluatorFunc adapts a function to Evaluator
type EvaluatorFunc func(g *graph.Graph) (float64, float64, error)

// Evaluate calls f(g)
func (f EvaluatorFunc) Evaluate(g *graph.Graph) (float64, float64, error) {
	return f(g)
}

// Registry maps metric names to evaluators
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		evaluators: make(map[string]Evaluator),
	}
}

// NewDefaultRegistry creates a registry holding every built-in evaluator
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds an evaluator under name
func (r *Registry) Register(name string, e Evaluator) error {
	if name == "" {
		return fmt.Errorf("callback: empty metric name")
	}
	if e == nil {
		return fmt.Errorf("callback: nil evaluator for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.evaluators[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
	}
	r.evaluators[name] = e
	return nil
}

// MustRegister is Register that panics on error, for static setup
func (r *Registry) MustRegister(name string, e Evaluator) {
	if err := r.Register(name, e); err != nil {
		panic(err)
	}
}

// Names returns the registered metric names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered evaluators
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.evaluators)
}

// Snapshot evaluates every registered metric once, in name order.
// The first failing or non-finite evaluator aborts the snapshot.
func (r *Registry) Snapshot(g *graph.Graph) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]Pair, len(names))
	for _, name := range names {
		train, test, err := r.evaluators[name].Evaluate(g)
		if err != nil {
			return Snapshot{}, fmt.Errorf("metric %s: %w", name, err)
		}
		if !finite(train) || !finite(test) {
			return Snapshot{}, fmt.Errorf("%w: %s = (%v, %v)", ErrNonFiniteMetric, name, train, test)
		}
		values[name] = Pair{Train: train, Test: test}
	}

	return Snapshot{values: values}, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
