package scheduler

import "github.com/therealutkarshpriyadarshi/fwnet/pkg/graph"

// Centralized learns one shared parameter on the pooled training data of
// every node and copies it into each node for evaluation
func Centralized(g *graph.Graph, opts Options) (*Result, error) {
	return RunVariant(g, VariantCentralized, 0, opts)
}

// Local runs independent Frank-Wolfe on every node's own data; the graph
// weights are never read
func Local(g *graph.Graph, opts Options) (*Result, error) {
	return RunVariant(g, VariantLocal, 0, opts)
}

// Regularized runs synchronous rounds on
// L_i(θ) + (mu/2) Σ_j w_ij ||θ - θ_j||²
func Regularized(g *graph.Graph, mu float64, opts Options) (*Result, error) {
	return RunVariant(g, VariantRegularized, mu, opts)
}

// AsyncRegularized minimizes the same objective as Regularized with one
// node activation per iteration, reading the live parameters of neighbors.
// Activation order, seed and snapshot cadence come from opts.Async.
func AsyncRegularized(g *graph.Graph, mu float64, opts Options) (*Result, error) {
	return RunVariant(g, VariantAsyncRegularized, mu, opts)
}

// GlobalRegularized runs synchronous rounds on
// L_i(θ) + (mu/2) ||θ - θ̄||², where θ̄ is the mean of all parameters from
// the previous round
func GlobalRegularized(g *graph.Graph, mu float64, opts Options) (*Result, error) {
	return RunVariant(g, VariantGlobalRegularized, mu, opts)
}

// RunVariant runs a variant by name
func RunVariant(g *graph.Graph, v Variant, mu float64, opts Options) (*Result, error) {
	strategy, err := StrategyFor(v, mu)
	if err != nil {
		return nil, err
	}
	return Run(g, strategy, opts)
}
