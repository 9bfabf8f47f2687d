package scheduler

import "fmt"

// Coupling describes how a node's objective depends on the other nodes
type Coupling int

const (
	// CouplingPooled: one shared parameter minimizing the loss on pooled data
	CouplingPooled Coupling = iota
	// CouplingLocal: each node minimizes its own loss only
	CouplingLocal
	// CouplingNeighbor: local loss + (mu/2) Σ_j w_ij ||θ_i - θ_j||²
	CouplingNeighbor
	// CouplingMean: local loss + (mu/2) ||θ_i - mean_j θ_j||²
	CouplingMean
)

func (c Coupling) String() string {
	switch c {
	case CouplingPooled:
		return "pooled"
	case CouplingLocal:
		return "local"
	case CouplingNeighbor:
		return "neighbor"
	case CouplingMean:
		return "mean"
	default:
		return fmt.Sprintf("coupling(%d)", int(c))
	}
}

// Ordering describes what one scheduler step is
type Ordering int

const (
	// OrderingSynchronous: one bulk-synchronous round; every node computes
	// against a frozen snapshot, then all updates commit together
	OrderingSynchronous Ordering = iota
	// OrderingActivation: single-node activations reading live parameters
	OrderingActivation
)

func (o Ordering) String() string {
	switch o {
	case OrderingSynchronous:
		return "synchronous"
	case OrderingActivation:
		return "activation"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Variant names one of the five schedulers
type Variant string

const (
	VariantCentralized       Variant = "centralized"
	VariantLocal             Variant = "local"
	VariantRegularized       Variant = "regularized"
	VariantAsyncRegularized  Variant = "async-regularized"
	VariantGlobalRegularized Variant = "global-regularized"
)

// Variants lists every scheduler in the order the experiment driver runs them
func Variants() []Variant {
	return []Variant{
		VariantCentralized,
		VariantRegularized,
		VariantAsyncRegularized,
		VariantLocal,
		VariantGlobalRegularized,
	}
}

// Strategy parameterizes the generic scheduler
type Strategy struct {
	Name     Variant
	Coupling Coupling
	Ordering Ordering
	Mu       float64 // regularization strength, ignored by pooled and local coupling
}

// StrategyFor returns the strategy implementing a variant
func StrategyFor(v Variant, mu float64) (Strategy, error) {
	switch v {
	case VariantCentralized:
		return Strategy{Name: v, Coupling: CouplingPooled, Ordering: OrderingSynchronous}, nil
	case VariantLocal:
		return Strategy{Name: v, Coupling: CouplingLocal, Ordering: OrderingSynchronous}, nil
	case VariantRegularized:
		return Strategy{Name: v, Coupling: CouplingNeighbor, Ordering: OrderingSynchronous, Mu: mu}, nil
	case VariantAsyncRegularized:
		return Strategy{Name: v, Coupling: CouplingNeighbor, Ordering: OrderingActivation, Mu: mu}, nil
	case VariantGlobalRegularized:
		return Strategy{Name: v, Coupling: CouplingMean, Ordering: OrderingSynchronous, Mu: mu}, nil
	default:
		return Strategy{}, invalidf("unknown variant %q", v)
	}
}

func (s Strategy) validate() error {
	if s.Coupling < CouplingPooled || s.Coupling > CouplingMean {
		return invalidf("unknown coupling %v", s.Coupling)
	}
	if s.Ordering != OrderingSynchronous && s.Ordering != OrderingActivation {
		return invalidf("unknown ordering %v", s.Ordering)
	}
	if s.Coupling == CouplingPooled && s.Ordering != OrderingSynchronous {
		return invalidf("pooled coupling requires synchronous ordering")
	}
	if s.Coupling == CouplingMean && s.Ordering != OrderingSynchronous {
		return invalidf("mean coupling requires synchronous ordering")
	}
	return validateMu(s.Mu)
}

func (s Strategy) label() string {
	if s.Name != "" {
		return string(s.Name)
	}
	return s.Coupling.String() + "/" + s.Ordering.String()
}
