package scheduler

import "math/rand"

// activationOrder yields the node activated next by the asynchronous variant.
// It is seeded, so a fixed seed gives a fixed order.
type activationOrder struct {
	policy ActivationPolicy
	n      int
	rng    *rand.Rand
	perm   []int
	pos    int
}

func newActivationOrder(policy ActivationPolicy, n int, seed int64) *activationOrder {
	return &activationOrder{
		policy: policy,
		n:      n,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (o *activationOrder) next() int {
	switch o.policy {
	case ActivateRoundRobin:
		i := o.pos % o.n
		o.pos++
		return i
	case ActivateUniform:
		return o.rng.Intn(o.n)
	default:
		if o.perm == nil || o.pos == len(o.perm) {
			o.perm = o.rng.Perm(o.n)
			o.pos = 0
		}
		i := o.perm[o.pos]
		o.pos++
		return i
	}
}
