// Package bound provides admissible initial value bounds for freshly
// discovered states.
package bound

import (
	"errors"
	"fmt"
	"math"

	"rtdp/mdp"
)

var ErrUndiscounted = errors.New("reward-range bounds need a discount below 1")

type constant float64

func (c constant) Value(mdp.State) float64 {
	return float64(c)
}

// Constant bounds every state by v.
func Constant(v float64) mdp.Bound {
	return constant(v)
}

// Func adapts a plain function into a Bound.
func Func(f func(mdp.State) float64) mdp.Bound {
	return mdp.BoundFunc(f)
}

// Discounted returns the lower and upper bounds implied by the reward range of
// a discounted problem: no policy can collect more than maxReward/(1-discount)
// or less than minReward/(1-discount). Both are widened to include 0, the
// value of a terminal state.
func Discounted(minReward, maxReward, discount float64) (lower, upper mdp.Bound, err error) {
	if discount < 0 || discount >= 1 {
		return nil, nil, fmt.Errorf("%w: got %g", ErrUndiscounted, discount)
	}
	if minReward > maxReward {
		return nil, nil, fmt.Errorf("reward range [%g, %g] is empty", minReward, maxReward)
	}
	horizon := 1 / (1 - discount)
	lower = Constant(math.Min(0, minReward*horizon))
	upper = Constant(math.Max(0, maxReward*horizon))
	return lower, upper, nil
}

// ForModel derives reward-range bounds from a model.
func ForModel(m mdp.Model) (lower, upper mdp.Bound, err error) {
	rmin, rmax := m.RewardRange()
	return Discounted(rmin, rmax, m.Discount())
}
