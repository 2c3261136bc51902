// Package mdp defines the contract between a planning engine and the problem
// it solves: states, actions, outcome distributions and value bounds.
package mdp

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// State is a point in the problem's state space. For partially observable
// problems it is a belief vector. States that compare equal are the same state.
type State []float64

func (s State) Clone() State {
	return slices.Clone(s)
}

func (s State) Equal(other State) bool {
	return slices.Equal(s, other)
}

type Action int

// NoAction is returned where no action applies, e.g. at a terminal state.
const NoAction Action = -1

// Outcome is one branch of an action's successor distribution.
type Outcome struct {
	Prob   float64
	Next   State
	Reward float64
}

// Problem is the oracle searched by the planner. Implementations must be
// deterministic and side-effect free. A state with no actions is terminal.
type Problem interface {
	Actions(s State) []Action
	// Outcomes returns the successor distribution of a in s. Probabilities
	// must sum to 1.
	Outcomes(s State, a Action) []Outcome
	Discount() float64
}

// Model is a Problem that also knows where to start and how to describe itself.
type Model interface {
	Problem
	InitialState() State
	ActionName(a Action) string
	// RewardRange returns the smallest and largest immediate reward of any transition.
	RewardRange() (min, max float64)
}

// Bound computes an admissible initial bound for a freshly discovered state.
// It must be deterministic.
type Bound interface {
	Value(s State) float64
}

type BoundFunc func(s State) float64

func (f BoundFunc) Value(s State) float64 {
	return f(s)
}

// ValueInterval brackets the optimal value of a state.
type ValueInterval struct {
	Lower float64
	Upper float64
}

func (v ValueInterval) Width() float64 {
	return v.Upper - v.Lower
}

func (v ValueInterval) OverlapsWith(other ValueInterval) bool {
	return v.Lower <= other.Upper && other.Lower <= v.Upper
}

func (v ValueInterval) Contains(x float64) bool {
	return v.Lower <= x && x <= v.Upper
}

func (v ValueInterval) String() string {
	return fmt.Sprintf("[%g, %g]", v.Lower, v.Upper)
}
