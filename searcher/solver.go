package searcher

import (
	"rtdp/mdp"
	"rtdp/metrics"
)

// Solver is the planning API consumed by agents and the episode runner.
type Solver interface {
	PlanInit(problem mdp.Problem)
	PlanFixedTime(s mdp.State, maxTimeSeconds, minPrecision float64) bool
	ChooseAction(s mdp.State) mdp.Action
	ValueAt(s mdp.State) mdp.ValueInterval
	SetBoundsFile(sink metrics.BoundsWriter)
}

var _ Solver = (*Core)(nil)
