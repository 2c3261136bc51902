package agent

import (
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/searcher"
)

type Agent interface {
	// FindAction plans from state and returns the action to take together
	// with metrics of the planning call. It returns mdp.NoAction at terminal states.
	FindAction(state mdp.State) (mdp.Action, metrics.SearchMetric, error)
}

// Planner is the part of *searcher.Core the local agents and the server use.
type Planner interface {
	searcher.Solver
	QValues(s mdp.State) []searcher.ActionValue
	LastMetric() metrics.SearchMetric
}

var _ Planner = (*searcher.Core)(nil)
