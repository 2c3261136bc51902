package agent

import (
	"time"

	"rtdp/mdp"
	"rtdp/metrics"
)

type planningAgent struct {
	planner   Planner
	budget    time.Duration
	precision float64
}

// NewPlanningAgent returns an agent that plans for up to budget and then acts
// greedily on the planner's bounds.
func NewPlanningAgent(planner Planner, budget time.Duration, precision float64) Agent {
	return planningAgent{planner: planner, budget: budget, precision: precision}
}

func (a planningAgent) FindAction(state mdp.State) (mdp.Action, metrics.SearchMetric, error) {
	a.planner.PlanFixedTime(state, a.budget.Seconds(), a.precision)
	return a.planner.ChooseAction(state), a.planner.LastMetric(), nil
}
