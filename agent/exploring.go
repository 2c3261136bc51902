package agent

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"rtdp/mdp"
	"rtdp/metrics"
)

type exploringAgent struct {
	planner   Planner
	budget    time.Duration
	precision float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExploringAgent returns an agent that plans like the planning agent but
// then picks uniformly among every action that could still be optimal: those
// whose value interval overlaps the best action's interval.
func NewExploringAgent(planner Planner, budget time.Duration, precision float64, seed uint64) Agent {
	return &exploringAgent{
		planner:   planner,
		budget:    budget,
		precision: precision,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (a *exploringAgent) FindAction(state mdp.State) (mdp.Action, metrics.SearchMetric, error) {
	a.planner.PlanFixedTime(state, a.budget.Seconds(), a.precision)
	metric := a.planner.LastMetric()

	best := a.planner.ChooseAction(state)
	if best == mdp.NoAction {
		return mdp.NoAction, metric, nil
	}

	values := a.planner.QValues(state)
	var bestValue mdp.ValueInterval
	for _, v := range values {
		if v.Action == best {
			bestValue = v.Value
		}
	}
	candidates := []mdp.Action{}
	for _, v := range values {
		if v.Value.OverlapsWith(bestValue) {
			candidates = append(candidates, v.Action)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return candidates[a.rng.Intn(len(candidates))], metric, nil
}
