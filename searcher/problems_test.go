package searcher

import (
	"math"
	"time"

	"rtdp/mdp"
	"rtdp/metrics"
)

// ladder is a shortest-path problem over cells 0..size. Walking moves one
// cell; jumping moves two cells with probability 0.8 and stays otherwise.
// Cell size is terminal and every step costs 1.
type ladder struct {
	size     int
	discount float64
}

const (
	walk mdp.Action = 0
	jump mdp.Action = 1
)

func (l ladder) Actions(s mdp.State) []mdp.Action {
	if int(s[0]) >= l.size {
		return nil
	}
	return []mdp.Action{walk, jump}
}

func (l ladder) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	i := int(s[0])
	if a == walk {
		return []mdp.Outcome{{Prob: 1, Next: mdp.State{float64(i + 1)}, Reward: -1}}
	}
	return []mdp.Outcome{
		{Prob: 0.8, Next: mdp.State{float64(min(i+2, l.size))}, Reward: -1},
		{Prob: 0.2, Next: mdp.State{float64(i)}, Reward: -1},
	}
}

func (l ladder) Discount() float64 {
	return l.discount
}

// optimal solves the ladder by value iteration.
func (l ladder) optimal() []float64 {
	values := make([]float64, l.size+1)
	for sweep := 0; sweep < 5000; sweep++ {
		for i := l.size - 1; i >= 0; i-- {
			walked := -1 + l.discount*values[i+1]
			jumped := -1 + l.discount*(0.8*values[min(i+2, l.size)]+0.2*values[i])
			values[i] = math.Max(walked, jumped)
		}
	}
	return values
}

// diamond branches from 0 into 1 and 2, which both lead to the terminal 3.
type diamond struct{}

func (diamond) Actions(s mdp.State) []mdp.Action {
	if s[0] == 3 {
		return nil
	}
	return []mdp.Action{0}
}

func (diamond) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	switch s[0] {
	case 0:
		return []mdp.Outcome{
			{Prob: 0.5, Next: mdp.State{1}, Reward: -1},
			{Prob: 0.5, Next: mdp.State{2}, Reward: -2},
		}
	default:
		return []mdp.Outcome{{Prob: 1, Next: mdp.State{3}, Reward: -1}}
	}
}

func (diamond) Discount() float64 {
	return 1
}

// selfLoop pays 1 for staying in 0 forever or 0 for exiting to the terminal 1,
// so the optimal value of 0 is 1/(1-discount).
type selfLoop struct {
	discount float64
}

const (
	stay mdp.Action = 0
	exit mdp.Action = 1
)

func (selfLoop) Actions(s mdp.State) []mdp.Action {
	if s[0] == 1 {
		return nil
	}
	return []mdp.Action{stay, exit}
}

func (selfLoop) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	if a == stay {
		return []mdp.Outcome{{Prob: 1, Next: mdp.State{0}, Reward: 1}}
	}
	return []mdp.Outcome{{Prob: 1, Next: mdp.State{1}, Reward: 0}}
}

func (l selfLoop) Discount() float64 {
	return l.discount
}

// splitOutcomes reaches the terminal 1 through two outcomes with different rewards.
type splitOutcomes struct{}

func (splitOutcomes) Actions(s mdp.State) []mdp.Action {
	if s[0] == 1 {
		return nil
	}
	return []mdp.Action{0}
}

func (splitOutcomes) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	return []mdp.Outcome{
		{Prob: 0.3, Next: mdp.State{1}, Reward: -1},
		{Prob: 0.7, Next: mdp.State{1}, Reward: -3},
	}
}

func (splitOutcomes) Discount() float64 {
	return 1
}

type recordingSink struct {
	snapshots []metrics.Snapshot
}

func (r *recordingSink) WriteSnapshot(s metrics.Snapshot) error {
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *recordingSink) Close() error {
	return nil
}

func (r *recordingSink) elapsed() []time.Duration {
	elapsed := make([]time.Duration, len(r.snapshots))
	for i, s := range r.snapshots {
		elapsed[i] = s.Elapsed
	}
	return elapsed
}
