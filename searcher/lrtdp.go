package searcher

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type lrtdp struct{}

// NewLRTDP is RTDP with solved labels. After each trial the visited states
// are checked deepest first; a state is labelled solved once every state
// reachable under its greedy policy has a residual and width within the target.
// Trials stop at solved states.
func NewLRTDP() Strategy {
	return lrtdp{}
}

func (lrtdp) String() string {
	return "lrtdp"
}

func (lrtdp) useLowerBound() bool {
	return false
}

func (lrtdp) updateInternal(c *Core, id NodeID) int {
	best, _ := c.backup(id)
	return best
}

func (l lrtdp) doTrial(c *Core, root NodeID, pTarget float64) {
	path := c.path[:0]
	id := root
	for depth := 0; depth < c.maxDepth && id != noNode; depth++ {
		n := c.visit(id)
		if n.solvedFor(pTarget) {
			break
		}
		path = append(path, id)
		best := c.update(id)
		if best < 0 {
			break
		}
		id = c.sampleOutcome(&n.actions[best])
	}

	for i := len(path) - 1; i >= 0; i-- {
		if !l.checkSolved(c, path[i], pTarget) {
			break
		}
	}
	c.path = path

	c.logger.Trace().Int("depth", len(path)).Stringer("root", c.graph.at(root).interval()).Msg("lrtdp trial")
}

// checkSolved labels id and its greedy envelope solved if none of them still
// needs work. Otherwise it backs up the envelope deepest first.
func (lrtdp) checkSolved(c *Core, id NodeID, epsilon float64) bool {
	if c.graph.at(id).solvedFor(epsilon) {
		return true
	}

	solved := true
	open := []NodeID{id}
	closed := []NodeID{}
	seen := map[NodeID]bool{id: true}
	for len(open) > 0 {
		current := open[len(open)-1]
		open = open[:len(open)-1]
		closed = append(closed, current)

		c.expand(current)
		n := c.graph.at(current)
		if n.terminal() {
			c.update(current)
			continue
		}
		best, residual := greedyResidual(c, n)
		if residual > epsilon || n.width() > epsilon {
			solved = false
			continue
		}
		for _, child := range n.actions[best].children {
			if !seen[child] && !c.graph.at(child).solvedFor(epsilon) {
				seen[child] = true
				open = append(open, child)
			}
		}
	}

	if solved {
		for _, done := range closed {
			n := c.graph.at(done)
			n.solvedAt = math.Min(n.solvedAt, epsilon)
		}
		return true
	}

	for i := len(closed) - 1; i >= 0; i-- {
		c.update(closed[i])
	}
	return false
}

// greedyResidual returns the action with the best upper bound at n and how far
// a backup would move n's upper bound, without changing n.
func greedyResidual(c *Core, n *node) (int, float64) {
	discount := c.problem.Discount()
	best, bestQ := -1, math.Inf(-1)
	for i := range n.actions {
		e := &n.actions[i]
		q := e.reward + discount*floats.Dot(e.probs, c.childBounds(e.children, false))
		if q > bestQ {
			best, bestQ = i, q
		}
	}
	return best, math.Abs(n.upper - math.Min(n.upper, bestQ))
}
