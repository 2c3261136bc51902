package searcher

import "math"

type prioritized struct {
	tau        float64
	maxBackups int
}

// NewPrioritized runs a deterministic forward trajectory towards the
// successor with the largest probability-weighted gap, then spends up to
// maxBackups backups on the states whose successors changed the most.
// Pending backups carry over between trials.
func NewPrioritized(tau float64, maxBackups int) Strategy {
	if tau <= 0 || maxBackups <= 0 {
		panic("searcher: prioritized needs positive tau and maxBackups")
	}
	return &prioritized{tau: tau, maxBackups: maxBackups}
}

func (p *prioritized) String() string {
	return "prioritized"
}

func (p *prioritized) useLowerBound() bool {
	return true
}

// updateInternal schedules the parents of a node whose bounds moved, with
// priority equal to the discounted change.
func (p *prioritized) updateInternal(c *Core, id NodeID) int {
	best, delta := c.backup(id)
	c.backlog.Erase(id)
	if delta <= 0 {
		return best
	}

	priority := delta * c.problem.Discount()
	for _, parent := range c.graph.at(id).parents {
		if current, ok := c.backlog.Priority(parent); !ok || priority > current {
			c.backlog.SetPriority(parent, priority)
		}
	}
	return best
}

func (p *prioritized) doTrial(c *Core, root NodeID, pTarget float64) {
	threshold := c.graph.at(root).width() / p.tau
	id := root
	depth := 0
	for ; depth < c.maxDepth; depth++ {
		n := c.visit(id)
		c.update(id)
		if n.terminal() || n.width() <= pTarget {
			break
		}

		edge := &n.actions[greedyUpper(n)]
		next, total := widestSuccessor(c, edge)
		if next == noNode || total < threshold {
			break
		}
		id = next
	}

	// The frontier state seeds the sweep in case nothing was scheduled
	c.backlog.SetPriority(id, math.Max(c.graph.at(id).width(), priorityOf(c, id)))
	p.sweep(c)
	c.update(root)

	c.logger.Trace().
		Int("depth", depth).
		Int("pending", c.backlog.Len()).
		Stringer("root", c.graph.at(root).interval()).
		Msg("prioritized trial")
}

// sweep backs up the highest-priority pending states, at most maxBackups of
// them, and returns how many it backed up.
func (p *prioritized) sweep(c *Core) int {
	backups := 0
	for ; backups < p.maxBackups && !c.backlog.Empty(); backups++ {
		c.update(c.backlog.Top())
	}
	return backups
}

func priorityOf(c *Core, id NodeID) float64 {
	priority, _ := c.backlog.Priority(id)
	return priority
}

// widestSuccessor returns the successor of e with the largest p*gap along
// with the sum of p*gap over all successors.
func widestSuccessor(c *Core, e *actionEdge) (NodeID, float64) {
	best, bestScore, total := noNode, 0.0, 0.0
	for i, child := range e.children {
		score := e.probs[i] * c.graph.at(child).width()
		total += score
		if score > bestScore {
			best, bestScore = child, score
		}
	}
	return best, total
}
