package searcher

type rtdp struct{}

// NewRTDP follows the action with the best upper bound and samples
// successors by probability. A trial stops at a terminal state, at the depth
// limit, or at a state whose interval is already narrower than the target.
func NewRTDP() Strategy {
	return rtdp{}
}

func (rtdp) String() string {
	return "rtdp"
}

func (rtdp) useLowerBound() bool {
	return false
}

func (rtdp) updateInternal(c *Core, id NodeID) int {
	best, _ := c.backup(id)
	return best
}

func (rtdp) doTrial(c *Core, root NodeID, pTarget float64) {
	path := c.path[:0]
	id := root
	for depth := 0; depth < c.maxDepth && id != noNode; depth++ {
		n := c.visit(id)
		if n.width() <= pTarget {
			break
		}
		best := c.update(id)
		if best < 0 {
			break
		}
		path = append(path, id)
		id = c.sampleOutcome(&n.actions[best])
	}

	for i := len(path) - 1; i >= 0; i-- {
		c.update(path[i])
	}
	c.path = path

	c.logger.Trace().Int("depth", len(path)).Stringer("root", c.graph.at(root).interval()).Msg("rtdp trial")
}
