package searcher

type brtdp struct {
	tau float64
}

// NewBRTDP follows the action with the best upper bound and samples each
// successor in proportion to its probability times its bound gap. A trial
// ends when that expected gap falls below the root's gap divided by tau.
func NewBRTDP(tau float64) Strategy {
	if tau <= 0 {
		panic("searcher: brtdp tau must be positive")
	}
	return &brtdp{tau: tau}
}

func (b *brtdp) String() string {
	return "brtdp"
}

func (b *brtdp) useLowerBound() bool {
	return true
}

func (b *brtdp) updateInternal(c *Core, id NodeID) int {
	best, _ := c.backup(id)
	return best
}

func (b *brtdp) doTrial(c *Core, root NodeID, pTarget float64) {
	threshold := c.graph.at(root).width() / b.tau
	path := c.path[:0]
	id := root
	for depth := 0; depth < c.maxDepth; depth++ {
		n := c.visit(id)
		path = append(path, id)
		c.update(id)
		if n.terminal() {
			break
		}

		// The trajectory follows the optimistic action even though actions
		// are reported by their lower bound.
		edge := &n.actions[greedyUpper(n)]
		next, total := b.sampleByGap(c, edge)
		if next == noNode || total < threshold {
			break
		}
		id = next
	}

	for i := len(path) - 1; i >= 0; i-- {
		c.update(path[i])
	}
	c.path = path

	c.logger.Trace().Int("depth", len(path)).Stringer("root", c.graph.at(root).interval()).Msg("brtdp trial")
}

// sampleByGap draws a successor with probability proportional to p*gap and
// returns the normalizer.
func (b *brtdp) sampleByGap(c *Core, e *actionEdge) (NodeID, float64) {
	c.scratch = c.scratch[:0]
	total := 0.0
	for i, child := range e.children {
		score := e.probs[i] * c.graph.at(child).width()
		c.scratch = append(c.scratch, score)
		total += score
	}
	if total <= 0 {
		return noNode, 0
	}

	x := c.rng.Float64() * total
	for i, score := range c.scratch {
		x -= score
		if x < 0 {
			return e.children[i], total
		}
	}
	return e.children[len(e.children)-1], total
}

// greedyUpper returns the action edge with the largest cached upper Q.
func greedyUpper(n *node) int {
	best := 0
	for i := 1; i < len(n.actions); i++ {
		if n.actions[i].qUpper > n.actions[best].qUpper {
			best = i
		}
	}
	return best
}
