package searcher

import (
	"math"

	"golang.org/x/exp/slices"

	"rtdp/mdp"
)

// NodeID addresses a node in the graph arena. IDs are stable for the life of
// a planning session.
type NodeID int32

const noNode NodeID = -1

type actionEdge struct {
	action   mdp.Action
	reward   float64 // expected immediate reward
	probs    []float64
	children []NodeID
	qLower   float64
	qUpper   float64
}

func (e *actionEdge) interval() mdp.ValueInterval {
	return mdp.ValueInterval{Lower: e.qLower, Upper: e.qUpper}
}

type node struct {
	state      mdp.State
	lower      float64
	upper      float64
	actions    []actionEdge
	parents    []NodeID
	visits     int
	expansions int
	expanded   bool
	// smallest precision the node was labelled solved at, +Inf while unsolved
	solvedAt float64
}

func newNode(state mdp.State, lower, upper float64) *node {
	return &node{
		state:    state,
		lower:    lower,
		upper:    upper,
		solvedAt: math.Inf(1),
	}
}

func (n *node) interval() mdp.ValueInterval {
	return mdp.ValueInterval{Lower: n.lower, Upper: n.upper}
}

func (n *node) width() float64 {
	return n.upper - n.lower
}

func (n *node) terminal() bool {
	return n.expanded && len(n.actions) == 0
}

func (n *node) solvedFor(precision float64) bool {
	return n.solvedAt <= precision
}

func (n *node) addParent(id NodeID) {
	if !slices.Contains(n.parents, id) {
		n.parents = append(n.parents, id)
	}
}
