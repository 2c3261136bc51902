package searcher

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"

	"rtdp/mdp"
)

// graph owns every node of a planning session. Nodes enter only through
// getOrCreate, so each distinct state has exactly one NodeID.
type graph struct {
	nodes   []*node
	buckets map[uint64][]NodeID
	lower   mdp.Bound
	upper   mdp.Bound
	scratch []byte
}

func newGraph(lower, upper mdp.Bound) *graph {
	return &graph{
		buckets: make(map[uint64][]NodeID),
		lower:   lower,
		upper:   upper,
	}
}

func (g *graph) at(id NodeID) *node {
	return g.nodes[id]
}

func (g *graph) len() int {
	return len(g.nodes)
}

// lookup finds the node for s without creating one.
func (g *graph) lookup(s mdp.State) (NodeID, bool) {
	for _, id := range g.buckets[g.hash(s)] {
		if sameState(g.nodes[id].state, s) {
			return id, true
		}
	}
	return noNode, false
}

// getOrCreate returns the node for s, seeding a new one from the bound
// providers. The caller's slice is copied.
func (g *graph) getOrCreate(s mdp.State) (NodeID, bool) {
	h := g.hash(s)
	for _, id := range g.buckets[h] {
		if sameState(g.nodes[id].state, s) {
			return id, false
		}
	}

	state := s.Clone()
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, newNode(state, g.lower.Value(state), g.upper.Value(state)))
	g.buckets[h] = append(g.buckets[h], id)
	return id, true
}

func (g *graph) hash(s mdp.State) uint64 {
	g.scratch = g.scratch[:0]
	for _, v := range s {
		g.scratch = binary.LittleEndian.AppendUint64(g.scratch, canonicalBits(v))
	}
	return xxh3.Hash(g.scratch)
}

// canonicalBits maps -0 onto +0 so numerically equal states hash alike.
func canonicalBits(v float64) uint64 {
	if v == 0 {
		return 0
	}
	return math.Float64bits(v)
}

func sameState(a, b mdp.State) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return canonicalBits(x) == canonicalBits(y)
	})
}
