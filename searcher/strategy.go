package searcher

import (
	"fmt"
	"strings"
)

// Strategy is the policy a Core runs its trials with. The set of strategies
// is closed: use NewRTDP, NewLRTDP, NewBRTDP or NewPrioritized.
type Strategy interface {
	fmt.Stringer
	// useLowerBound reports whether actions are ranked by their lower bound
	// instead of their upper bound.
	useLowerBound() bool
	updateInternal(c *Core, id NodeID) int
	doTrial(c *Core, root NodeID, pTarget float64)
}

const (
	DefaultTau        = 10.0
	DefaultMaxBackups = 100
)

// ParseStrategy builds a strategy by name. tau only affects brtdp and
// prioritized, maxBackups only prioritized; non-positive values take defaults.
func ParseStrategy(name string, tau float64, maxBackups int) (Strategy, error) {
	if tau <= 0 {
		tau = DefaultTau
	}
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	switch strings.ToLower(name) {
	case "rtdp":
		return NewRTDP(), nil
	case "lrtdp":
		return NewLRTDP(), nil
	case "brtdp":
		return NewBRTDP(tau), nil
	case "prioritized":
		return NewPrioritized(tau, maxBackups), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// StrategyNames lists the names ParseStrategy accepts.
func StrategyNames() []string {
	return []string{"rtdp", "lrtdp", "brtdp", "prioritized"}
}
