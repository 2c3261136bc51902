package metrics

import (
	"sync/atomic"
	"time"

	"rtdp/mdp"
)

// SearchMetric summarizes one planning call.
type SearchMetric struct {
	Strategy    string
	Duration    time.Duration
	Trials      int
	Backups     int
	Expansions  int
	CacheReused bool // root state was already cached when planning started
	Converged   bool
	Lower       float64
	Upper       float64
}

func (m SearchMetric) Interval() mdp.ValueInterval {
	return mdp.ValueInterval{Lower: m.Lower, Upper: m.Upper}
}

type Collector interface {
	Start(strategy string)
	SetCacheReused(value bool)
	AddTrial()
	AddBackup()
	AddExpansion()
	// Complete closes the planning call that took elapsed on the planner's clock.
	Complete(converged bool, root mdp.ValueInterval, elapsed time.Duration) SearchMetric
}

type collector struct {
	strategy    string
	trials      atomic.Int64
	backups     atomic.Int64
	expansions  atomic.Int64
	cacheReused atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(strategy string) {
	m.strategy = strategy
	m.trials.Store(0)
	m.backups.Store(0)
	m.expansions.Store(0)
	m.cacheReused.Store(false)
}

func (m *collector) SetCacheReused(value bool) {
	m.cacheReused.Store(value)
}

func (m *collector) AddTrial() {
	m.trials.Add(1)
}

func (m *collector) AddBackup() {
	m.backups.Add(1)
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) Complete(converged bool, root mdp.ValueInterval, elapsed time.Duration) SearchMetric {
	return SearchMetric{
		Strategy:    m.strategy,
		Duration:    elapsed,
		Trials:      int(m.trials.Load()),
		Backups:     int(m.backups.Load()),
		Expansions:  int(m.expansions.Load()),
		CacheReused: m.cacheReused.Load(),
		Converged:   converged,
		Lower:       root.Lower,
		Upper:       root.Upper,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(strategy string)     {}
func (m *dummyCollector) SetCacheReused(value bool) {}
func (m *dummyCollector) AddTrial()                 {}
func (m *dummyCollector) AddBackup()                {}
func (m *dummyCollector) AddExpansion()             {}
func (m *dummyCollector) Complete(converged bool, root mdp.ValueInterval, elapsed time.Duration) SearchMetric {
	return SearchMetric{Duration: elapsed, Converged: converged, Lower: root.Lower, Upper: root.Upper}
}
