package searcher

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"

	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/pqueue"
	"rtdp/timing"
)

const (
	MaxDepth             = 1000
	DefaultPrintInterval = 100 * time.Millisecond
)

type Option func(c *Core)

// Stats counts the work done in the current planning session.
type Stats struct {
	StatesTouched  int
	StatesExpanded int
	Trials         int
	Backups        int
}

// ActionValue is the value interval of taking Action and acting optimally after.
type ActionValue struct {
	Action mdp.Action
	Value  mdp.ValueInterval
}

// Core caches reachable states with value bounds and tightens those bounds
// by running the trials of its Strategy. All exported methods serialize on
// a single lock.
type Core struct {
	mu sync.Mutex

	strategy      Strategy
	lowerBound    mdp.Bound
	upperBound    mdp.Bound
	clock         timing.Clock
	baseLogger    zerolog.Logger
	logger        zerolog.Logger
	maxDepth      int
	printInterval time.Duration
	collector     metrics.Collector
	seed          uint64
	rng           *rand.Rand

	problem     mdp.Problem
	graph       *graph
	backlog     *pqueue.Queue[NodeID, float64]
	session     string
	initialized bool
	stats       Stats
	lastMetric  metrics.SearchMetric

	boundsFile metrics.BoundsWriter
	elapsed    time.Duration // planning time summed over calls
	lastPrint  time.Duration
	root       NodeID

	path    []NodeID
	scratch []float64
}

func WithClock(clock timing.Clock) Option {
	return func(c *Core) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Core) {
		c.baseLogger = logger
	}
}

func WithMaxDepth(depth int) Option {
	return func(c *Core) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

func WithPrintInterval(interval time.Duration) Option {
	return func(c *Core) {
		if interval > 0 {
			c.printInterval = interval
		}
	}
}

func WithCollector(collector metrics.Collector) Option {
	return func(c *Core) {
		if collector != nil {
			c.collector = collector
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(c *Core) {
		c.seed = seed
	}
}

func New(strategy Strategy, lower, upper mdp.Bound, options ...Option) *Core {
	if strategy == nil {
		panic("searcher: nil strategy")
	}
	if lower == nil || upper == nil {
		panic("searcher: nil bound provider")
	}

	c := &Core{ // Default values
		strategy:      strategy,
		lowerBound:    lower,
		upperBound:    upper,
		clock:         timing.WallClock(),
		baseLogger:    log.Logger,
		maxDepth:      MaxDepth,
		printInterval: DefaultPrintInterval,
		collector:     metrics.NewDummyCollector(),
		seed:          uint64(time.Now().UnixNano()),
		root:          noNode,
	}
	for _, option := range options {
		option(c)
	}
	c.rng = rand.New(rand.NewSource(c.seed))
	c.logger = c.baseLogger
	return c
}

// PlanInit binds the problem and starts a fresh session with an empty cache.
func (c *Core) PlanInit(problem mdp.Problem) {
	if problem == nil {
		panic("searcher: PlanInit called with nil problem")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.problem = problem
	c.graph = newGraph(c.lowerBound, c.upperBound)
	c.backlog = pqueue.NewMax[NodeID, float64]()
	c.session = uuid.NewString()
	c.logger = c.baseLogger.With().Str("session", c.session).Logger()
	c.stats = Stats{}
	c.lastMetric = metrics.SearchMetric{}
	c.elapsed = 0
	c.lastPrint = 0
	c.root = noNode
	c.rng.Seed(c.seed)
	c.initialized = true

	c.logger.Debug().Stringer("strategy", c.strategy).Msg("planning session initialized")
}

// PlanFixedTime runs trials from s until the width of its value interval is at
// most minPrecision or maxTimeSeconds of planning have elapsed. It reports
// whether the precision target was met. The budget is checked between trials,
// so one long trial can overrun it.
func (c *Core) PlanFixedTime(s mdp.State, maxTimeSeconds, minPrecision float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeInitialized("PlanFixedTime")

	_, cached := c.graph.lookup(s)
	c.collector.Start(c.strategy.String())
	c.collector.SetCacheReused(cached)

	budget := timing.Seconds(maxTimeSeconds)
	watch := timing.NewStopwatch(c.clock)
	c.root = c.getNode(s)
	root := c.graph.at(c.root)
	c.logger.Debug().
		Stringer("root", root.interval()).
		Float64("budget", maxTimeSeconds).
		Float64("precision", minPrecision).
		Msg("planning started")
	c.writeSnapshot(c.elapsed)

	converged := false
	trials := 0
	for {
		if root.width() <= minPrecision {
			converged = true
			break
		}
		if root.solvedFor(minPrecision) {
			converged = root.width() <= minPrecision
			break
		}
		elapsed := watch.Elapsed()
		if elapsed >= budget {
			break
		}
		if c.elapsed+elapsed-c.lastPrint >= c.printInterval {
			c.writeSnapshot(c.elapsed + elapsed)
		}

		c.strategy.doTrial(c, c.root, minPrecision)
		c.stats.Trials++
		c.collector.AddTrial()
		trials++
	}

	spent := watch.Elapsed()
	c.elapsed += spent
	c.writeSnapshot(c.elapsed)
	c.lastMetric = c.collector.Complete(converged, root.interval(), spent)
	c.logger.Debug().
		Stringer("root", root.interval()).
		Int("trials", trials).
		Bool("converged", converged).
		Msg("planning finished")
	return converged
}

// ChooseAction returns the best action at s by the strategy's bound, or
// mdp.NoAction if s is terminal. It backs up s once but runs no trials.
func (c *Core) ChooseAction(s mdp.State) mdp.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeInitialized("ChooseAction")

	id := c.getNode(s)
	best := c.update(id)
	if best < 0 {
		return mdp.NoAction
	}
	return c.graph.at(id).actions[best].action
}

// ValueAt returns the current interval at s. An unvisited state reports the
// bound providers' seeds and is not added to the cache.
func (c *Core) ValueAt(s mdp.State) mdp.ValueInterval {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeInitialized("ValueAt")

	if id, ok := c.graph.lookup(s); ok {
		return c.graph.at(id).interval()
	}
	return mdp.ValueInterval{Lower: c.lowerBound.Value(s), Upper: c.upperBound.Value(s)}
}

// QValues backs up s and returns the interval of every applicable action.
func (c *Core) QValues(s mdp.State) []ActionValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeInitialized("QValues")

	id := c.getNode(s)
	c.update(id)
	n := c.graph.at(id)
	values := make([]ActionValue, len(n.actions))
	for i := range n.actions {
		values[i] = ActionValue{Action: n.actions[i].action, Value: n.actions[i].interval()}
	}
	return values
}

// SetBoundsFile installs a sink for periodic progress snapshots. Pass nil to
// stop reporting. The sink is not closed by the Core.
func (c *Core) SetBoundsFile(sink metrics.BoundsWriter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.boundsFile = sink
}

func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	if c.graph != nil {
		stats.StatesTouched = c.graph.len()
	}
	return stats
}

func (c *Core) LastMetric() metrics.SearchMetric {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastMetric
}

func (c *Core) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

func (c *Core) Strategy() Strategy {
	return c.strategy
}

func (c *Core) mustBeInitialized(op string) {
	if !c.initialized {
		panic(fmt.Sprintf("searcher: %s called before PlanInit", op))
	}
}

func (c *Core) getNode(s mdp.State) NodeID {
	id, _ := c.graph.getOrCreate(s)
	return id
}

func (c *Core) visit(id NodeID) *node {
	n := c.graph.at(id)
	n.visits++
	return n
}

// expand materializes the actions and successors of id once. Outcomes of
// one action that lead to the same state are merged.
func (c *Core) expand(id NodeID) {
	n := c.graph.at(id)
	if n.expanded {
		return
	}

	actions := c.problem.Actions(n.state)
	n.actions = make([]actionEdge, 0, len(actions))
	for _, a := range actions {
		edge := actionEdge{action: a, qLower: n.lower, qUpper: n.upper}
		for _, outcome := range c.problem.Outcomes(n.state, a) {
			edge.reward += outcome.Prob * outcome.Reward
			child := c.getNode(outcome.Next)
			if i := slices.Index(edge.children, child); i >= 0 {
				edge.probs[i] += outcome.Prob
				continue
			}
			edge.children = append(edge.children, child)
			edge.probs = append(edge.probs, outcome.Prob)
			c.graph.at(child).addParent(id)
		}
		n.actions = append(n.actions, edge)
	}

	n.expanded = true
	n.expansions++
	c.stats.StatesExpanded++
	c.collector.AddExpansion()
	c.logger.Trace().Int32("node", int32(id)).Int("actions", len(n.actions)).Msg("expanded")
}

// update backs up id through the strategy and returns the index of the best
// action edge, or -1 at a terminal state.
func (c *Core) update(id NodeID) int {
	c.expand(id)
	c.stats.Backups++
	c.collector.AddBackup()
	return c.strategy.updateInternal(c, id)
}

// backup recomputes the bounds of id from its successors. Bounds only ever
// tighten: lower never decreases and upper never increases. It returns the
// best action edge by the strategy's bound and how far the bounds moved.
func (c *Core) backup(id NodeID) (best int, delta float64) {
	n := c.graph.at(id)
	oldLower, oldUpper := n.lower, n.upper

	if len(n.actions) == 0 {
		c.tighten(id, n, 0, 0)
		return -1, (n.lower - oldLower) + (oldUpper - n.upper)
	}

	discount := c.problem.Discount()
	useLower := c.strategy.useLowerBound()
	lower, upper := math.Inf(-1), math.Inf(-1)
	best, bestQ := -1, math.Inf(-1)
	for i := range n.actions {
		e := &n.actions[i]
		e.qLower = e.reward + discount*floats.Dot(e.probs, c.childBounds(e.children, true))
		e.qUpper = e.reward + discount*floats.Dot(e.probs, c.childBounds(e.children, false))
		lower = math.Max(lower, e.qLower)
		upper = math.Max(upper, e.qUpper)

		q := e.qUpper
		if useLower {
			q = e.qLower
		}
		if q > bestQ {
			best, bestQ = i, q
		}
	}

	c.tighten(id, n, lower, upper)
	return best, (n.lower - oldLower) + (oldUpper - n.upper)
}

func (c *Core) tighten(id NodeID, n *node, lower, upper float64) {
	if lower < n.lower || upper > n.upper {
		c.logger.Debug().
			Int32("node", int32(id)).
			Stringer("current", n.interval()).
			Stringer("backup", mdp.ValueInterval{Lower: lower, Upper: upper}).
			Msg("backup would widen bounds, clamping")
	}
	n.lower = math.Max(n.lower, lower)
	n.upper = math.Min(n.upper, upper)
}

// childBounds fills the scratch buffer with the lower or upper bound of each child.
func (c *Core) childBounds(children []NodeID, lower bool) []float64 {
	c.scratch = c.scratch[:0]
	for _, child := range children {
		n := c.graph.at(child)
		if lower {
			c.scratch = append(c.scratch, n.lower)
		} else {
			c.scratch = append(c.scratch, n.upper)
		}
	}
	return c.scratch
}

// sampleOutcome draws a successor of e by transition probability.
func (c *Core) sampleOutcome(e *actionEdge) NodeID {
	if len(e.children) == 0 {
		return noNode
	}
	x := c.rng.Float64()
	for i, p := range e.probs {
		x -= p
		if x < 0 {
			return e.children[i]
		}
	}
	return e.children[len(e.children)-1]
}

func (c *Core) writeSnapshot(elapsed time.Duration) {
	c.lastPrint = elapsed
	if c.boundsFile == nil || c.root == noNode {
		return
	}

	root := c.graph.at(c.root)
	err := c.boundsFile.WriteSnapshot(metrics.Snapshot{
		Session:        c.session,
		Elapsed:        elapsed,
		StatesTouched:  c.graph.len(),
		StatesExpanded: c.stats.StatesExpanded,
		Trials:         c.stats.Trials,
		Backups:        c.stats.Backups,
		Lower:          root.lower,
		Upper:          root.upper,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to write bounds snapshot")
	}
}
