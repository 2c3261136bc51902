package searcher

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rtdp/bound"
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/timing"
)

/*
- before PlanInit: every query panics
- planning: converges on acyclic and cyclic problems for every strategy, stays sound
- budget: polling stops after the budget, an unbounded budget still converges,
  snapshots and metrics follow planning time on the injected clock
- queries: ValueAt is idempotent and never inserts, terminal states have no action
- backups: bounds only tighten, even with inadmissible seeds
*/

func strategies(t *testing.T) []Strategy {
	t.Helper()
	all := []Strategy{}
	for _, name := range StrategyNames() {
		strategy, err := ParseStrategy(name, 0, 0)
		require.NoError(t, err)
		all = append(all, strategy)
	}
	return all
}

func ladderCore(t *testing.T, strategy Strategy, l ladder, options ...Option) *Core {
	t.Helper()
	lower, upper, err := bound.Discounted(-1, 0, l.discount)
	require.NoError(t, err)
	c := New(strategy, lower, upper, append([]Option{WithSeed(42)}, options...)...)
	c.PlanInit(l)
	return c
}

func TestCoreBeforePlanInit(t *testing.T) {
	c := New(NewRTDP(), bound.Constant(0), bound.Constant(1))
	s := mdp.State{0}

	require.Panics(t, func() { c.ChooseAction(s) }, "Should fail loudly before PlanInit")
	require.Panics(t, func() { c.ValueAt(s) }, "Should fail loudly before PlanInit")
	require.Panics(t, func() { c.PlanFixedTime(s, 1, 0) }, "Should fail loudly before PlanInit")
	require.Panics(t, func() { c.QValues(s) }, "Should fail loudly before PlanInit")
}

func TestNewPanicsOnMissingParts(t *testing.T) {
	require.Panics(t, func() { New(nil, bound.Constant(0), bound.Constant(1)) })
	require.Panics(t, func() { New(NewRTDP(), nil, bound.Constant(1)) })
	require.Panics(t, func() { New(NewRTDP(), bound.Constant(0), bound.Constant(1)).PlanInit(nil) })
}

func TestCorePlanFixedTime(t *testing.T) {
	for _, strategy := range strategies(t) {
		t.Run(strategy.String()+" converges on a stochastic ladder", func(t *testing.T) {
			l := ladder{size: 10, discount: 0.95}
			optimal := l.optimal()
			c := ladderCore(t, strategy, l)

			converged := c.PlanFixedTime(mdp.State{0}, 30, 1e-4)

			value := c.ValueAt(mdp.State{0})
			require.True(t, converged, "Should meet the precision target well within the budget")
			require.LessOrEqual(t, value.Width(), 1e-4)
			require.True(t, value.Contains(optimal[0]), "Root interval %v should contain %g", value, optimal[0])
			require.Equal(t, jump, c.ChooseAction(mdp.State{0}), "Jumping is optimal from the bottom")
		})

		t.Run(strategy.String()+" converges through a self loop", func(t *testing.T) {
			lower, upper, err := bound.Discounted(0, 1, 0.9)
			require.NoError(t, err)
			c := New(strategy, lower, upper, WithSeed(7))
			c.PlanInit(selfLoop{discount: 0.9})

			converged := c.PlanFixedTime(mdp.State{0}, 30, 1e-3)

			value := c.ValueAt(mdp.State{0})
			require.True(t, converged)
			require.InDelta(t, 10.0, value.Upper, 1e-3)
			require.InDelta(t, 10.0, value.Lower, 1e-3)
			require.Equal(t, stay, c.ChooseAction(mdp.State{0}), "Staying forever pays the most")
		})

		t.Run(strategy.String()+" stays sound after every trial", func(t *testing.T) {
			l := ladder{size: 8, discount: 0.9}
			optimal := l.optimal()
			c := ladderCore(t, strategy, l)
			root := c.getNode(mdp.State{0})

			for trial := 0; trial < 30; trial++ {
				strategy.doTrial(c, root, 0)
				for id := 0; id < c.graph.len(); id++ {
					n := c.graph.at(NodeID(id))
					want := optimal[int(n.state[0])]
					require.LessOrEqual(t, n.lower, want+1e-9, "Lower bound should never pass the optimum")
					require.GreaterOrEqual(t, n.upper, want-1e-9, "Upper bound should never pass the optimum")
				}
			}
		})

		t.Run(strategy.String()+" only tightens bounds", func(t *testing.T) {
			// The upper seed is not admissible so backups keep trying to widen it
			c := New(strategy, bound.Constant(-30), bound.Constant(-2), WithSeed(3))
			c.PlanInit(ladder{size: 10, discount: 0.95})
			root := c.getNode(mdp.State{0})
			previous := map[NodeID]mdp.ValueInterval{}

			for trial := 0; trial < 50; trial++ {
				strategy.doTrial(c, root, -1)
				for id := 0; id < c.graph.len(); id++ {
					current := c.graph.at(NodeID(id)).interval()
					if before, ok := previous[NodeID(id)]; ok {
						require.GreaterOrEqual(t, current.Lower, before.Lower, "Lower bound should never decrease")
						require.LessOrEqual(t, current.Upper, before.Upper, "Upper bound should never increase")
					}
					previous[NodeID(id)] = current
				}
			}
		})
	}
}

func TestCoreBudget(t *testing.T) {
	t.Run("polling stops once the budget has elapsed", func(t *testing.T) {
		clock := timing.NewFakeClock(time.Unix(0, 0))
		clock.Step = 10 * time.Millisecond
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95}, WithClock(clock))

		converged := c.PlanFixedTime(mdp.State{0}, 0.1, -1)

		require.False(t, converged, "An unreachable precision should report false")
		require.Equal(t, 9, c.Stats().Trials, "Should run one trial per poll below the budget")
	})

	t.Run("an unbounded budget plans until converged", func(t *testing.T) {
		for _, budget := range []float64{math.Inf(1), 1e10} {
			c := ladderCore(t, NewLRTDP(), ladder{size: 10, discount: 0.95})

			converged := c.PlanFixedTime(mdp.State{0}, budget, 1e-4)

			require.True(t, converged, "A budget of %g should not end planning early", budget)
			require.LessOrEqual(t, c.ValueAt(mdp.State{0}).Width(), 1e-4)
			require.Positive(t, c.Stats().Trials)
		}
	})

	t.Run("metrics report time on the injected clock", func(t *testing.T) {
		clock := timing.NewFakeClock(time.Unix(0, 0))
		clock.Step = 10 * time.Millisecond
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95},
			WithClock(clock), WithCollector(metrics.NewCollector()))

		c.PlanFixedTime(mdp.State{0}, 0.1, -1)

		require.Equal(t, 110*time.Millisecond, c.LastMetric().Duration,
			"Should count nine polls below the budget, the poll that ends it and the final reading")
	})

	t.Run("a zero budget runs no trials", func(t *testing.T) {
		c := ladderCore(t, NewLRTDP(), ladder{size: 10, discount: 0.95})

		converged := c.PlanFixedTime(mdp.State{0}, 0, 1e-6)

		require.False(t, converged)
		require.Equal(t, 0, c.Stats().Trials)
		require.Equal(t, 1, c.Stats().StatesTouched, "Only the root should be cached")
	})

	t.Run("snapshots follow accumulated planning time", func(t *testing.T) {
		clock := timing.NewFakeClock(time.Unix(0, 0))
		clock.Step = 10 * time.Millisecond
		sink := &recordingSink{}
		c := ladderCore(t, NewBRTDP(DefaultTau), ladder{size: 10, discount: 0.95},
			WithClock(clock), WithPrintInterval(30*time.Millisecond))
		c.SetBoundsFile(sink)

		c.PlanFixedTime(mdp.State{0}, 0.1, -1)
		c.PlanFixedTime(mdp.State{0}, 0.1, -1)

		ms := time.Millisecond
		require.Equal(t, []time.Duration{
			0, 30 * ms, 60 * ms, 90 * ms, 110 * ms,
			110 * ms, 140 * ms, 170 * ms, 200 * ms, 220 * ms,
		}, sink.elapsed())
		last := sink.snapshots[len(sink.snapshots)-1]
		require.Equal(t, c.Session(), last.Session)
		require.Equal(t, c.Stats().Trials, last.Trials)
		require.Equal(t, c.ValueAt(mdp.State{0}), mdp.ValueInterval{Lower: last.Lower, Upper: last.Upper})
	})
}

func TestCoreQueries(t *testing.T) {
	t.Run("value of an unvisited state is its seed and is not cached", func(t *testing.T) {
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95})

		first := c.ValueAt(mdp.State{3})
		second := c.ValueAt(mdp.State{3})

		require.Equal(t, mdp.ValueInterval{Lower: -20, Upper: 0}, first)
		require.Equal(t, first, second, "Repeated queries should be identical")
		require.Equal(t, 0, c.Stats().StatesTouched, "ValueAt should never insert")
	})

	t.Run("value of a planned state is repeatable", func(t *testing.T) {
		c := ladderCore(t, NewLRTDP(), ladder{size: 10, discount: 0.95})
		c.PlanFixedTime(mdp.State{0}, 1, 0.5)

		first := c.ValueAt(mdp.State{0})
		second := c.ValueAt(mdp.State{0})

		require.Equal(t, first, second)
	})

	t.Run("terminal states have no action and zero value", func(t *testing.T) {
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95})

		action := c.ChooseAction(mdp.State{10})

		require.Equal(t, mdp.NoAction, action)
		require.Equal(t, mdp.ValueInterval{}, c.ValueAt(mdp.State{10}))
		require.Empty(t, c.QValues(mdp.State{10}))
		require.True(t, c.PlanFixedTime(mdp.State{10}, 1, 0), "A terminal root should converge at once")
	})

	t.Run("q values cover every action", func(t *testing.T) {
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95})
		c.PlanFixedTime(mdp.State{0}, 30, 1e-4)

		values := c.QValues(mdp.State{0})

		require.Len(t, values, 2)
		require.Equal(t, walk, values[0].Action)
		require.Equal(t, jump, values[1].Action)
		require.Greater(t, values[1].Value.Lower, values[0].Value.Upper, "Jumping should dominate walking")
	})

	t.Run("a new session forgets the cache", func(t *testing.T) {
		c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95})
		c.PlanFixedTime(mdp.State{0}, 1, 0.5)
		session := c.Session()

		c.PlanInit(ladder{size: 10, discount: 0.95})

		require.NotEqual(t, session, c.Session())
		require.Equal(t, Stats{}, c.Stats())
	})
}

func TestCoreMetrics(t *testing.T) {
	c := ladderCore(t, NewRTDP(), ladder{size: 10, discount: 0.95}, WithCollector(metrics.NewCollector()))

	c.PlanFixedTime(mdp.State{0}, 30, 1e-4)
	first := c.LastMetric()
	c.PlanFixedTime(mdp.State{0}, 30, 1e-6)
	second := c.LastMetric()

	require.Equal(t, "rtdp", first.Strategy)
	require.False(t, first.CacheReused, "The first call should start from an empty cache")
	require.True(t, first.Converged)
	require.Positive(t, first.Trials)
	require.Equal(t, 11, first.Expansions, "Every cell should be expanded once")
	require.True(t, second.CacheReused, "The second call should find the root cached")
	require.Equal(t, c.Stats().Trials, first.Trials+second.Trials)
	require.Equal(t, c.ValueAt(mdp.State{0}), second.Interval())
}

func TestParseStrategy(t *testing.T) {
	for _, name := range StrategyNames() {
		strategy, err := ParseStrategy(name, 5, 10)
		require.NoError(t, err)
		require.Equal(t, name, strategy.String())
	}

	_, err := ParseStrategy("value-iteration", 0, 0)
	require.Error(t, err, "Should reject unknown strategies")
	require.Equal(t, true, NewBRTDP(10).useLowerBound())
	require.Equal(t, false, NewLRTDP().useLowerBound())
}
