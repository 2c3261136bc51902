package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rtdp/mdp"
)

func TestParseTabular(t *testing.T) {
	t.Run("loading a valid chain", func(t *testing.T) {
		m, err := LoadTabular("testdata/chain.yaml")
		require.NoError(t, err)

		start := m.InitialState()
		done, ok := m.State("done")
		require.True(t, ok)

		require.Equal(t, mdp.State{0}, start)
		require.Equal(t, 0.9, m.Discount())
		require.Equal(t, []mdp.Action{0, 1}, m.Actions(start))
		require.Equal(t, "risky", m.ActionName(1))
		require.Empty(t, m.Actions(done), "A state without actions should be terminal")
		require.Equal(t, []mdp.Outcome{
			{Prob: 0.5, Next: done, Reward: 4},
			{Prob: 0.5, Next: start, Reward: -1},
		}, m.Outcomes(start, 1))
		require.Equal(t, "start", m.StateName(start))

		min, max := m.RewardRange()
		require.Equal(t, -1.0, min)
		require.Equal(t, 4.0, max)
	})

	t.Run("action ids are shared across states", func(t *testing.T) {
		m, err := ParseTabular([]byte(`
discount: 1
states:
  - name: a
    actions:
      - name: go
        outcomes: [{to: b, prob: 1}]
  - name: b
    actions:
      - name: back
        outcomes: [{to: a, prob: 1}]
      - name: go
        outcomes: [{to: b, prob: 1}]
`))
		require.NoError(t, err)

		require.Equal(t, []mdp.Action{1, 0}, m.Actions(mdp.State{1}))
		require.Equal(t, mdp.State{0}, m.InitialState(), "The first state should be the default start")
	})

	t.Run("rejecting malformed models", func(t *testing.T) {
		cases := map[string]string{
			"probabilities not summing to one": `
discount: 0.9
states:
  - name: a
    actions:
      - name: go
        outcomes: [{to: a, prob: 0.4}]`,
			"unknown successor": `
discount: 0.9
states:
  - name: a
    actions:
      - name: go
        outcomes: [{to: b, prob: 1}]`,
			"duplicate state": `
discount: 0.9
states: [{name: a}, {name: a}]`,
			"discount above one": `
discount: 1.5
states: [{name: a}]`,
			"unknown field": `
discount: 0.9
gamma: 0.9
states: [{name: a}]`,
			"unknown initial state": `
discount: 0.9
initial: z
states: [{name: a}]`,
			"no states": `discount: 0.9`,
		}
		for name, data := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseTabular([]byte(data))
				require.ErrorIs(t, err, ErrInvalidModel)
			})
		}
	})

	t.Run("unknown states panic", func(t *testing.T) {
		m, err := LoadTabular("testdata/chain.yaml")
		require.NoError(t, err)

		require.Panics(t, func() { m.Actions(mdp.State{7}) })
		require.Panics(t, func() { m.Actions(mdp.State{0.5}) })
	})
}

func TestParseGrid(t *testing.T) {
	t.Run("loading a corridor", func(t *testing.T) {
		g, err := LoadGrid("testdata/corridor.grid")
		require.NoError(t, err)

		width, height := g.Size()
		require.Equal(t, 5, width)
		require.Equal(t, 1, height)
		require.Equal(t, mdp.State{0, 0}, g.InitialState())
		require.Equal(t, 0.9, g.Discount())
		require.Equal(t, []mdp.Outcome{{Prob: 1, Next: mdp.State{1, 0}, Reward: -1}}, g.Outcomes(g.InitialState(), East))
		require.Equal(t, []mdp.Outcome{{Prob: 1, Next: mdp.State{0, 0}, Reward: -1}}, g.Outcomes(g.InitialState(), West),
			"Moving off the map should stay put")
		require.Empty(t, g.Actions(mdp.State{4, 0}), "The goal should be terminal")
	})

	t.Run("slipping sideways", func(t *testing.T) {
		g, err := ParseGrid(strings.NewReader("slip: 0.2\nhazard_reward: -10\n---\n...\n.S.\n.x.\n"))
		require.NoError(t, err)

		outcomes := g.Outcomes(g.InitialState(), South)

		require.Equal(t, []mdp.Outcome{
			{Prob: 0.8, Next: mdp.State{1, 0}, Reward: -11},
			{Prob: 0.1, Next: mdp.State{2, 1}, Reward: -1},
			{Prob: 0.1, Next: mdp.State{0, 1}, Reward: -1},
		}, outcomes)
		require.NoError(t, mdp.CheckOutcomes(outcomes))
		require.Equal(t, "(1,1)", g.StateName(g.InitialState()))
	})

	t.Run("obstacles block moves and pad short rows", func(t *testing.T) {
		g, err := ParseGrid(strings.NewReader("slip: 0\n---\n#G\nS\n"))
		require.NoError(t, err)

		require.Equal(t, []mdp.Outcome{{Prob: 1, Next: mdp.State{0, 0}, Reward: -1}}, g.Outcomes(g.InitialState(), North))
		require.Equal(t, []mdp.Outcome{{Prob: 1, Next: mdp.State{0, 0}, Reward: -1}}, g.Outcomes(g.InitialState(), East))
		require.Equal(t, "#G\n.#\n", g.Render(nil), "The short row should be padded with an obstacle")
	})

	t.Run("reward range covers every transition", func(t *testing.T) {
		g, err := ParseGrid(strings.NewReader("step_reward: -1\ngoal_reward: 10\nhazard_reward: -20\n---\nSGx\n"))
		require.NoError(t, err)

		min, max := g.RewardRange()

		require.Equal(t, -21.0, min)
		require.Equal(t, 9.0, max)
	})

	t.Run("rendering a policy", func(t *testing.T) {
		g, err := LoadGrid("testdata/corridor.grid")
		require.NoError(t, err)

		got := g.Render(func(mdp.State) mdp.Action { return East })

		require.Equal(t, "EEEEG\n", got)
	})

	t.Run("rejecting malformed maps", func(t *testing.T) {
		cases := map[string]string{
			"missing separator":  "slip: 0\nS.G\n",
			"unknown cell":       "---\nS.?G\n",
			"two starts":         "---\nS.S\n",
			"no start":           "---\n..G\n",
			"empty map":          "---\n",
			"slip out of range":  "slip: 2\n---\nSG\n",
			"unknown header key": "wind: 3\n---\nSG\n",
		}
		for name, data := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseGrid(strings.NewReader(data))
				require.ErrorIs(t, err, ErrInvalidModel)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	tabular, err := Load("testdata/chain.yaml")
	require.NoError(t, err)
	require.IsType(t, &Tabular{}, tabular)

	grid, err := Load("testdata/corridor.grid")
	require.NoError(t, err)
	require.IsType(t, &Grid{}, grid)
	require.Equal(t, "(0,0)", StateName(grid, grid.InitialState()))

	_, err = Load("testdata/missing.grid")
	require.Error(t, err)
}
