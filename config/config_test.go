package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"rtdp/mdp"
	"rtdp/searcher"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

type rewardRange struct {
	min, max, discount float64
}

func (r rewardRange) Actions(mdp.State) []mdp.Action                { return nil }
func (r rewardRange) Outcomes(mdp.State, mdp.Action) []mdp.Outcome { return nil }
func (r rewardRange) Discount() float64                            { return r.discount }
func (r rewardRange) InitialState() mdp.State                      { return mdp.State{0} }
func (r rewardRange) ActionName(mdp.Action) string                 { return "" }
func (r rewardRange) RewardRange() (float64, float64)              { return r.min, r.max }

func TestLoad(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		config, err := Load("")

		require.NoError(t, err)
		require.Equal(t, Default(), config)
		require.Equal(t, zerolog.InfoLevel, config.Level())
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeFile(t, "rtdp.yaml", `
strategy: brtdp
time_budget: 250ms
precision: 0.01
tau: 20
bounds:
  lower: -5
  upper: 0
episode:
  max_steps: 50
experiment:
  strategies: [rtdp, brtdp]
`)

		config, err := Load(path)

		require.NoError(t, err)
		require.Equal(t, "brtdp", config.Strategy)
		require.Equal(t, 250*time.Millisecond, config.TimeBudget)
		require.Equal(t, 0.01, config.Precision)
		require.Equal(t, 20.0, config.Tau)
		require.Equal(t, -5.0, *config.Bounds.Lower)
		require.Equal(t, 50, config.Episode.MaxSteps)
		require.Equal(t, []string{"rtdp", "brtdp"}, config.Experiment.Strategies)
		require.Equal(t, searcher.MaxDepth, config.MaxDepth, "Unset fields should keep their defaults")
	})

	t.Run("json files are accepted", func(t *testing.T) {
		path := writeFile(t, "rtdp.json", `{"strategy": "rtdp", "max_depth": 40}`)

		config, err := Load(path)

		require.NoError(t, err)
		require.Equal(t, 40, config.MaxDepth)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeFile(t, "rtdp.yaml", "strategy: brtdp\nseed: 3\n")
		t.Setenv("RTDP_STRATEGY", "prioritized")
		t.Setenv("RTDP_TIME_BUDGET", "2s")
		t.Setenv("RTDP_SEED", "99")
		t.Setenv("RTDP_LOG_LEVEL", "debug")

		config, err := Load(path)

		require.NoError(t, err)
		require.Equal(t, "prioritized", config.Strategy)
		require.Equal(t, 2*time.Second, config.TimeBudget)
		require.Equal(t, uint64(99), config.Seed)
		require.Equal(t, zerolog.DebugLevel, config.Level())
	})

	t.Run("bad environment values are errors", func(t *testing.T) {
		t.Setenv("RTDP_PRECISION", "tight")

		_, err := Load("")

		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"unknown strategy":           func(c *Config) { c.Strategy = "value-iteration" },
		"unknown experiment strategy": func(c *Config) { c.Experiment.Strategies = []string{"mcts"} },
		"zero budget":                func(c *Config) { c.TimeBudget = 0 },
		"negative precision":         func(c *Config) { c.Precision = -1 },
		"zero depth":                 func(c *Config) { c.MaxDepth = 0 },
		"tau below one":              func(c *Config) { c.Tau = 0.5 },
		"zero backups":               func(c *Config) { c.MaxBackups = 0 },
		"bad bounds format":          func(c *Config) { c.BoundsFormat = "xml" },
		"bad log level":              func(c *Config) { c.LogLevel = "loud" },
		"zero episodes":              func(c *Config) { c.Experiment.Episodes = 0 },
		"zero steps":                 func(c *Config) { c.Episode.MaxSteps = 0 },
		"crossed bounds": func(c *Config) {
			lower, upper := 1.0, 0.0
			c.Bounds = BoundsConfig{Lower: &lower, Upper: &upper}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := Default()
			mutate(&config)

			require.ErrorIs(t, config.Validate(), ErrInvalidConfig)
		})
	}
}

func TestModelBounds(t *testing.T) {
	t.Run("derived from the reward range", func(t *testing.T) {
		lower, upper, err := Default().ModelBounds(rewardRange{min: -2, max: 1, discount: 0.5})

		require.NoError(t, err)
		require.Equal(t, -4.0, lower.Value(mdp.State{0}))
		require.Equal(t, 2.0, upper.Value(mdp.State{0}))
	})

	t.Run("explicit constants win", func(t *testing.T) {
		config := Default()
		lo := -7.0
		config.Bounds.Lower = &lo

		lower, upper, err := config.ModelBounds(rewardRange{min: -2, max: 1, discount: 0.5})

		require.NoError(t, err)
		require.Equal(t, -7.0, lower.Value(mdp.State{0}))
		require.Equal(t, 2.0, upper.Value(mdp.State{0}))
	})

	t.Run("undiscounted models need explicit bounds", func(t *testing.T) {
		_, _, err := Default().ModelBounds(rewardRange{min: -1, max: 0, discount: 1})
		require.Error(t, err)

		config := Default()
		lo, up := -100.0, 0.0
		config.Bounds = BoundsConfig{Lower: &lo, Upper: &up}
		lower, upper, err := config.ModelBounds(rewardRange{min: -1, max: 0, discount: 1})
		require.NoError(t, err)
		require.Equal(t, -100.0, lower.Value(nil))
		require.Equal(t, 0.0, upper.Value(nil))
	})
}

func TestNewStrategy(t *testing.T) {
	config := Default()

	configured, err := config.NewStrategy("")
	require.NoError(t, err)
	named, err := config.NewStrategy("rtdp")
	require.NoError(t, err)

	require.Equal(t, "lrtdp", configured.String())
	require.Equal(t, "rtdp", named.String())
	require.Len(t, config.SearcherOptions(), 2, "An unset seed should not pin the generator")
}
