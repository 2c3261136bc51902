package bound

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rtdp/mdp"
)

type rangeModel struct {
	rmin, rmax, discount float64
}

func (m rangeModel) Actions(mdp.State) []mdp.Action               { return nil }
func (m rangeModel) Outcomes(mdp.State, mdp.Action) []mdp.Outcome { return nil }
func (m rangeModel) Discount() float64                            { return m.discount }
func (m rangeModel) InitialState() mdp.State                      { return mdp.State{0} }
func (m rangeModel) ActionName(mdp.Action) string                 { return "" }
func (m rangeModel) RewardRange() (float64, float64)              { return m.rmin, m.rmax }

func TestConstant(t *testing.T) {
	b := Constant(3.5)
	require.Equal(t, 3.5, b.Value(mdp.State{1, 2}))
	require.Equal(t, 3.5, b.Value(nil))
}

func TestFunc(t *testing.T) {
	b := Func(func(s mdp.State) float64 { return -s[0] })
	require.Equal(t, -4.0, b.Value(mdp.State{4}))
}

func TestDiscounted(t *testing.T) {
	t.Run("mixed-sign rewards", func(t *testing.T) {
		lower, upper, err := Discounted(-1, 2, 0.5)
		require.NoError(t, err)
		require.InDelta(t, -2.0, lower.Value(nil), 1e-12)
		require.InDelta(t, 4.0, upper.Value(nil), 1e-12)
	})

	t.Run("costs only keep the upper bound at zero", func(t *testing.T) {
		lower, upper, err := Discounted(-1, -1, 0.9)
		require.NoError(t, err)
		require.InDelta(t, -10.0, lower.Value(nil), 1e-9)
		require.Equal(t, 0.0, upper.Value(nil))
	})

	t.Run("undiscounted problems are rejected", func(t *testing.T) {
		_, _, err := Discounted(-1, 1, 1)
		require.ErrorIs(t, err, ErrUndiscounted)
	})

	t.Run("empty reward range", func(t *testing.T) {
		_, _, err := Discounted(1, -1, 0.5)
		require.Error(t, err)
	})
}

func TestForModel(t *testing.T) {
	lower, upper, err := ForModel(rangeModel{rmin: 0, rmax: 1, discount: 0.75})
	require.NoError(t, err)
	require.Equal(t, 0.0, lower.Value(nil))
	require.InDelta(t, 4.0, upper.Value(nil), 1e-12)
}
