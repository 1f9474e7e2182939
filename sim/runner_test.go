package sim

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/meteora-strategy/logger"
	"github.com/krazyTry/meteora-strategy/strategy"
)

func newRunner(t *testing.T, doc string, clock clockwork.Clock) *Runner {
	t.Helper()
	sc, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	r, err := NewRunner(context.Background(), Config{Logger: logger.NewTest(), Clock: clock, MaxRetries: 20}, sc)
	require.NoError(t, err)
	return r
}

func TestRunnerRoundTrip(t *testing.T) {
	t.Parallel()
	r := newRunner(t, roundTripScenario, clockwork.NewFakeClock())

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 11)
	require.ErrorIs(t, results[2].Err, strategy.ErrTickNotOutOfRange)
	require.ErrorIs(t, results[5].Err, strategy.ErrPositionDeployed)
	require.NotNil(t, results[4].Receipt)
	require.NoError(t, results[8].Err)

	rep, err := r.Report()
	require.NoError(t, err)
	require.Len(t, rep.Positions, 1)
	require.Equal(t, PositionReport{
		Name:      "alice",
		NftMint:   rep.Positions[0].NftMint,
		Status:    "amm",
		Liquidity: "1097500",
	}, rep.Positions[0])
	require.Equal(t, "0.0025", rep.Custody0)
	require.Equal(t, "0", rep.Custody1)
	require.Len(t, rep.Keepers, 1)
	require.Zero(t, rep.Keepers[0].Credits)

	keeper, ok := r.Keeper("k1")
	require.True(t, ok)
	require.Equal(t, keeper.String(), rep.Keepers[0].Key)
}

func TestRunnerDeployedReport(t *testing.T) {
	t.Parallel()
	r := newRunner(t, `{
		"decimals": [6, 9],
		"positions": [{"name": "bob", "tick_lower": -100, "tick_upper": 100, "liquidity": "2", "inner": 50, "outer": 60}],
		"steps": [
			{"action": "create_keeper", "keeper": "k"},
			{"action": "open", "position": "bob"},
			{"action": "tick", "tick": 161},
			{"action": "decrease", "position": "bob", "keeper": "k"}
		]
	}`, clockwork.NewFakeClock())

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	rep, err := r.Report()
	require.NoError(t, err)
	bob := rep.Positions[0]
	require.Equal(t, "vault:token1", bob.Status)
	require.Equal(t, "0.002", bob.Deposit)
	require.Equal(t, uint64(2_000_000), bob.LpShares)
	require.Equal(t, "0", bob.Liquidity)
	require.Equal(t, uint64(100), rep.Keepers[0].Credits)
}

func TestRunnerParallel(t *testing.T) {
	t.Parallel()
	r := newRunner(t, `{
		"decimals": [6, 6],
		"positions": [
			{"name": "a", "tick_lower": -100, "tick_upper": 100, "liquidity": "1", "inner": 100, "outer": 200},
			{"name": "b", "tick_lower": -50, "tick_upper": 150, "liquidity": "3", "inner": 100, "outer": 150},
			{"name": "c", "tick_lower": 0, "tick_upper": 20, "liquidity": "5", "inner": 10, "outer": 20}
		],
		"steps": [
			{"action": "parallel", "steps": [
				{"action": "create_keeper", "keeper": "k1"},
				{"action": "create_keeper", "keeper": "k2"},
				{"action": "create_keeper", "keeper": "k3"},
				{"action": "open", "position": "a"},
				{"action": "open", "position": "b"},
				{"action": "open", "position": "c"}
			]},
			{"action": "tick", "tick": -301},
			{"action": "parallel", "steps": [
				{"action": "decrease", "position": "a", "keeper": "k1"},
				{"action": "decrease", "position": "b", "keeper": "k2"},
				{"action": "decrease", "position": "c", "keeper": "k3"}
			]}
		]
	}`, clockwork.NewRealClock())

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 10)

	rep, err := r.Report()
	require.NoError(t, err)
	require.Len(t, rep.Positions, 3)
	for i, name := range []string{"a", "b", "c"} {
		require.Equal(t, name, rep.Positions[i].Name)
		require.Equal(t, "vault:token0", rep.Positions[i].Status)
	}
	require.Equal(t, "3", rep.Positions[1].Deposit)
	for _, k := range rep.Keepers {
		require.Equal(t, uint64(100), k.Credits)
	}
}

func TestRunnerExpectations(t *testing.T) {
	t.Parallel()

	t.Run("expected failure succeeded", func(t *testing.T) {
		t.Parallel()
		r := newRunner(t, `{
			"positions": [{"name": "a", "tick_lower": -100, "tick_upper": 100, "liquidity": "1", "inner": 100, "outer": 200}],
			"steps": [{"action": "open", "position": "a", "expect": "PositionDeployed"}]
		}`, clockwork.NewFakeClock())
		_, err := r.Run(context.Background())
		require.ErrorContains(t, err, "expected PositionDeployed")
	})

	t.Run("wrong failure", func(t *testing.T) {
		t.Parallel()
		r := newRunner(t, `{
			"positions": [{"name": "a", "tick_lower": -100, "tick_upper": 100, "liquidity": "1", "inner": 100, "outer": 200}],
			"steps": [
				{"action": "create_keeper", "keeper": "k"},
				{"action": "open", "position": "a"},
				{"action": "increase", "position": "a", "keeper": "k", "expect": "PositionDeployed"}
			]
		}`, clockwork.NewFakeClock())
		results, err := r.Run(context.Background())
		require.ErrorIs(t, err, strategy.ErrPositionNotDeployed)
		require.Len(t, results, 3)
	})

	t.Run("unknown names", func(t *testing.T) {
		t.Parallel()
		r := newRunner(t, `{"steps": [{"action": "open", "position": "ghost"}]}`, clockwork.NewFakeClock())
		_, err := r.Run(context.Background())
		require.ErrorIs(t, err, ErrScenario)

		r = newRunner(t, `{"steps": [{"action": "dance"}]}`, clockwork.NewFakeClock())
		_, err = r.Run(context.Background())
		require.ErrorIs(t, err, ErrScenario)
	})

	t.Run("feature toggles", func(t *testing.T) {
		t.Parallel()
		r := newRunner(t, `{
			"positions": [{"name": "a", "tick_lower": -100, "tick_upper": 100, "liquidity": "1", "inner": 100, "outer": 200}],
			"steps": [
				{"action": "clear_feature", "token": 0},
				{"action": "open", "position": "a", "expect": "ProgramNotOpenToCreatingPositions"},
				{"action": "set_feature", "token": 0},
				{"action": "open", "position": "a"},
				{"action": "close", "position": "a"}
			]
		}`, clockwork.NewFakeClock())
		_, err := r.Run(context.Background())
		require.NoError(t, err)
		rep, err := r.Report()
		require.NoError(t, err)
		require.Equal(t, "closed", rep.Positions[0].Status)
		require.Equal(t, "1", rep.Positions[0].Liquidity)
	})
}
