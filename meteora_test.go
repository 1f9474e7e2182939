package meteora

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/meteora-strategy/logger"
	"github.com/krazyTry/meteora-strategy/sim"
	"github.com/krazyTry/meteora-strategy/strategy"
)

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`{
		"decimals": [6, 6],
		"positions": [{"name": "p", "tick_lower": -10, "tick_upper": 10, "liquidity": "1", "inner": 10, "outer": 20}],
		"steps": [
			{"action": "create_keeper", "keeper": "k"},
			{"action": "open", "position": "p"},
			{"action": "tick", "tick": 31},
			{"action": "decrease", "position": "p", "keeper": "k"},
			{"action": "tick", "tick": 25},
			{"action": "increase", "position": "p", "keeper": "k", "expect": "TickNotWithinRange"}
		]
	}`))
	require.NoError(t, err)

	ctx := context.Background()
	runner, err := NewRunner(ctx, sim.Config{Logger: logger.NewTest(), Clock: clockwork.NewFakeClock()}, sc)
	require.NoError(t, err)
	results, err := runner.Run(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, results[5].Err, strategy.ErrTickNotWithinRange)

	report, err := runner.Report()
	require.NoError(t, err)
	require.Equal(t, "vault:token1", report.Positions[0].Status)
	require.Equal(t, ProgramID, strategy.ProgramID)
}
