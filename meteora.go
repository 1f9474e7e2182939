package meteora

import (
	"github.com/krazyTry/meteora-strategy/sim"
	"github.com/krazyTry/meteora-strategy/strategy"
)

// ProgramID is the address the strategy program is registered under.
var ProgramID = strategy.ProgramID

// NewEnvironment creates a ledger with the strategy program, a CLMM pool and
// one Meteora vault per pool token.
//
// Example:
//
// env, _ := NewEnvironment(ctx, sim.Config{Logger: log, Clock: clockwork.NewRealClock(), Params: sim.DefaultParams})
//
// p, _ := env.MintPosition(owner, -100, 100, uint128.From64(1_000_000))
//
// env.OpenPosition(ctx, p, sim.BandsAround(p, 100, 200))
var NewEnvironment = sim.NewEnvironment

// ParseScenario decodes a JSON scenario.
var ParseScenario = sim.ParseScenario

// NewRunner builds the environment a scenario describes.
//
// Example:
//
// sc, _ := ParseScenario(data)
//
// runner, _ := NewRunner(ctx, sim.Config{Logger: log, Clock: clock}, sc)
//
// runner.Run(ctx)
//
// report, _ := runner.Report()
var NewRunner = sim.NewRunner
