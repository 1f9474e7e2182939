package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/krazyTry/meteora-strategy/ledger"
	"github.com/krazyTry/meteora-strategy/strategy"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	Action   string
	Position string
	Keeper   string
	Receipt  *ledger.Receipt
	Err      error
}

// Runner executes a scenario. Positions and keepers are referred to by the
// names the scenario gives them.
type Runner struct {
	Env *Environment
	sc  *Scenario
	log *slog.Logger

	mu        sync.Mutex
	positions map[string]*Position
	bands     map[string]Bands
	keepers   map[string]solana.PublicKey
	results   []StepResult
}

// NewRunner builds the environment the scenario describes. cfg supplies the
// logger, clock and retry settings; the scenario supplies the rest.
func NewRunner(ctx context.Context, cfg Config, sc *Scenario) (*Runner, error) {
	cfg.Params = sc.Params
	cfg.Decimals0 = sc.Decimals0
	cfg.Decimals1 = sc.Decimals1
	cfg.InitialTick = sc.InitialTick
	env, err := NewEnvironment(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		Env:       env,
		sc:        sc,
		log:       cfg.Logger,
		positions: make(map[string]*Position),
		bands:     make(map[string]Bands),
		keepers:   make(map[string]solana.PublicKey),
	}
	for _, spec := range sc.Positions {
		if err := r.mint(spec); err != nil {
			return nil, fmt.Errorf("position %s: %w", spec.Name, err)
		}
	}
	return r, nil
}

func (r *Runner) mint(spec PositionSpec) error {
	liquidity, err := RawLiquidity(spec.Liquidity, r.sc.Decimals0)
	if err != nil {
		return err
	}
	owner, err := r.Env.NewWallet(10 * solana.LAMPORTS_PER_SOL)
	if err != nil {
		return err
	}
	p, err := r.Env.MintPosition(owner, spec.TickLower, spec.TickUpper, liquidity)
	if err != nil {
		return err
	}
	r.positions[spec.Name] = p
	r.bands[spec.Name] = BandsAround(p, spec.Inner, spec.Outer)
	return nil
}

// Run executes every step in order and stops at the first unexpected
// outcome. Results of the executed steps are kept either way.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	for i, step := range r.sc.Steps {
		if err := r.run(ctx, step); err != nil {
			return r.Results(), fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	return r.Results(), nil
}

func (r *Runner) Results() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepResult(nil), r.results...)
}

func (r *Runner) Position(name string) (*Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[name]
	return p, ok
}

func (r *Runner) Keeper(name string) (solana.PublicKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keepers[name]
	return k, ok
}

func (r *Runner) run(ctx context.Context, step Step) error {
	if step.Action == ActionParallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, inner := range step.Parallel {
			g.Go(func() error { return r.run(gctx, inner) })
		}
		return g.Wait()
	}

	receipt, err := r.execute(ctx, step)
	r.mu.Lock()
	r.results = append(r.results, StepResult{
		Action:   step.Action,
		Position: step.Position,
		Keeper:   step.Keeper,
		Receipt:  receipt,
		Err:      err,
	})
	r.mu.Unlock()
	return r.check(step, err)
}

// check compares the outcome of step with its expectation.
func (r *Runner) check(step Step, err error) error {
	if step.Expect == "" {
		return err
	}
	var code strategy.ErrorCode
	switch {
	case err == nil:
		return fmt.Errorf("expected %s, step succeeded", step.Expect)
	case errors.As(err, &code) && code.Name() == step.Expect:
		r.log.Info("step failed as expected", "action", step.Action, "error", code.Name())
		return nil
	default:
		return fmt.Errorf("expected %s: %w", step.Expect, err)
	}
}

func (r *Runner) execute(ctx context.Context, step Step) (*ledger.Receipt, error) {
	env := r.Env
	switch step.Action {
	case ActionTick:
		return nil, env.SetTick(step.Tick)
	case ActionYield:
		mint := env.Mint0
		decimals := r.sc.Decimals0
		if step.Token == 1 {
			mint, decimals = env.Mint1, r.sc.Decimals1
		}
		amount, err := RawAmount(step.Amount, decimals)
		if err != nil {
			return nil, err
		}
		return nil, env.AccrueYield(mint, amount)
	case ActionCreateKeeper:
		keeper, err := env.CreateKeeper(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.keepers[step.Keeper] = keeper
		r.mu.Unlock()
		return nil, nil
	case ActionFundRewards:
		lamports, err := RawAmount(step.Amount, 9)
		if err != nil {
			return nil, err
		}
		return nil, env.FundRewards(ctx, lamports)
	case ActionWithdrawRewards:
		keeper, err := r.keeper(step.Keeper)
		if err != nil {
			return nil, err
		}
		recipient := step.Recipient
		if recipient.IsZero() {
			recipient = keeper
		}
		return env.WithdrawRewards(ctx, keeper, recipient)
	case ActionSetFeature, ActionClearFeature:
		return nil, env.ChangeConfig(ctx, strategy.SetStateBit(uint8(step.Token), step.Action == ActionSetFeature))
	}

	p, err := r.position(step.Position)
	if err != nil {
		return nil, err
	}
	switch step.Action {
	case ActionOpen:
		r.mu.Lock()
		bands := r.bands[step.Position]
		r.mu.Unlock()
		return nil, env.OpenPosition(ctx, p, bands)
	case ActionClose:
		return env.Close(ctx, p)
	case ActionDecrease, ActionIncrease:
		keeper, err := r.keeper(step.Keeper)
		if err != nil {
			return nil, err
		}
		if step.Action == ActionDecrease {
			return env.Decrease(ctx, keeper, p)
		}
		return env.Increase(ctx, keeper, p)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrScenario, step.Action)
	}
}

func (r *Runner) position(name string) (*Position, error) {
	p, ok := r.Position(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown position %q", ErrScenario, name)
	}
	return p, nil
}

func (r *Runner) keeper(name string) (solana.PublicKey, error) {
	k, ok := r.Keeper(name)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: unknown keeper %q", ErrScenario, name)
	}
	return k, nil
}
