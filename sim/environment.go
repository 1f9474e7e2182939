package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/jonboulle/clockwork"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
	"github.com/krazyTry/meteora-strategy/strategy"
	"github.com/krazyTry/meteora-strategy/vault"
)

const (
	defaultTickSpacing  = 10
	defaultPoolReserve  = 1_000_000_000_000
	defaultAdminFunding = 1_000 * solana.LAMPORTS_PER_SOL
	defaultMaxRetries   = 5
	defaultRetryBackoff = 10 * time.Millisecond
)

// DefaultParams enables every feature with a 2.5% performance fee.
var DefaultParams = strategy.InitializeConfigArgs{
	State:              strategy.CanCreate | strategy.CanIncrease | strategy.CanDecrease,
	CreditsForDecrease: 100,
	CreditsForIncrease: 100,
	SolPerCredit:       10_000,
	BaseDeposit:        1_000_000,
	FeeBasisPoints:     250,
}

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock

	// Ledger replaces the fresh ledger, for example one seeded with
	// CloneAccounts. The strategy and simulator programs are registered on it.
	Ledger *ledger.Ledger

	Params      strategy.InitializeConfigArgs
	Decimals0   uint8
	Decimals1   uint8
	TickSpacing uint16
	InitialTick int32
	// PoolReserve is the amount of each token held by the pool vaults.
	PoolReserve uint64

	MaxRetries   int
	RetryBackoff time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Params.FeeBasisPoints > strategy.MaxFeeBasisPoints {
		return fmt.Errorf("fee basis points %d above %d", cfg.Params.FeeBasisPoints, strategy.MaxFeeBasisPoints)
	}
	if cfg.InitialTick < clmm.MinTick || cfg.InitialTick > clmm.MaxTick {
		return fmt.Errorf("initial tick %d out of bounds", cfg.InitialTick)
	}
	if cfg.TickSpacing == 0 {
		cfg.TickSpacing = defaultTickSpacing
	}
	if cfg.PoolReserve == 0 {
		cfg.PoolReserve = defaultPoolReserve
	}
	if cfg.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff < 0 {
		return errors.New("retry backoff must not be negative")
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return nil
}

// VaultRef is a vault created in the environment.
type VaultRef struct {
	Key   solana.PublicKey
	State *vault.Vault
}

// Environment is a ledger with the strategy program configured against one
// CLMM pool and one vault per pool token.
type Environment struct {
	Ledger *ledger.Ledger

	log   *slog.Logger
	clock clockwork.Clock
	cfg   Config

	Admin  solana.PublicKey
	Global solana.PublicKey

	Pool      solana.PublicKey
	PoolState *clmm.PoolState
	Mint0     solana.PublicKey
	Mint1     solana.PublicKey
	Vault0    VaultRef
	Vault1    VaultRef
}

func NewEnvironment(ctx context.Context, cfg Config) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := cfg.Ledger
	if l == nil {
		var err error
		l, err = ledger.New(ledger.Config{Logger: cfg.Logger, Clock: cfg.Clock})
		if err != nil {
			return nil, err
		}
	}
	l.Register(strategy.Program{})
	l.Register(clmm.Simulator{})
	l.Register(vault.Simulator{})

	global, _ := strategy.DeriveGlobalStateAddress()
	e := &Environment{
		Ledger: l,
		log:    cfg.Logger,
		clock:  cfg.Clock,
		cfg:    cfg,
		Admin:  solana.NewWallet().PublicKey(),
		Global: global,
		Mint0:  solana.NewWallet().PublicKey(),
		Mint1:  solana.NewWallet().PublicKey(),
	}
	if err := l.Fund(e.Admin, defaultAdminFunding); err != nil {
		return nil, err
	}
	if err := e.createPool(); err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	var err error
	if e.Vault0, err = e.createVault(e.Mint0, cfg.Decimals0); err != nil {
		return nil, fmt.Errorf("create vault 0: %w", err)
	}
	if e.Vault1, err = e.createVault(e.Mint1, cfg.Decimals1); err != nil {
		return nil, fmt.Errorf("create vault 1: %w", err)
	}

	if _, err := e.Process(ctx, []solana.PublicKey{e.Admin, strategy.BootstrapKey},
		strategy.NewInitializeConfigInstruction(e.Admin, cfg.Params),
		strategy.NewWhitelistMintInstruction(e.Admin, e.Mint0),
		strategy.NewWhitelistMintInstruction(e.Admin, e.Mint1),
	); err != nil {
		return nil, fmt.Errorf("initialize strategy: %w", err)
	}

	custody := make([]solana.Instruction, 0, 4)
	for _, mint := range []solana.PublicKey{e.Mint0, e.Mint1, e.Vault0.State.LpMint, e.Vault1.State.LpMint} {
		custody = append(custody, ledger.NewCreateIdempotentInstruction(e.Admin, e.Global, mint))
	}
	if _, err := e.Process(ctx, []solana.PublicKey{e.Admin}, custody...); err != nil {
		return nil, fmt.Errorf("create global token accounts: %w", err)
	}

	e.log.Info("environment ready", "pool", e.Pool, "vault0", e.Vault0.Key, "vault1", e.Vault1.Key, "global", e.Global)
	return e, nil
}

func (e *Environment) createPool() error {
	for _, m := range []struct {
		key      solana.PublicKey
		decimals uint8
	}{{e.Mint0, e.cfg.Decimals0}, {e.Mint1, e.cfg.Decimals1}} {
		if err := e.Ledger.SetMint(m.key, &token.Mint{
			Supply:        e.cfg.PoolReserve,
			Decimals:      m.decimals,
			IsInitialized: true,
		}); err != nil {
			return err
		}
	}

	ammConfig := solana.NewWallet().PublicKey()
	pool, bump := clmm.DerivePoolAddress(ammConfig, e.Mint0, e.Mint1)
	e.Pool = pool
	e.PoolState = &clmm.PoolState{
		Bump:           bump,
		AmmConfig:      ammConfig,
		TokenMint0:     e.Mint0,
		TokenMint1:     e.Mint1,
		TokenVault0:    clmm.DerivePoolVaultAddress(pool, e.Mint0),
		TokenVault1:    clmm.DerivePoolVaultAddress(pool, e.Mint1),
		ObservationKey: clmm.DeriveObservationAddress(pool),
		MintDecimals0:  e.cfg.Decimals0,
		MintDecimals1:  e.cfg.Decimals1,
		TickSpacing:    e.cfg.TickSpacing,
		Liquidity:      uint128.Zero,
		TickCurrent:    e.cfg.InitialTick,
	}
	if err := clmm.SetPool(e.Ledger, pool, e.PoolState); err != nil {
		return err
	}
	if err := e.Ledger.SetTokenAccount(e.PoolState.TokenVault0, &solanago.Account{
		Mint:   e.Mint0,
		Owner:  pool,
		Amount: e.cfg.PoolReserve,
		State:  solanago.AccountStateInitialized,
	}); err != nil {
		return err
	}
	return e.Ledger.SetTokenAccount(e.PoolState.TokenVault1, &solanago.Account{
		Mint:   e.Mint1,
		Owner:  pool,
		Amount: e.cfg.PoolReserve,
		State:  solanago.AccountStateInitialized,
	})
}

func (e *Environment) createVault(mint solana.PublicKey, decimals uint8) (VaultRef, error) {
	key, state, err := vault.CreateVault(e.Ledger, mint, decimals, e.Admin)
	if err != nil {
		return VaultRef{}, err
	}
	return VaultRef{Key: key, State: state}, nil
}

// Vault returns the vault of mint.
func (e *Environment) Vault(mint solana.PublicKey) (VaultRef, error) {
	switch {
	case mint.Equals(e.Mint0):
		return e.Vault0, nil
	case mint.Equals(e.Mint1):
		return e.Vault1, nil
	default:
		return VaultRef{}, fmt.Errorf("no vault for mint %s", mint)
	}
}

// Process submits one transaction, retrying while an account it needs is
// locked by another in-flight transaction.
func (e *Environment) Process(ctx context.Context, signers []solana.PublicKey, ixs ...solana.Instruction) (*ledger.Receipt, error) {
	tx := &ledger.Transaction{Instructions: ixs, Signers: signers}
	backoff := e.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		receipt, err := e.Ledger.Process(ctx, tx)
		if err == nil || !errors.Is(err, ledger.ErrAccountInUse) || attempt >= e.cfg.MaxRetries {
			return receipt, err
		}
		e.log.Debug("sim: account in use, retrying", "attempt", attempt+1, "backoff", backoff)
		select {
		case <-ctx.Done():
			return receipt, ctx.Err()
		case <-e.clock.After(backoff):
		}
		backoff *= 2
	}
}

// SetTick moves the pool price.
func (e *Environment) SetTick(tick int32) error {
	if err := clmm.SetPoolTick(e.Ledger, e.Pool, tick); err != nil {
		return err
	}
	e.log.Debug("sim: pool tick moved", "tick", tick)
	return nil
}

// AccrueYield adds amount to the vault of mint.
func (e *Environment) AccrueYield(mint solana.PublicKey, amount uint64) error {
	ref, err := e.Vault(mint)
	if err != nil {
		return err
	}
	return vault.AccrueYield(e.Ledger, ref.Key, amount)
}

// GlobalTokenAccount is the global state's custody account for mint.
func (e *Environment) GlobalTokenAccount(mint solana.PublicKey) solana.PublicKey {
	return solanago.FindAssociatedTokenAddress(e.Global, mint)
}

// CreditGlobal mints amount of mint into the global state custody account.
func (e *Environment) CreditGlobal(mint solana.PublicKey, amount uint64) error {
	key := e.GlobalTokenAccount(mint)
	acc, err := e.Ledger.TokenAccount(key)
	if err != nil {
		return err
	}
	acc.Amount += amount
	return e.Ledger.SetTokenAccount(key, acc)
}

// GlobalState reads the strategy configuration.
func (e *Environment) GlobalState() (*strategy.GlobalState, error) {
	a, ok := e.Ledger.Account(e.Global)
	if !ok {
		return nil, errors.New("global state not initialized")
	}
	return strategy.DecodeGlobalState(a.Data)
}
