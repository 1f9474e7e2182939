package strategy_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
	"github.com/krazyTry/meteora-strategy/logger"
	"github.com/krazyTry/meteora-strategy/sim"
	"github.com/krazyTry/meteora-strategy/strategy"
	"github.com/krazyTry/meteora-strategy/vault"
)

const positionLiquidity = 1_000_000

type fixture struct {
	ctx context.Context
	env *sim.Environment
}

func newFixture(t *testing.T, cfg sim.Config) *fixture {
	t.Helper()
	cfg.Logger = logger.NewTest()
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewFakeClock()
	}
	if cfg.Params == (strategy.InitializeConfigArgs{}) {
		cfg.Params = sim.DefaultParams
	}
	cfg.Decimals0, cfg.Decimals1 = 6, 9
	ctx := context.Background()
	env, err := sim.NewEnvironment(ctx, cfg)
	require.NoError(t, err)
	return &fixture{ctx: ctx, env: env}
}

// mint creates a position over [-100, 100] with bands at 100 and 200 ticks
// beyond it.
func (f *fixture) mint(t *testing.T) (*sim.Position, sim.Bands) {
	t.Helper()
	owner, err := f.env.NewWallet(10 * solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)
	p, err := f.env.MintPosition(owner, -100, 100, uint128.From64(positionLiquidity))
	require.NoError(t, err)
	return p, sim.BandsAround(p, 100, 200)
}

func (f *fixture) open(t *testing.T) *sim.Position {
	t.Helper()
	p, bands := f.mint(t)
	require.NoError(t, f.env.OpenPosition(f.ctx, p, bands))
	return p
}

func (f *fixture) keeper(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := f.env.CreateKeeper(f.ctx)
	require.NoError(t, err)
	return k
}

func (f *fixture) process(signer solana.PublicKey, ixs ...solana.Instruction) error {
	_, err := f.env.Process(f.ctx, []solana.PublicKey{signer}, ixs...)
	return err
}

func (f *fixture) userState(t *testing.T, p *sim.Position) *strategy.UserState {
	t.Helper()
	u, err := f.env.UserState(p)
	require.NoError(t, err)
	return u
}

func (f *fixture) credits(t *testing.T, keeper solana.PublicKey) uint64 {
	t.Helper()
	k, err := f.env.KeeperState(keeper)
	require.NoError(t, err)
	return k.Credits
}

func invokedProgram(receipt *ledger.Receipt, program solana.PublicKey) bool {
	for _, line := range receipt.Logs {
		if strings.HasPrefix(line, "Program "+program.String()+" invoke") {
			return true
		}
	}
	return false
}

func TestOpenClose(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p, bands := f.mint(t)
	before := f.env.Ledger.Balance(p.Owner)

	require.NoError(t, f.env.OpenPosition(f.ctx, p, bands))
	{
		u := f.userState(t, p)
		require.Equal(t, p.Owner, u.User)
		require.Equal(t, p.NftMint, u.UserMint)
		require.Equal(t, strategy.DeployedNone, u.TokenDeployed)
		require.Equal(t, int32(-100), u.TickLower)
		require.Equal(t, int32(100), u.TickUpper)
		require.Equal(t, bands.InLower, u.InLower)
		require.Equal(t, bands.OutUpper, u.OutUpper)
		require.Zero(t, f.env.Ledger.TokenBalance(p.OwnerNftAccount))
		require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.Custody))
		custody, err := f.env.Ledger.TokenAccount(p.Custody)
		require.NoError(t, err)
		require.Equal(t, p.UserState, custody.Owner)
		require.Equal(t,
			ledger.MinimumBalance(strategy.UserStateSize)+sim.DefaultParams.BaseDeposit,
			f.env.Ledger.Balance(p.UserState))
	}

	receipt, err := f.env.Close(f.ctx, p)
	require.NoError(t, err)
	require.False(t, invokedProgram(receipt, vault.ProgramID))
	require.False(t, invokedProgram(receipt, clmm.ProgramID))
	require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.OwnerNftAccount))
	_, ok := f.env.Ledger.Account(p.UserState)
	require.False(t, ok)
	_, ok = f.env.Ledger.Account(p.Custody)
	require.False(t, ok)
	require.Equal(t, before, f.env.Ledger.Balance(p.Owner))

	liquidity, err := f.env.Liquidity(p)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(positionLiquidity), liquidity)
}

func TestOpenPositionRejected(t *testing.T) {
	t.Parallel()

	t.Run("creation disabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		require.NoError(t, f.env.ChangeConfig(f.ctx, strategy.SetStateBit(0, false)))
		p, bands := f.mint(t)
		require.ErrorIs(t, f.env.OpenPosition(f.ctx, p, bands), strategy.ErrProgramNotOpenToCreatingPositions)
	})

	t.Run("bands touch the range", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p, _ := f.mint(t)
		err := f.env.OpenPosition(f.ctx, p, sim.BandsAround(p, 0, 200))
		require.ErrorIs(t, err, strategy.ErrInvalidTickThresholdProvided)
	})

	t.Run("mint not whitelisted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		require.NoError(t, f.process(f.env.Admin, strategy.NewUnwhitelistMintInstruction(f.env.Admin, f.env.Mint1)))
		p, bands := f.mint(t)
		require.ErrorIs(t, f.env.OpenPosition(f.ctx, p, bands), strategy.ErrDestinationMintNotWhitelisted)

		require.NoError(t, f.process(f.env.Admin, strategy.NewWhitelistMintInstruction(f.env.Admin, f.env.Mint1)))
		require.NoError(t, f.env.OpenPosition(f.ctx, p, bands))
	})

	t.Run("not the NFT holder", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p, bands := f.mint(t)
		thief, err := f.env.NewWallet(10 * solana.LAMPORTS_PER_SOL)
		require.NoError(t, err)
		stolen := *p
		stolen.Owner = thief
		require.Error(t, f.env.OpenPosition(f.ctx, &stolen, bands))
		require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.OwnerNftAccount))
	})

	t.Run("custody is not the position ATA", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p, bands := f.mint(t)
		ix := strategy.NewOpenPositionInstruction(&strategy.OpenPositionAccounts{
			Payer:            p.Owner,
			User:             p.Owner,
			NftMint:          p.NftMint,
			UserNftAccount:   p.OwnerNftAccount,
			PersonalPosition: p.PersonalPosition,
			PoolState:        f.env.Pool,
			Mint0:            f.env.Mint0,
			Mint1:            f.env.Mint1,
		}, strategy.OpenPositionArgs{
			InLower:  bands.InLower,
			InUpper:  bands.InUpper,
			OutLower: bands.OutLower,
			OutUpper: bands.OutUpper,
		})
		ix.AccountMetaSlice[7].PublicKey = p.OwnerNftAccount
		ix.AccountMetaSlice = append(ix.AccountMetaSlice, solana.Meta(p.Custody).WRITE())

		require.ErrorIs(t, f.process(p.Owner, ix), strategy.ErrInvalidTokenAccount)
		require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.OwnerNftAccount))
		_, ok := f.env.Ledger.Account(p.UserState)
		require.False(t, ok)
	})
}

func TestRebalanceRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	keeper := f.keeper(t)
	custody0 := f.env.GlobalTokenAccount(f.env.Mint0)

	require.NoError(t, f.env.SetTick(-301))
	receipt, err := f.env.Decrease(f.ctx, keeper, p)
	require.NoError(t, err)
	require.True(t, invokedProgram(receipt, vault.ProgramID))
	{
		u := f.userState(t, p)
		require.Equal(t, strategy.DeployedToken0, u.TokenDeployed)
		require.Equal(t, uint64(positionLiquidity), u.VaultDeposit)
		require.Equal(t, uint64(positionLiquidity), u.LpShares)
		require.Equal(t, uint128.From64(positionLiquidity), u.Liquidity)
		liquidity, err := f.env.Liquidity(p)
		require.NoError(t, err)
		require.True(t, liquidity.IsZero())
		require.Zero(t, f.env.Ledger.TokenBalance(custody0))
		require.Equal(t, uint64(positionLiquidity), f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Vault0.State.LpMint)))
		require.Equal(t, uint64(100), f.credits(t, keeper))

		custody, err := f.env.Ledger.TokenAccount(p.Custody)
		require.NoError(t, err)
		require.Equal(t, p.UserState, custody.Owner)
	}

	require.NoError(t, f.env.AccrueYield(f.env.Mint0, 100_000))
	require.NoError(t, f.env.SetTick(-150))
	_, err = f.env.Increase(f.ctx, keeper, p)
	require.NoError(t, err)
	{
		u := f.userState(t, p)
		require.False(t, u.IsDeployed())
		require.Zero(t, u.VaultDeposit)
		require.Zero(t, u.LpShares)
		liquidity, err := f.env.Liquidity(p)
		require.NoError(t, err)
		require.Equal(t, uint128.From64(1_097_500), liquidity)
		require.Equal(t, uint64(2_500), f.env.Ledger.TokenBalance(custody0))
		require.Zero(t, f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Vault0.State.LpMint)))
		require.Equal(t, uint64(200), f.credits(t, keeper))

		custody, err := f.env.Ledger.TokenAccount(p.Custody)
		require.NoError(t, err)
		require.Equal(t, p.UserState, custody.Owner)
	}

	// the fee stays with the program until the admin sweeps it
	dest := solana.NewWallet().PublicKey()
	require.NoError(t, f.process(f.env.Admin,
		ledger.NewCreateIdempotentInstruction(f.env.Admin, dest, f.env.Mint0),
		strategy.NewAdminWithdrawTokensInstruction(f.env.Admin, f.env.Mint0, ataOf(dest, f.env.Mint0), 2_500),
	))
	require.Equal(t, uint64(2_500), f.env.Ledger.TokenBalance(ataOf(dest, f.env.Mint0)))
	require.Zero(t, f.env.Ledger.TokenBalance(custody0))
}

func ataOf(wallet, mint solana.PublicKey) solana.PublicKey {
	key, _, _ := solana.FindAssociatedTokenAddress(wallet, mint)
	return key
}

func TestIncreaseInRange(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	keeper := f.keeper(t)

	require.NoError(t, f.env.SetTick(301))
	_, err := f.env.Decrease(f.ctx, keeper, p)
	require.NoError(t, err)
	require.Equal(t, strategy.DeployedToken1, f.userState(t, p).TokenDeployed)
	require.Equal(t, uint64(positionLiquidity), f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Vault1.State.LpMint)))

	// an in range return needs both sides at the original liquidity
	require.NoError(t, f.env.SetTick(0))
	require.NoError(t, f.env.CreditGlobal(f.env.Mint0, 500_000))
	_, err = f.env.Increase(f.ctx, keeper, p)
	require.NoError(t, err)

	liquidity, err := f.env.Liquidity(p)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(positionLiquidity), liquidity)
	require.Zero(t, f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Mint0)))
	require.Equal(t, uint64(500_000), f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Mint1)))
	require.Equal(t, uint64(150), f.credits(t, keeper))
}

func TestRebalanceGates(t *testing.T) {
	t.Parallel()

	t.Run("tick inside outer band", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		require.NoError(t, f.env.SetTick(-300))
		remaining, err := f.env.DecreaseAccounts(p, strategy.DeployedToken0)
		require.NoError(t, err)
		err = f.process(keeper, strategy.NewKeeperDecreasePositionInstruction(keeper, 0, remaining))
		require.ErrorIs(t, err, strategy.ErrTickNotOutOfRange)
	})

	t.Run("already deployed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		require.NoError(t, f.env.SetTick(-301))
		_, err := f.env.Decrease(f.ctx, keeper, p)
		require.NoError(t, err)
		_, err = f.env.Decrease(f.ctx, keeper, p)
		require.ErrorIs(t, err, strategy.ErrPositionDeployed)
		require.Equal(t, uint64(100), f.credits(t, keeper))
	})

	t.Run("not deployed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		_, err := f.env.Increase(f.ctx, keeper, p)
		require.ErrorIs(t, err, strategy.ErrPositionNotDeployed)
	})

	t.Run("decrease disabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		require.NoError(t, f.env.ChangeConfig(f.ctx, strategy.SetStateBit(2, false)))
		require.NoError(t, f.env.SetTick(-301))
		_, err := f.env.Decrease(f.ctx, keeper, p)
		require.ErrorIs(t, err, strategy.ErrUnauthorizedAction)

		// the gate wins over the tick check
		require.NoError(t, f.env.SetTick(-250))
		remaining, err := f.env.DecreaseAccounts(p, strategy.DeployedToken0)
		require.NoError(t, err)
		err = f.process(keeper, strategy.NewKeeperDecreasePositionInstruction(keeper, 0, remaining))
		require.ErrorIs(t, err, strategy.ErrUnauthorizedAction)
	})

	t.Run("increase disabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		require.NoError(t, f.env.SetTick(-301))
		_, err := f.env.Decrease(f.ctx, keeper, p)
		require.NoError(t, err)
		require.NoError(t, f.env.ChangeConfig(f.ctx, strategy.SetStateBit(1, false)))
		require.NoError(t, f.env.SetTick(-150))
		_, err = f.env.Increase(f.ctx, keeper, p)
		require.ErrorIs(t, err, strategy.ErrUnauthorizedAction)
		require.True(t, f.userState(t, p).IsDeployed())
	})

	t.Run("tick beyond inner band", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		keeper := f.keeper(t)
		require.NoError(t, f.env.SetTick(-301))
		_, err := f.env.Decrease(f.ctx, keeper, p)
		require.NoError(t, err)
		require.NoError(t, f.env.SetTick(-201))
		_, err = f.env.Increase(f.ctx, keeper, p)
		require.ErrorIs(t, err, strategy.ErrTickNotWithinRange)
	})

	t.Run("foreign keeper record", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		p := f.open(t)
		honest, rogue := f.keeper(t), f.keeper(t)
		require.NoError(t, f.env.SetTick(-301))
		remaining, err := f.env.DecreaseAccounts(p, strategy.DeployedToken0)
		require.NoError(t, err)
		ix := strategy.NewKeeperDecreasePositionInstruction(rogue, 0, remaining)
		ix.AccountMetaSlice[0].PublicKey, _ = strategy.DeriveKeeperStateAddress(honest)
		require.ErrorIs(t, f.process(rogue, ix), strategy.ErrUnauthorizedAction)
	})

	t.Run("missing remaining accounts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		f.open(t)
		keeper := f.keeper(t)
		err := f.process(keeper, strategy.NewKeeperDecreasePositionInstruction(keeper, 0, nil))
		require.ErrorIs(t, err, strategy.ErrMissingRaydiumOrMeteoraAccounts)
	})
}

func TestDecreaseAccountSubstitution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		index  int
		rogue  func(f *fixture, attacker solana.PublicKey) solana.PublicKey
		expect error
	}{
		{
			name:  "AMM recipient",
			index: strategy.VaultAccountsLen + strategy.DecreaseRecipient0Offset,
			rogue: func(f *fixture, attacker solana.PublicKey) solana.PublicKey {
				return ataOf(attacker, f.env.Mint0)
			},
			expect: strategy.ErrInvalidTokenAccount,
		},
		{
			name:  "vault token account",
			index: strategy.VaultTokenAccountOffset,
			rogue: func(f *fixture, _ solana.PublicKey) solana.PublicKey {
				return f.env.GlobalTokenAccount(f.env.Mint1)
			},
			expect: strategy.ErrInvalidTokenAccount,
		},
		{
			name:  "vault LP account",
			index: strategy.VaultLpAccountOffset,
			rogue: func(f *fixture, attacker solana.PublicKey) solana.PublicKey {
				return ataOf(attacker, f.env.Vault0.State.LpMint)
			},
			expect: strategy.ErrInvalidTokenAccount,
		},
		{
			name:  "global state",
			index: strategy.VaultDepositorOffset,
			rogue: func(_ *fixture, attacker solana.PublicKey) solana.PublicKey {
				return attacker
			},
			expect: strategy.ErrInvalidGlobalStateAccount,
		},
		{
			name:  "position record",
			index: strategy.VaultAccountsLen + strategy.DecreaseNftOwnerOffset,
			rogue: func(_ *fixture, attacker solana.PublicKey) solana.PublicKey {
				return attacker
			},
			expect: strategy.ErrInvalidUserStateAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, sim.Config{})
			p := f.open(t)
			keeper := f.keeper(t)
			attacker := solana.NewWallet().PublicKey()
			require.NoError(t, f.env.SetTick(-301))

			remaining, err := f.env.DecreaseAccounts(p, strategy.DeployedToken0)
			require.NoError(t, err)
			remaining[tt.index].PublicKey = tt.rogue(f, attacker)
			err = f.process(keeper, strategy.NewKeeperDecreasePositionInstruction(keeper, 0, remaining))
			require.ErrorIs(t, err, tt.expect)

			require.False(t, f.userState(t, p).IsDeployed())
			require.Zero(t, f.credits(t, keeper))
		})
	}
}

func TestIncreaseAccountSubstitution(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	keeper := f.keeper(t)
	require.NoError(t, f.env.SetTick(-301))
	_, err := f.env.Decrease(f.ctx, keeper, p)
	require.NoError(t, err)
	require.NoError(t, f.env.SetTick(-150))

	attacker := solana.NewWallet().PublicKey()
	for name, index := range map[string]int{
		"AMM nft owner":    strategy.VaultAccountsLen + strategy.IncreaseNftOwnerOffset,
		"AMM token source": strategy.VaultAccountsLen + strategy.IncreaseTokenAccount1Offset,
		"vault LP account": strategy.VaultLpAccountOffset,
	} {
		remaining, err := f.env.IncreaseAccounts(p, strategy.DeployedToken0)
		require.NoError(t, err)
		remaining[index].PublicKey = attacker
		err = f.process(keeper, strategy.NewKeeperIncreasePositionInstruction(keeper, p.UserState, 0, remaining))
		require.Error(t, err, name)
		require.True(t, f.userState(t, p).IsDeployed(), name)
	}

	_, err = f.env.Increase(f.ctx, keeper, p)
	require.NoError(t, err)
}

func TestVaultSliceMustMatchDeployedSide(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	a := f.open(t)
	b := f.open(t)
	keeper := f.keeper(t)

	require.NoError(t, f.env.SetTick(-301))
	_, err := f.env.Decrease(f.ctx, keeper, a)
	require.NoError(t, err)
	require.NoError(t, f.env.SetTick(301))
	_, err = f.env.Decrease(f.ctx, keeper, b)
	require.NoError(t, err)
	require.Equal(t, strategy.DeployedToken0, f.userState(t, a).TokenDeployed)
	require.Equal(t, strategy.DeployedToken1, f.userState(t, b).TokenDeployed)

	lp0 := f.env.GlobalTokenAccount(f.env.Vault0.State.LpMint)
	lp1 := f.env.GlobalTokenAccount(f.env.Vault1.State.LpMint)
	require.NoError(t, f.env.SetTick(0))

	remaining, err := f.env.IncreaseAccounts(a, strategy.DeployedToken1)
	require.NoError(t, err)
	err = f.process(keeper, strategy.NewKeeperIncreasePositionInstruction(keeper, a.UserState, 0, remaining))
	require.ErrorIs(t, err, strategy.ErrInvalidTokenAccount)

	remaining, err = f.env.IncreaseAccounts(a, strategy.DeployedToken1)
	require.NoError(t, err)
	err = f.process(a.Owner, strategy.NewClosePositionInstruction(a.Owner, a.NftMint, 0, remaining))
	require.ErrorIs(t, err, strategy.ErrInvalidTokenAccount)

	require.True(t, f.userState(t, a).IsDeployed())
	require.Equal(t, uint64(positionLiquidity), f.env.Ledger.TokenBalance(lp0))
	require.Equal(t, uint64(positionLiquidity), f.env.Ledger.TokenBalance(lp1))

	// b still owns its shares
	require.NoError(t, f.env.CreditGlobal(f.env.Mint0, 500_000))
	_, err = f.env.Increase(f.ctx, keeper, b)
	require.NoError(t, err)
	require.Zero(t, f.env.Ledger.TokenBalance(lp1))
	require.False(t, f.userState(t, b).IsDeployed())
}

func TestCloseDeployed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	keeper := f.keeper(t)
	before := f.env.Ledger.Balance(p.Owner)

	require.NoError(t, f.env.SetTick(-301))
	_, err := f.env.Decrease(f.ctx, keeper, p)
	require.NoError(t, err)

	receipt, err := f.env.Close(f.ctx, p)
	require.NoError(t, err)
	require.True(t, invokedProgram(receipt, vault.ProgramID))

	require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.OwnerNftAccount))
	liquidity, err := f.env.Liquidity(p)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(positionLiquidity), liquidity)
	_, ok := f.env.Ledger.Account(p.UserState)
	require.False(t, ok)
	require.Greater(t, f.env.Ledger.Balance(p.Owner), before)
	require.Zero(t, f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Vault0.State.LpMint)))
}

func TestCloseRejectsOtherUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	other, err := f.env.NewWallet(solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	ix := strategy.NewClosePositionInstruction(other, p.NftMint, 0, nil)
	require.ErrorIs(t, f.process(other, ix), strategy.ErrUnauthorizedUser)
	require.Equal(t, uint64(1), f.env.Ledger.TokenBalance(p.Custody))
}

func TestKeeperRewards(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{})
	p := f.open(t)
	keeper := f.keeper(t)

	require.NoError(t, f.env.SetTick(-301))
	_, err := f.env.Decrease(f.ctx, keeper, p)
	require.NoError(t, err)
	require.NoError(t, f.env.SetTick(-150))
	_, err = f.env.Increase(f.ctx, keeper, p)
	require.NoError(t, err)
	require.Equal(t, uint64(200), f.credits(t, keeper))

	_, err = f.env.WithdrawRewards(f.ctx, keeper, keeper)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, uint64(200), f.credits(t, keeper))

	require.NoError(t, f.env.FundRewards(f.ctx, 5_000_000))
	recipient := solana.NewWallet().PublicKey()
	_, err = f.env.WithdrawRewards(f.ctx, keeper, recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(200*sim.DefaultParams.SolPerCredit), f.env.Ledger.Balance(recipient))
	require.Zero(t, f.credits(t, keeper))

	_, err = f.env.WithdrawRewards(f.ctx, keeper, recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(200*sim.DefaultParams.SolPerCredit), f.env.Ledger.Balance(recipient))

	other := f.keeper(t)
	ix := strategy.NewKeeperWithdrawRewardsInstruction(other, other)
	ix.AccountMetaSlice[0].PublicKey, _ = strategy.DeriveKeeperStateAddress(keeper)
	require.ErrorIs(t, f.process(other, ix), strategy.ErrUnauthorizedAction)
}

func TestAdmin(t *testing.T) {
	t.Parallel()

	t.Run("change config", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		require.NoError(t, f.env.ChangeConfig(f.ctx,
			strategy.SetCreditsForDecrease(7),
			strategy.SetCreditsForIncrease(9),
			strategy.SetSolPerCredit(11),
			strategy.SetBaseDeposit(13),
			strategy.SetFeeBasisPoints(10_000),
			strategy.SetStateBit(5, true),
		))
		g, err := f.env.GlobalState()
		require.NoError(t, err)
		require.Equal(t, uint64(7), g.CreditsForDecrease)
		require.Equal(t, uint64(9), g.CreditsForIncrease)
		require.Equal(t, uint64(11), g.SolPerCredit)
		require.Equal(t, uint64(13), g.BaseDeposit)
		require.Equal(t, uint16(10_000), g.FeeBasisPoints)
		require.Equal(t, sim.DefaultParams.State|1<<5, g.State)

		err = f.env.ChangeConfig(f.ctx, strategy.SetFeeBasisPoints(10_001))
		require.ErrorIs(t, err, ledger.ErrInvalidArgument)
		err = f.env.ChangeConfig(f.ctx, strategy.SetStateBit(8, true))
		require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})

	t.Run("only the admin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		mallory, err := f.env.NewWallet(solana.LAMPORTS_PER_SOL)
		require.NoError(t, err)
		for name, ix := range map[string]solana.Instruction{
			"change config":   strategy.NewChangeConfigInstruction(mallory, strategy.SetFeeBasisPoints(0)),
			"whitelist":       strategy.NewWhitelistMintInstruction(mallory, f.env.Vault0.State.LpMint),
			"unwhitelist":     strategy.NewUnwhitelistMintInstruction(mallory, f.env.Mint0),
			"withdraw sol":    strategy.NewAdminWithdrawSolInstruction(mallory, mallory, 1),
			"withdraw tokens": strategy.NewAdminWithdrawTokensInstruction(mallory, f.env.Mint0, mallory, 1),
		} {
			require.ErrorIs(t, f.process(mallory, ix), strategy.ErrUnauthorizedAction, name)
		}
	})

	t.Run("hand over admin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		next := solana.NewWallet().PublicKey()
		require.NoError(t, f.env.ChangeConfig(f.ctx, strategy.SetAdmin(next)))
		err := f.env.ChangeConfig(f.ctx, strategy.SetBaseDeposit(0))
		require.ErrorIs(t, err, strategy.ErrUnauthorizedAction)
		require.NoError(t, f.process(next, strategy.NewChangeConfigInstruction(next, strategy.SetBaseDeposit(0))))
	})

	t.Run("initialize once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		ix := strategy.NewInitializeConfigInstruction(f.env.Admin, sim.DefaultParams)
		_, err := f.env.Process(f.ctx, []solana.PublicKey{f.env.Admin, strategy.BootstrapKey}, ix)
		require.ErrorIs(t, err, ledger.ErrAccountAlreadyInUse)
	})

	t.Run("withdraw sol keeps rent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, sim.Config{})
		require.NoError(t, f.env.FundRewards(f.ctx, 2_000_000))
		recipient := solana.NewWallet().PublicKey()
		require.NoError(t, f.process(f.env.Admin, strategy.NewAdminWithdrawSolInstruction(f.env.Admin, recipient, 1_500_000)))
		require.Equal(t, uint64(1_500_000), f.env.Ledger.Balance(recipient))
		err := f.process(f.env.Admin, strategy.NewAdminWithdrawSolInstruction(f.env.Admin, recipient, 500_001))
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	})
}

func TestParallelPositions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, sim.Config{Clock: clockwork.NewRealClock(), MaxRetries: 20})

	const n = 4
	positions := make([]*sim.Position, n)
	keepers := make([]solana.PublicKey, n)
	for i := range n {
		positions[i] = f.open(t)
		keepers[i] = f.keeper(t)
	}
	require.NoError(t, f.env.SetTick(-301))

	g, ctx := errgroup.WithContext(f.ctx)
	for i := range n {
		g.Go(func() error {
			_, err := f.env.Decrease(ctx, keepers[i], positions[i])
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := range n {
		u := f.userState(t, positions[i])
		require.Equal(t, strategy.DeployedToken0, u.TokenDeployed)
		require.Equal(t, uint64(positionLiquidity), u.VaultDeposit)
		require.Equal(t, uint64(100), f.credits(t, keepers[i]))
	}
	require.Equal(t, uint64(n*positionLiquidity), f.env.Ledger.TokenBalance(f.env.GlobalTokenAccount(f.env.Vault0.State.LpMint)))
}
