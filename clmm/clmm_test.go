package clmm

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/ledger"
	"github.com/krazyTry/meteora-strategy/logger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
)

type poolFixture struct {
	l          *ledger.Ledger
	owner      solana.PublicKey
	pool       solana.PublicKey
	position   solana.PublicKey
	nftMint    solana.PublicKey
	nftAccount solana.PublicKey
	mint0      solana.PublicKey
	mint1      solana.PublicKey
	vault0     solana.PublicKey
	vault1     solana.PublicKey
	owner0     solana.PublicKey
	owner1     solana.PublicKey
}

func newPoolFixture(t *testing.T, tick int32) *poolFixture {
	t.Helper()
	l, err := ledger.New(ledger.Config{Logger: logger.NewTest(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	l.Register(Simulator{})

	f := &poolFixture{
		l:       l,
		owner:   solana.NewWallet().PublicKey(),
		nftMint: solana.NewWallet().PublicKey(),
		mint0:   solana.NewWallet().PublicKey(),
		mint1:   solana.NewWallet().PublicKey(),
	}
	require.NoError(t, l.Fund(f.owner, 1_000_000_000))
	for _, m := range []solana.PublicKey{f.mint0, f.mint1, f.nftMint} {
		decimals := uint8(6)
		if m == f.nftMint {
			decimals = 0
		}
		require.NoError(t, l.SetMint(m, &token.Mint{Decimals: decimals, IsInitialized: true}))
	}

	ammConfig := solana.NewWallet().PublicKey()
	var bump uint8
	f.pool, bump = DerivePoolAddress(ammConfig, f.mint0, f.mint1)
	f.vault0 = DerivePoolVaultAddress(f.pool, f.mint0)
	f.vault1 = DerivePoolVaultAddress(f.pool, f.mint1)
	require.NoError(t, SetPool(l, f.pool, &PoolState{
		Bump:          bump,
		AmmConfig:     ammConfig,
		TokenMint0:    f.mint0,
		TokenMint1:    f.mint1,
		TokenVault0:   f.vault0,
		TokenVault1:   f.vault1,
		MintDecimals0: 6,
		MintDecimals1: 6,
		TickSpacing:   10,
		Liquidity:     uint128.From64(1_000_000),
		TickCurrent:   tick,
	}))
	require.NoError(t, l.SetTokenAccount(f.vault0, &solanago.Account{Mint: f.mint0, Owner: f.pool, Amount: 10_000_000, State: solanago.AccountStateInitialized}))
	require.NoError(t, l.SetTokenAccount(f.vault1, &solanago.Account{Mint: f.mint1, Owner: f.pool, Amount: 10_000_000, State: solanago.AccountStateInitialized}))

	f.position, _ = DerivePersonalPositionAddress(f.nftMint)
	require.NoError(t, SetPersonalPosition(l, f.position, &PersonalPositionState{
		NftMint:        f.nftMint,
		PoolID:         f.pool,
		TickLowerIndex: -100,
		TickUpperIndex: 100,
		Liquidity:      uint128.From64(1_000_000),
	}))

	f.nftAccount = solanago.FindAssociatedTokenAddress(f.owner, f.nftMint)
	f.owner0 = solanago.FindAssociatedTokenAddress(f.owner, f.mint0)
	f.owner1 = solanago.FindAssociatedTokenAddress(f.owner, f.mint1)
	require.NoError(t, l.SetTokenAccount(f.nftAccount, &solanago.Account{Mint: f.nftMint, Owner: f.owner, Amount: 1, State: solanago.AccountStateInitialized}))
	require.NoError(t, l.SetTokenAccount(f.owner0, &solanago.Account{Mint: f.mint0, Owner: f.owner, State: solanago.AccountStateInitialized}))
	require.NoError(t, l.SetTokenAccount(f.owner1, &solanago.Account{Mint: f.mint1, Owner: f.owner, State: solanago.AccountStateInitialized}))
	return f
}

func (f *poolFixture) decreaseAccounts() *DecreaseLiquidityV2Accounts {
	return &DecreaseLiquidityV2Accounts{
		NftOwner:         f.owner,
		NftAccount:       f.nftAccount,
		PersonalPosition: f.position,
		PoolState:        f.pool,
		ProtocolPosition: DeriveProtocolPositionAddress(f.pool, -100, 100),
		TokenVault0:      f.vault0,
		TokenVault1:      f.vault1,
		TickArrayLower:   DeriveTickArrayAddress(f.pool, TickArrayStartIndex(-100, 10)),
		TickArrayUpper:   DeriveTickArrayAddress(f.pool, TickArrayStartIndex(100, 10)),
		Recipient0:       f.owner0,
		Recipient1:       f.owner1,
		TokenProgram:     solana.TokenProgramID,
		TokenProgram2022: solana.Token2022ProgramID,
		MemoProgram:      solana.MemoProgramID,
		VaultMint0:       f.mint0,
		VaultMint1:       f.mint1,
	}
}

func (f *poolFixture) increaseAccounts() *IncreaseLiquidityV2Accounts {
	return &IncreaseLiquidityV2Accounts{
		NftOwner:         f.owner,
		NftAccount:       f.nftAccount,
		PoolState:        f.pool,
		ProtocolPosition: DeriveProtocolPositionAddress(f.pool, -100, 100),
		PersonalPosition: f.position,
		TickArrayLower:   DeriveTickArrayAddress(f.pool, TickArrayStartIndex(-100, 10)),
		TickArrayUpper:   DeriveTickArrayAddress(f.pool, TickArrayStartIndex(100, 10)),
		TokenAccount0:    f.owner0,
		TokenAccount1:    f.owner1,
		TokenVault0:      f.vault0,
		TokenVault1:      f.vault1,
		TokenProgram:     solana.TokenProgramID,
		TokenProgram2022: solana.Token2022ProgramID,
		VaultMint0:       f.mint0,
		VaultMint1:       f.mint1,
	}
}

func (f *poolFixture) process(signer solana.PublicKey, ix solana.Instruction) error {
	_, err := f.l.Process(context.Background(), &ledger.Transaction{
		Instructions: []solana.Instruction{ix},
		Signers:      []solana.PublicKey{signer},
	})
	return err
}

func (f *poolFixture) liquidity(t *testing.T) uint128.Uint128 {
	t.Helper()
	p, err := PersonalPosition(f.l, f.position)
	require.NoError(t, err)
	return p.Liquidity
}

func TestAmountsForLiquidity(t *testing.T) {
	t.Parallel()

	l := uint128.From64(999)
	tests := []struct {
		name    string
		tick    int32
		roundUp bool
		amount0 uint64
		amount1 uint64
	}{
		{name: "below range", tick: -500, amount0: 999},
		{name: "at lower bound", tick: -100, amount0: 999},
		{name: "above range", tick: 500, amount1: 999},
		{name: "at upper bound", tick: 100, amount1: 999},
		{name: "middle rounds down", tick: 0, amount0: 499, amount1: 499},
		{name: "middle rounds up", tick: 0, roundUp: true, amount0: 500, amount1: 500},
		{name: "skewed rounds down", tick: 33, amount0: 334, amount1: 664},
		{name: "skewed rounds up", tick: 33, roundUp: true, amount0: 335, amount1: 665},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a0, a1, err := AmountsForLiquidity(l, tt.tick, -100, 100, tt.roundUp)
			require.NoError(t, err)
			require.Equal(t, tt.amount0, a0)
			require.Equal(t, tt.amount1, a1)
		})
	}

	_, _, err := AmountsForLiquidity(l, 0, 100, 100, false)
	require.ErrorIs(t, err, ErrInvalidLiquidity)

	_, _, err = AmountsForLiquidity(uint128.Max, -500, -100, 100, false)
	require.ErrorIs(t, err, ErrAmountExceedsU64)
}

func TestLiquidityForSingleSide(t *testing.T) {
	t.Parallel()

	liq, err := LiquidityForAmount0(1_000, -500, -100, 100)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(1_000), liq)

	liq, err = LiquidityForAmount0(1_000, 0, -100, 100)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(2_000), liq)

	_, err = LiquidityForAmount0(1_000, 100, -100, 100)
	require.ErrorIs(t, err, ErrInvalidLiquidity)

	liq, err = LiquidityForAmount1(1_000, 500, -100, 100)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(1_000), liq)

	_, err = LiquidityForAmount1(1_000, -500, -100, 100)
	require.ErrorIs(t, err, ErrInvalidLiquidity)
}

func TestStateOffsets(t *testing.T) {
	t.Parallel()

	pool := &PoolState{TokenMint0: solana.NewWallet().PublicKey(), TokenMint1: solana.NewWallet().PublicKey(), TickCurrent: -12345}
	data, err := pool.Encode()
	require.NoError(t, err)
	require.Len(t, data, PoolStateSize)
	require.Equal(t, pool.TokenMint0.Bytes(), data[PoolTokenMint0Offset:PoolTokenMint0Offset+32])
	require.Equal(t, pool.TokenMint1.Bytes(), data[PoolTokenMint1Offset:PoolTokenMint1Offset+32])
	require.Equal(t, int32(-12345), int32(binary.LittleEndian.Uint32(data[PoolTickCurrentOffset:])))

	decoded, err := DecodePoolState(data)
	require.NoError(t, err)
	require.Equal(t, pool, decoded)

	position := &PersonalPositionState{
		NftMint:        solana.NewWallet().PublicKey(),
		PoolID:         solana.NewWallet().PublicKey(),
		TickLowerIndex: -60,
		TickUpperIndex: 120,
		Liquidity:      uint128.New(7, 1),
	}
	data, err = position.Encode()
	require.NoError(t, err)
	require.Len(t, data, PersonalPositionStateSize)
	require.Equal(t, position.NftMint.Bytes(), data[PositionNftMintOffset:PositionNftMintOffset+32])
	require.Equal(t, position.PoolID.Bytes(), data[PositionPoolIDOffset:PositionPoolIDOffset+32])
	require.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[PositionLiquidityOffset:]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[PositionLiquidityOffset+8:]))

	poolData, err := pool.Encode()
	require.NoError(t, err)
	_, err = DecodePersonalPositionState(poolData[:PersonalPositionStateSize])
	require.ErrorIs(t, err, ErrAccountDiscriminator)
}

func TestInstructionData(t *testing.T) {
	t.Parallel()

	dec := NewDecreaseLiquidityV2Instruction(&DecreaseLiquidityV2Accounts{}, uint128.From64(42), 1, 2)
	data, err := dec.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+16+8+8)
	require.Len(t, dec.Accounts(), DecreaseLiquidityV2AccountsLen)
	require.True(t, dec.Accounts()[0].IsSigner)

	got, err := DecodeDecreaseLiquidityV2(data)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(42), got.Liquidity)
	require.Equal(t, uint64(2), got.Amount1Min)

	flag := false
	inc := NewIncreaseLiquidityV2Instruction(&IncreaseLiquidityV2Accounts{}, uint128.Zero, 0, 500, &flag)
	data, err = inc.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+16+8+8+2)
	require.Len(t, inc.Accounts(), IncreaseLiquidityV2AccountsLen)

	parsed, err := DecodeIncreaseLiquidityV2(data)
	require.NoError(t, err)
	require.NotNil(t, parsed.BaseFlag)
	require.False(t, *parsed.BaseFlag)

	inc.BaseFlag = nil
	data, err = inc.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+16+8+8+1)

	_, err = DecodeIncreaseLiquidityV2(data[:8])
	require.ErrorIs(t, err, ErrInstructionData)
	_, err = DecodeDecreaseLiquidityV2(data)
	require.ErrorIs(t, err, ErrInstructionData)
}

func TestSimulatorDecreaseThenIncrease(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, -200)

	{
		ix := NewDecreaseLiquidityV2Instruction(f.decreaseAccounts(), uint128.From64(1_000_000), 0, 0)
		require.NoError(t, f.process(f.owner, ix))
		require.Equal(t, uint64(1_000_000), f.l.TokenBalance(f.owner0))
		require.Equal(t, uint64(0), f.l.TokenBalance(f.owner1))
		require.Equal(t, uint64(9_000_000), f.l.TokenBalance(f.vault0))
		require.True(t, f.liquidity(t).IsZero())
	}

	{
		base := true
		ix := NewIncreaseLiquidityV2Instruction(f.increaseAccounts(), uint128.Zero, 1_000_000, 0, &base)
		require.NoError(t, f.process(f.owner, ix))
		require.Equal(t, uint64(0), f.l.TokenBalance(f.owner0))
		require.Equal(t, uint64(10_000_000), f.l.TokenBalance(f.vault0))
		require.Equal(t, uint128.From64(1_000_000), f.liquidity(t))
	}
}

func TestSimulatorRestoresLiquidityInRange(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, 0)

	ix := NewDecreaseLiquidityV2Instruction(f.decreaseAccounts(), uint128.From64(400_000), 0, 0)
	require.NoError(t, f.process(f.owner, ix))
	require.Equal(t, uint64(200_000), f.l.TokenBalance(f.owner0))
	require.Equal(t, uint64(200_000), f.l.TokenBalance(f.owner1))

	pool, err := Pool(f.l, f.pool)
	require.NoError(t, err)
	require.Equal(t, uint128.From64(600_000), pool.Liquidity)

	inc := NewIncreaseLiquidityV2Instruction(f.increaseAccounts(), uint128.From64(400_000), 0, 0, nil)
	require.NoError(t, f.process(f.owner, inc))
	require.Equal(t, uint64(0), f.l.TokenBalance(f.owner0))
	require.Equal(t, uint64(0), f.l.TokenBalance(f.owner1))
	require.Equal(t, uint128.From64(1_000_000), f.liquidity(t))
}

func TestSimulatorRejects(t *testing.T) {
	t.Parallel()

	t.Run("wrong nft owner", func(t *testing.T) {
		t.Parallel()
		f := newPoolFixture(t, -200)
		stranger := solana.NewWallet().PublicKey()
		accounts := f.decreaseAccounts()
		accounts.NftOwner = stranger
		err := f.process(stranger, NewDecreaseLiquidityV2Instruction(accounts, uint128.From64(1), 0, 0))
		require.ErrorIs(t, err, ErrNotApproved)
	})

	t.Run("too much liquidity", func(t *testing.T) {
		t.Parallel()
		f := newPoolFixture(t, -200)
		err := f.process(f.owner, NewDecreaseLiquidityV2Instruction(f.decreaseAccounts(), uint128.From64(1_000_001), 0, 0))
		require.ErrorIs(t, err, ErrInvalidLiquidity)
	})

	t.Run("minimum not met", func(t *testing.T) {
		t.Parallel()
		f := newPoolFixture(t, -200)
		err := f.process(f.owner, NewDecreaseLiquidityV2Instruction(f.decreaseAccounts(), uint128.From64(1_000), 0, 1))
		require.ErrorIs(t, err, ErrPriceSlippageCheck)
	})

	t.Run("swapped vault", func(t *testing.T) {
		t.Parallel()
		f := newPoolFixture(t, -200)
		accounts := f.decreaseAccounts()
		accounts.TokenVault0, accounts.TokenVault1 = accounts.TokenVault1, accounts.TokenVault0
		err := f.process(f.owner, NewDecreaseLiquidityV2Instruction(accounts, uint128.From64(1_000), 0, 0))
		require.ErrorIs(t, err, ErrInvalidPoolAccount)
	})

	t.Run("increase maximum exceeded", func(t *testing.T) {
		t.Parallel()
		f := newPoolFixture(t, 0)
		require.NoError(t, f.l.SetTokenAccount(f.owner0, &solanago.Account{Mint: f.mint0, Owner: f.owner, Amount: 1_000, State: solanago.AccountStateInitialized}))
		require.NoError(t, f.l.SetTokenAccount(f.owner1, &solanago.Account{Mint: f.mint1, Owner: f.owner, Amount: 1_000, State: solanago.AccountStateInitialized}))
		base := true
		err := f.process(f.owner, NewIncreaseLiquidityV2Instruction(f.increaseAccounts(), uint128.Zero, 1_000, 10, &base))
		require.ErrorIs(t, err, ErrPriceSlippageCheck)
		require.Equal(t, uint64(1_000), f.l.TokenBalance(f.owner0))
	})
}

func TestSetPoolTick(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, 0)

	require.NoError(t, SetPoolTick(f.l, f.pool, -101))
	pool, err := Pool(f.l, f.pool)
	require.NoError(t, err)
	require.Equal(t, int32(-101), pool.TickCurrent)

	require.Error(t, SetPoolTick(f.l, f.pool, MaxTick+1))
}
