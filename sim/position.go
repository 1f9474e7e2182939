package sim

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
	"github.com/krazyTry/meteora-strategy/strategy"
	"github.com/krazyTry/meteora-strategy/u128"
	"github.com/krazyTry/meteora-strategy/vault"
)

// Position is a CLMM position NFT held by Owner and the strategy accounts
// derived from it.
type Position struct {
	Owner            solana.PublicKey
	NftMint          solana.PublicKey
	OwnerNftAccount  solana.PublicKey
	PersonalPosition solana.PublicKey
	UserState        solana.PublicKey
	Custody          solana.PublicKey
	TickLower        int32
	TickUpper        int32
}

// Bands are the threshold ticks a position is opened with.
type Bands struct {
	InLower  int32
	InUpper  int32
	OutLower int32
	OutUpper int32
}

// BandsAround spreads the inner band inner ticks and the outer band outer
// ticks beyond the position range.
func BandsAround(p *Position, inner, outer int32) Bands {
	return Bands{
		InLower:  p.TickLower - inner,
		InUpper:  p.TickUpper + inner,
		OutLower: p.TickLower - outer,
		OutUpper: p.TickUpper + outer,
	}
}

// NewWallet funds a fresh key with lamports.
func (e *Environment) NewWallet(lamports uint64) (solana.PublicKey, error) {
	key := solana.NewWallet().PublicKey()
	if err := e.Ledger.Fund(key, lamports); err != nil {
		return solana.PublicKey{}, err
	}
	return key, nil
}

// MintPosition creates a CLMM position of liquidity over [tickLower,
// tickUpper] whose NFT sits in owner's associated token account.
func (e *Environment) MintPosition(owner solana.PublicKey, tickLower, tickUpper int32, liquidity uint128.Uint128) (*Position, error) {
	if tickLower >= tickUpper {
		return nil, fmt.Errorf("tick range [%d, %d] is empty", tickLower, tickUpper)
	}
	nftMint := solana.NewWallet().PublicKey()
	if err := e.Ledger.SetMint(nftMint, &token.Mint{Supply: 1, IsInitialized: true}); err != nil {
		return nil, err
	}
	personal, bump := clmm.DerivePersonalPositionAddress(nftMint)
	if err := clmm.SetPersonalPosition(e.Ledger, personal, &clmm.PersonalPositionState{
		Bump:           bump,
		NftMint:        nftMint,
		PoolID:         e.Pool,
		TickLowerIndex: tickLower,
		TickUpperIndex: tickUpper,
		Liquidity:      liquidity,
	}); err != nil {
		return nil, err
	}

	pool, err := clmm.Pool(e.Ledger, e.Pool)
	if err != nil {
		return nil, err
	}
	if pool.TickCurrent >= tickLower && pool.TickCurrent < tickUpper {
		if err := e.Ledger.Update(e.Pool, func(a *ledger.Account) error {
			active, err := u128.CheckedAdd(pool.Liquidity, liquidity)
			if err != nil {
				return err
			}
			pool.Liquidity = active
			return pool.Patch(a.Data)
		}); err != nil {
			return nil, err
		}
	}

	p := &Position{
		Owner:            owner,
		NftMint:          nftMint,
		OwnerNftAccount:  solanago.FindAssociatedTokenAddress(owner, nftMint),
		PersonalPosition: personal,
		TickLower:        tickLower,
		TickUpper:        tickUpper,
	}
	p.UserState, _ = strategy.DeriveUserStateAddress(nftMint)
	p.Custody = solanago.FindAssociatedTokenAddress(p.UserState, nftMint)
	if err := e.Ledger.SetTokenAccount(p.OwnerNftAccount, &solanago.Account{
		Mint:   nftMint,
		Owner:  owner,
		Amount: 1,
		State:  solanago.AccountStateInitialized,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// UserState reads the strategy record of p.
func (e *Environment) UserState(p *Position) (*strategy.UserState, error) {
	a, ok := e.Ledger.Account(p.UserState)
	if !ok {
		return nil, errors.New("position record not found")
	}
	return strategy.DecodeUserState(a.Data)
}

func (e *Environment) Liquidity(p *Position) (uint128.Uint128, error) {
	personal, err := clmm.PersonalPosition(e.Ledger, p.PersonalPosition)
	if err != nil {
		return uint128.Zero, err
	}
	return personal.Liquidity, nil
}

// vaultAccounts is the deposit or withdraw account set of the global state
// against the vault of mint.
func (e *Environment) vaultAccounts(mint solana.PublicKey) (*vault.Accounts, error) {
	ref, err := e.Vault(mint)
	if err != nil {
		return nil, err
	}
	return vault.NewAccounts(
		ref.Key,
		ref.State,
		e.Global,
		e.GlobalTokenAccount(mint),
		e.GlobalTokenAccount(ref.State.LpMint),
	), nil
}

func (e *Environment) tickArrays(p *Position) (lower, upper solana.PublicKey) {
	spacing := e.PoolState.TickSpacing
	lower = clmm.DeriveTickArrayAddress(e.Pool, clmm.TickArrayStartIndex(p.TickLower, spacing))
	upper = clmm.DeriveTickArrayAddress(e.Pool, clmm.TickArrayStartIndex(p.TickUpper, spacing))
	return lower, upper
}

// DecreaseAccounts builds the remaining accounts of a keeper decrease for p
// when the tick is on side.
func (e *Environment) DecreaseAccounts(p *Position, side strategy.DeployedToken) (solana.AccountMetaSlice, error) {
	mint := e.Mint0
	if side == strategy.DeployedToken1 {
		mint = e.Mint1
	}
	deposit, err := e.vaultAccounts(mint)
	if err != nil {
		return nil, err
	}
	lower, upper := e.tickArrays(p)
	return strategy.DecreaseRemainingAccounts(deposit, &clmm.DecreaseLiquidityV2Accounts{
		NftOwner:         p.UserState,
		NftAccount:       p.Custody,
		PersonalPosition: p.PersonalPosition,
		PoolState:        e.Pool,
		ProtocolPosition: clmm.DeriveProtocolPositionAddress(e.Pool, p.TickLower, p.TickUpper),
		TokenVault0:      e.PoolState.TokenVault0,
		TokenVault1:      e.PoolState.TokenVault1,
		TickArrayLower:   lower,
		TickArrayUpper:   upper,
		Recipient0:       e.GlobalTokenAccount(e.Mint0),
		Recipient1:       e.GlobalTokenAccount(e.Mint1),
		TokenProgram:     solana.TokenProgramID,
		TokenProgram2022: solana.Token2022ProgramID,
		MemoProgram:      solana.MemoProgramID,
		VaultMint0:       e.Mint0,
		VaultMint1:       e.Mint1,
	}), nil
}

// IncreaseAccounts builds the remaining accounts that return the deployed
// side of p to the AMM.
func (e *Environment) IncreaseAccounts(p *Position, side strategy.DeployedToken) (solana.AccountMetaSlice, error) {
	mint := e.Mint0
	if side == strategy.DeployedToken1 {
		mint = e.Mint1
	}
	withdraw, err := e.vaultAccounts(mint)
	if err != nil {
		return nil, err
	}
	lower, upper := e.tickArrays(p)
	return strategy.IncreaseRemainingAccounts(withdraw, &clmm.IncreaseLiquidityV2Accounts{
		NftOwner:         e.Global,
		NftAccount:       p.Custody,
		PoolState:        e.Pool,
		ProtocolPosition: clmm.DeriveProtocolPositionAddress(e.Pool, p.TickLower, p.TickUpper),
		PersonalPosition: p.PersonalPosition,
		TickArrayLower:   lower,
		TickArrayUpper:   upper,
		TokenAccount0:    e.GlobalTokenAccount(e.Mint0),
		TokenAccount1:    e.GlobalTokenAccount(e.Mint1),
		TokenVault0:      e.PoolState.TokenVault0,
		TokenVault1:      e.PoolState.TokenVault1,
		TokenProgram:     solana.TokenProgramID,
		TokenProgram2022: solana.Token2022ProgramID,
		VaultMint0:       e.Mint0,
		VaultMint1:       e.Mint1,
	}), nil
}
