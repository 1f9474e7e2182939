package sim

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
	"github.com/krazyTry/meteora-strategy/strategy"
)

// OpenPosition hands p to the strategy program. The owner pays for the
// position record and the base deposit.
func (e *Environment) OpenPosition(ctx context.Context, p *Position, bands Bands) error {
	ix := strategy.NewOpenPositionInstruction(&strategy.OpenPositionAccounts{
		Payer:            p.Owner,
		User:             p.Owner,
		NftMint:          p.NftMint,
		UserNftAccount:   p.OwnerNftAccount,
		PersonalPosition: p.PersonalPosition,
		PoolState:        e.Pool,
		Mint0:            e.Mint0,
		Mint1:            e.Mint1,
	}, strategy.OpenPositionArgs{
		InLower:  bands.InLower,
		InUpper:  bands.InUpper,
		OutLower: bands.OutLower,
		OutUpper: bands.OutUpper,
	})
	if _, err := e.Process(ctx, []solana.PublicKey{p.Owner}, ix); err != nil {
		return fmt.Errorf("open position %s: %w", p.NftMint, err)
	}
	return nil
}

// CreateKeeper funds a keeper key and registers its record.
func (e *Environment) CreateKeeper(ctx context.Context) (solana.PublicKey, error) {
	keeper, err := e.NewWallet(solana.LAMPORTS_PER_SOL)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ix := strategy.NewCreateKeeperAccountInstruction(keeper, keeper)
	if _, err := e.Process(ctx, []solana.PublicKey{keeper}, ix); err != nil {
		return solana.PublicKey{}, fmt.Errorf("create keeper: %w", err)
	}
	return keeper, nil
}

// KeeperState reads the record of keeper.
func (e *Environment) KeeperState(keeper solana.PublicKey) (*strategy.KeeperState, error) {
	key, _ := strategy.DeriveKeeperStateAddress(keeper)
	a, ok := e.Ledger.Account(key)
	if !ok {
		return nil, fmt.Errorf("keeper record of %s not found", keeper)
	}
	return strategy.DecodeKeeperState(a.Data)
}

// Decrease moves p out of the AMM into the vault of the side the tick left
// the outer band on.
func (e *Environment) Decrease(ctx context.Context, keeper solana.PublicKey, p *Position) (*ledger.Receipt, error) {
	u, err := e.UserState(p)
	if err != nil {
		return nil, err
	}
	pool, err := clmm.Pool(e.Ledger, e.Pool)
	if err != nil {
		return nil, err
	}
	side, err := u.OutOfRangeSide(pool.TickCurrent)
	if err != nil {
		return nil, err
	}
	remaining, err := e.DecreaseAccounts(p, side)
	if err != nil {
		return nil, err
	}
	ix := strategy.NewKeeperDecreasePositionInstruction(keeper, 0, remaining)
	return e.Process(ctx, []solana.PublicKey{keeper}, ix)
}

// Increase returns the deployed side of p to the AMM.
func (e *Environment) Increase(ctx context.Context, keeper solana.PublicKey, p *Position) (*ledger.Receipt, error) {
	u, err := e.UserState(p)
	if err != nil {
		return nil, err
	}
	remaining, err := e.IncreaseAccounts(p, u.TokenDeployed)
	if err != nil {
		return nil, err
	}
	ix := strategy.NewKeeperIncreasePositionInstruction(keeper, p.UserState, 0, remaining)
	return e.Process(ctx, []solana.PublicKey{keeper}, ix)
}

// Close releases p back to its owner, recalling it from the vault first
// when it is deployed.
func (e *Environment) Close(ctx context.Context, p *Position) (*ledger.Receipt, error) {
	u, err := e.UserState(p)
	if err != nil {
		return nil, err
	}
	var remaining solana.AccountMetaSlice
	if u.IsDeployed() {
		if remaining, err = e.IncreaseAccounts(p, u.TokenDeployed); err != nil {
			return nil, err
		}
	}
	ix := strategy.NewClosePositionInstruction(p.Owner, p.NftMint, 0, remaining)
	return e.Process(ctx, []solana.PublicKey{p.Owner}, ix)
}

// FundRewards moves lamports from the admin into the keeper reward vault.
func (e *Environment) FundRewards(ctx context.Context, lamports uint64) error {
	g, err := e.GlobalState()
	if err != nil {
		return err
	}
	_, err = e.Process(ctx, []solana.PublicKey{e.Admin}, solanago.TransferSOLInstruction(e.Admin, g.SolVault, lamports))
	return err
}

// WithdrawRewards pays the credits of keeper to recipient.
func (e *Environment) WithdrawRewards(ctx context.Context, keeper, recipient solana.PublicKey) (*ledger.Receipt, error) {
	ix := strategy.NewKeeperWithdrawRewardsInstruction(keeper, recipient)
	return e.Process(ctx, []solana.PublicKey{keeper}, ix)
}

// ChangeConfig applies changes as the admin in one transaction.
func (e *Environment) ChangeConfig(ctx context.Context, changes ...strategy.ConfigChange) error {
	ixs := make([]solana.Instruction, 0, len(changes))
	for _, c := range changes {
		ixs = append(ixs, strategy.NewChangeConfigInstruction(e.Admin, c))
	}
	_, err := e.Process(ctx, []solana.PublicKey{e.Admin}, ixs...)
	return err
}
