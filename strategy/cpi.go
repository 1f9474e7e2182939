package strategy

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
	"github.com/krazyTry/meteora-strategy/vault"
)

func depositToVault(ic *ledger.InvokeContext, accounts vaultAccounts, depositor authority, amount, lpMin uint64) error {
	ix := &vault.DepositInstruction{
		TokenAmount:          amount,
		MinimumLpTokenAmount: lpMin,
		AccountMetaSlice:     outboundMetas(ic, accounts, vaultDepositorMeta),
	}
	if err := depositor.invoke(ic, ix); err != nil {
		return fmt.Errorf("vault deposit: %w", err)
	}
	return nil
}

func withdrawFromVault(ic *ledger.InvokeContext, accounts vaultAccounts, depositor authority, lpAmount, minOut uint64) error {
	ix := &vault.WithdrawInstruction{
		UnmintAmount:     lpAmount,
		MinOutAmount:     minOut,
		AccountMetaSlice: outboundMetas(ic, accounts, vaultDepositorMeta),
	}
	if err := depositor.invoke(ic, ix); err != nil {
		return fmt.Errorf("vault withdraw: %w", err)
	}
	return nil
}

func decreaseLiquidity(ic *ledger.InvokeContext, accounts decreaseAccounts, owner authority, liquidity uint128.Uint128) error {
	ix := &clmm.DecreaseLiquidityV2Instruction{
		Liquidity:        liquidity,
		AccountMetaSlice: outboundMetas(ic, accounts, ammNftOwnerMeta),
	}
	if err := owner.invoke(ic, ix); err != nil {
		return fmt.Errorf("amm decrease liquidity: %w", err)
	}
	return nil
}

func increaseLiquidity(ic *ledger.InvokeContext, accounts increaseAccounts, owner authority, args increaseArgs) error {
	ix := &clmm.IncreaseLiquidityV2Instruction{
		Liquidity:        args.liquidity,
		Amount0Max:       args.amount0Max,
		Amount1Max:       args.amount1Max,
		BaseFlag:         args.baseFlag,
		AccountMetaSlice: outboundMetas(ic, accounts, ammNftOwnerMeta),
	}
	if err := owner.invoke(ic, ix); err != nil {
		return fmt.Errorf("amm increase liquidity: %w", err)
	}
	return nil
}

// withNftOwner hands the owner authority of the custodied NFT account from
// holder to delegate for the duration of fn and hands it back afterwards,
// also when fn fails.
func withNftOwner(ic *ledger.InvokeContext, nftAccount solana.PublicKey, holder, delegate authority, fn func() error) (err error) {
	if err := holder.invoke(ic, solanago.SetOwnerInstruction(nftAccount, holder.Key(), delegate.Key())); err != nil {
		return fmt.Errorf("delegate nft account: %w", err)
	}
	defer func() {
		if restoreErr := delegate.invoke(ic, solanago.SetOwnerInstruction(nftAccount, delegate.Key(), holder.Key())); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore nft account owner: %w", restoreErr))
		}
	}()
	return fn()
}

// tokenAccount decodes key as an SPL token account visible to the frame.
func tokenAccount(ic *ledger.InvokeContext, key solana.PublicKey) (*solanago.Account, error) {
	a, err := ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenAccount, key)
	}
	state, err := solanago.DecodeTokenAccount(a.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTokenAccount, key, err)
	}
	return state, nil
}

func tokenBalance(ic *ledger.InvokeContext, key solana.PublicKey) (uint64, error) {
	state, err := tokenAccount(ic, key)
	if err != nil {
		return 0, err
	}
	return state.Amount, nil
}

// measure returns how much the balance of key grew while fn ran.
func measure(ic *ledger.InvokeContext, key solana.PublicKey, fn func() error) (uint64, error) {
	before, err := tokenBalance(ic, key)
	if err != nil {
		return 0, err
	}
	if err := fn(); err != nil {
		return 0, err
	}
	after, err := tokenBalance(ic, key)
	if err != nil {
		return 0, err
	}
	if after < before {
		return 0, fmt.Errorf("%w: balance of %s fell from %d to %d", ErrNumericalOverflow, key, before, after)
	}
	return after - before, nil
}
