package clmm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
	"github.com/krazyTry/meteora-strategy/u128"
)

var (
	ErrNotApproved         = errors.New("clmm: not approved")
	ErrInvalidPoolAccount  = errors.New("clmm: invalid pool account")
	ErrInvalidLiquidity    = errors.New("clmm: invalid liquidity")
	ErrPriceSlippageCheck  = errors.New("clmm: price slippage check")
	ErrUnknownInstruction  = errors.New("clmm: unknown instruction")
	ErrNotEnoughAccounts   = errors.New("clmm: not enough accounts")
	ErrAmountExceedsU64    = errors.New("clmm: token amount exceeds u64")
	ErrInvalidTokenAccount = errors.New("clmm: invalid token account")
)

// Simulator executes decrease_liquidity_v2 and increase_liquidity_v2 against
// pool and position accounts held in a ledger.
//
// Token amounts follow a linear model over the position range: below the
// range liquidity is all token 0, above it all token 1, and in between the
// split is proportional to the distance from each bound. Minimum and maximum
// amounts of zero are not enforced.
type Simulator struct{}

func (Simulator) ProgramID() solana.PublicKey { return ProgramID }

func (s Simulator) Process(ic *ledger.InvokeContext) error {
	data := ic.Data()
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], DecreaseLiquidityV2Discriminator[:]):
		args, err := DecodeDecreaseLiquidityV2(data)
		if err != nil {
			return err
		}
		return s.decrease(ic, args)
	case len(data) >= 8 && bytes.Equal(data[:8], IncreaseLiquidityV2Discriminator[:]):
		args, err := DecodeIncreaseLiquidityV2(data)
		if err != nil {
			return err
		}
		return s.increase(ic, args)
	default:
		return ErrUnknownInstruction
	}
}

type positionContext struct {
	poolKey     solana.PublicKey
	pool        *PoolState
	poolRaw     *ledger.Account
	position    *PersonalPositionState
	positionRaw *ledger.Account
}

func (c *positionContext) poolSeeds() [][]byte {
	return [][]byte{
		[]byte(PoolSeed),
		c.pool.AmmConfig.Bytes(),
		c.pool.TokenMint0.Bytes(),
		c.pool.TokenMint1.Bytes(),
		{c.pool.Bump},
	}
}

func (c *positionContext) store() error {
	if err := c.pool.Patch(c.poolRaw.Data); err != nil {
		return err
	}
	data, err := c.position.Encode()
	if err != nil {
		return err
	}
	c.positionRaw.Data = data
	return nil
}

// load checks the NFT owner, the NFT account and the pool/position binding.
func load(ic *ledger.InvokeContext, nftOwner, nftAccount, poolKey, positionKey solana.PublicKey) (*positionContext, error) {
	if !ic.IsSigner(nftOwner) {
		return nil, fmt.Errorf("%w: nft owner %s did not sign", ledger.ErrMissingRequiredSignature, nftOwner)
	}
	poolRaw, err := ic.Account(poolKey)
	if err != nil {
		return nil, err
	}
	if !poolRaw.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPoolAccount, poolKey)
	}
	pool, err := DecodePoolState(poolRaw.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoolAccount, err)
	}
	positionRaw, err := ic.Account(positionKey)
	if err != nil {
		return nil, err
	}
	if !positionRaw.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("%w: position %s", ErrNotApproved, positionKey)
	}
	position, err := DecodePersonalPositionState(positionRaw.Data)
	if err != nil {
		return nil, err
	}
	if !position.PoolID.Equals(poolKey) {
		return nil, fmt.Errorf("%w: position belongs to pool %s", ErrInvalidPoolAccount, position.PoolID)
	}

	nftRaw, err := ic.Account(nftAccount)
	if err != nil {
		return nil, err
	}
	if !nftRaw.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: nft account %s", ErrNotApproved, nftAccount)
	}
	nft, err := solanago.DecodeTokenAccount(nftRaw.Data)
	if err != nil {
		return nil, err
	}
	if !nft.Owner.Equals(nftOwner) || nft.Amount != 1 || !nft.Mint.Equals(position.NftMint) {
		return nil, fmt.Errorf("%w: nft account %s", ErrNotApproved, nftAccount)
	}
	return &positionContext{
		poolKey:     poolKey,
		pool:        pool,
		poolRaw:     poolRaw,
		position:    position,
		positionRaw: positionRaw,
	}, nil
}

func (c *positionContext) checkVaults(vault0, vault1, mint0, mint1 solana.PublicKey) error {
	if !vault0.Equals(c.pool.TokenVault0) || !vault1.Equals(c.pool.TokenVault1) {
		return fmt.Errorf("%w: token vault mismatch", ErrInvalidPoolAccount)
	}
	if !mint0.Equals(c.pool.TokenMint0) || !mint1.Equals(c.pool.TokenMint1) {
		return fmt.Errorf("%w: token mint mismatch", ErrInvalidPoolAccount)
	}
	return nil
}

func (s Simulator) decrease(ic *ledger.InvokeContext, args *DecreaseLiquidityV2Instruction) error {
	metas := ic.Accounts()
	if len(metas) < DecreaseLiquidityV2AccountsLen {
		return ErrNotEnoughAccounts
	}
	c, err := load(ic, metas[0].PublicKey, metas[1].PublicKey, metas[3].PublicKey, metas[2].PublicKey)
	if err != nil {
		return err
	}
	vault0, vault1 := metas[5].PublicKey, metas[6].PublicKey
	recipient0, recipient1 := metas[9].PublicKey, metas[10].PublicKey
	mint0, mint1 := metas[14].PublicKey, metas[15].PublicKey
	if err := c.checkVaults(vault0, vault1, mint0, mint1); err != nil {
		return err
	}

	remaining, err := u128.CheckedSub(c.position.Liquidity, args.Liquidity)
	if args.Liquidity.IsZero() || err != nil {
		return fmt.Errorf("%w: remove %s of %s", ErrInvalidLiquidity, args.Liquidity, c.position.Liquidity)
	}
	amount0, amount1, err := AmountsForLiquidity(args.Liquidity, c.pool.TickCurrent, c.position.TickLowerIndex, c.position.TickUpperIndex, false)
	if err != nil {
		return err
	}
	if amount0 < args.Amount0Min || amount1 < args.Amount1Min {
		return fmt.Errorf("%w: got %d/%d", ErrPriceSlippageCheck, amount0, amount1)
	}

	c.position.Liquidity = remaining
	if c.inRange() {
		if active, err := u128.CheckedSub(c.pool.Liquidity, args.Liquidity); err == nil {
			c.pool.Liquidity = active
		}
	}
	if err := c.store(); err != nil {
		return err
	}

	seeds := c.poolSeeds()
	if amount0 > 0 {
		ix := solanago.TransferInstruction(c.poolKey, vault0, recipient0, mint0, c.pool.MintDecimals0, amount0)
		if err := ic.Invoke(ix, seeds); err != nil {
			return err
		}
	}
	if amount1 > 0 {
		ix := solanago.TransferInstruction(c.poolKey, vault1, recipient1, mint1, c.pool.MintDecimals1, amount1)
		if err := ic.Invoke(ix, seeds); err != nil {
			return err
		}
	}
	ic.Log("decrease liquidity", "position", c.position.NftMint, "liquidity", args.Liquidity, "amount0", amount0, "amount1", amount1)
	return nil
}

func (s Simulator) increase(ic *ledger.InvokeContext, args *IncreaseLiquidityV2Instruction) error {
	metas := ic.Accounts()
	if len(metas) < IncreaseLiquidityV2AccountsLen {
		return ErrNotEnoughAccounts
	}
	owner := metas[0].PublicKey
	c, err := load(ic, owner, metas[1].PublicKey, metas[2].PublicKey, metas[4].PublicKey)
	if err != nil {
		return err
	}
	source0, source1 := metas[7].PublicKey, metas[8].PublicKey
	vault0, vault1 := metas[9].PublicKey, metas[10].PublicKey
	mint0, mint1 := metas[13].PublicKey, metas[14].PublicKey
	if err := c.checkVaults(vault0, vault1, mint0, mint1); err != nil {
		return err
	}

	liquidity := args.Liquidity
	if liquidity.IsZero() {
		if args.BaseFlag == nil {
			return fmt.Errorf("%w: zero liquidity without base flag", ErrInvalidLiquidity)
		}
		if *args.BaseFlag {
			liquidity, err = LiquidityForAmount0(args.Amount0Max, c.pool.TickCurrent, c.position.TickLowerIndex, c.position.TickUpperIndex)
		} else {
			liquidity, err = LiquidityForAmount1(args.Amount1Max, c.pool.TickCurrent, c.position.TickLowerIndex, c.position.TickUpperIndex)
		}
		if err != nil {
			return err
		}
	}
	amount0, amount1, err := AmountsForLiquidity(liquidity, c.pool.TickCurrent, c.position.TickLowerIndex, c.position.TickUpperIndex, true)
	if err != nil {
		return err
	}
	if (args.Amount0Max > 0 && amount0 > args.Amount0Max) || (args.Amount1Max > 0 && amount1 > args.Amount1Max) {
		return fmt.Errorf("%w: need %d/%d", ErrPriceSlippageCheck, amount0, amount1)
	}

	if c.position.Liquidity, err = checkedAddLiquidity(c.position.Liquidity, liquidity); err != nil {
		return err
	}
	if c.inRange() {
		if c.pool.Liquidity, err = checkedAddLiquidity(c.pool.Liquidity, liquidity); err != nil {
			return err
		}
	}
	if err := c.store(); err != nil {
		return err
	}

	if amount0 > 0 {
		if err := ic.Invoke(solanago.TransferInstruction(owner, source0, vault0, mint0, c.pool.MintDecimals0, amount0)); err != nil {
			return err
		}
	}
	if amount1 > 0 {
		if err := ic.Invoke(solanago.TransferInstruction(owner, source1, vault1, mint1, c.pool.MintDecimals1, amount1)); err != nil {
			return err
		}
	}
	ic.Log("increase liquidity", "position", c.position.NftMint, "liquidity", liquidity, "amount0", amount0, "amount1", amount1)
	return nil
}

func (c *positionContext) inRange() bool {
	return c.pool.TickCurrent >= c.position.TickLowerIndex && c.pool.TickCurrent < c.position.TickUpperIndex
}

func checkedAddLiquidity(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum, err := u128.CheckedAdd(a, b)
	if err != nil {
		return uint128.Zero, fmt.Errorf("%w: %w", ErrInvalidLiquidity, err)
	}
	return sum, nil
}
