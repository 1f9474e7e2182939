package strategy

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/clmm"
	solanago "github.com/krazyTry/meteora-strategy/solana"
)

type increaseArgs struct {
	liquidity  uint128.Uint128
	amount0Max uint64
	amount1Max uint64
	baseFlag   *bool
}

// singleSidedArgs deposits amount on the deployed side and lets the AMM
// derive the liquidity from it.
func singleSidedArgs(side DeployedToken, amount uint64) (increaseArgs, error) {
	switch side {
	case DeployedToken0:
		base := true
		return increaseArgs{amount0Max: amount, baseFlag: &base}, nil
	case DeployedToken1:
		base := false
		return increaseArgs{amount1Max: amount, baseFlag: &base}, nil
	case DeployedNone:
		return increaseArgs{}, ErrDeployedSideMissing
	default:
		return increaseArgs{}, fmt.Errorf("%w: %s", ErrDeployedSideMissing, side)
	}
}

// accounts: keeper_state (w), keeper (s)
// remaining: vault deposit accounts, AMM decrease_liquidity_v2 accounts
func keeperDecreasePosition(c *call) error {
	var args DecreasePositionArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	keeperKey, keeper := c.key(0), c.key(1)
	k, err := c.keeperState(keeperKey, keeper)
	if err != nil {
		return err
	}
	vaultSlice, amm, err := splitDecrease(c.remaining)
	if err != nil {
		return err
	}
	g, globalSigner, err := c.globalState(vaultSlice.depositor())
	if err != nil {
		return err
	}
	if !g.CanDecreasePosition() {
		return ErrUnauthorizedAction
	}
	userKey := amm.nftOwner()
	u, userSigner, err := c.userState(userKey)
	if err != nil {
		return err
	}
	if u.IsDeployed() {
		return ErrPositionDeployed
	}
	for _, recipient := range amm.rewardRecipients() {
		acc, err := tokenAccount(c.ic, recipient)
		if err != nil {
			return err
		}
		if !acc.Owner.Equals(u.User) {
			return fmt.Errorf("%w: reward recipient %s", ErrInvalidTokenAccount, recipient)
		}
	}

	pool, err := c.pool(amm.pool())
	if err != nil {
		return err
	}
	position, err := c.personalPosition(amm.personalPosition())
	if err != nil {
		return err
	}
	if !position.NftMint.Equals(u.UserMint) {
		return ErrInvalidNFTMint
	}
	side, err := u.OutOfRangeSide(pool.TickCurrent)
	if err != nil {
		return err
	}

	globalKey := globalSigner.Key()
	if !solanago.IsATA(globalKey, amm.recipient0(), pool.TokenMint0) ||
		!solanago.IsATA(globalKey, amm.recipient1(), pool.TokenMint1) {
		return fmt.Errorf("%w: AMM recipients", ErrInvalidTokenAccount)
	}
	recipient := amm.recipient0()
	if side == DeployedToken1 {
		recipient = amm.recipient1()
	}
	if !vaultSlice.tokenAccount().Equals(recipient) {
		return fmt.Errorf("%w: vault source %s", ErrInvalidTokenAccount, vaultSlice.tokenAccount())
	}
	if !solanago.IsATA(globalKey, vaultSlice.lpAccount(), vaultSlice.lpMint()) {
		return fmt.Errorf("%w: vault LP account %s", ErrInvalidTokenAccount, vaultSlice.lpAccount())
	}

	liquidity := position.Liquidity
	received, err := measure(c.ic, recipient, func() error {
		return decreaseLiquidity(c.ic, amm, userSigner, liquidity)
	})
	if err != nil {
		return err
	}
	lpShares, err := measure(c.ic, vaultSlice.lpAccount(), func() error {
		return depositToVault(c.ic, vaultSlice, globalSigner, received, args.LpAmountMin)
	})
	if err != nil {
		return err
	}

	if err := g.AwardDecrease(k); err != nil {
		return err
	}
	u.SetDeployed(liquidity, received, lpShares, side)
	c.ic.Log("position deployed to vault", "position", u.UserMint, "side", side, "amount", received, "lp", lpShares)
	return c.storeRebalance(userKey, u, c.key(0), k)
}

// accounts: keeper_state (w), keeper (s), user_state (w)
// remaining: vault withdraw accounts, AMM increase_liquidity_v2 accounts
func keeperIncreasePosition(c *call) error {
	var args IncreasePositionArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	keeperKey, keeper, userKey := c.key(0), c.key(1), c.key(2)
	k, err := c.keeperState(keeperKey, keeper)
	if err != nil {
		return err
	}
	vaultSlice, amm, err := splitIncrease(c.remaining)
	if err != nil {
		return err
	}
	g, globalSigner, err := c.globalState(vaultSlice.depositor())
	if err != nil {
		return err
	}
	if !g.CanIncreasePosition() {
		return ErrUnauthorizedAction
	}
	u, userSigner, err := c.userState(userKey)
	if err != nil {
		return err
	}
	if !u.IsDeployed() {
		return ErrPositionNotDeployed
	}

	amount, err := c.withdrawDeployed(vaultSlice, amm, g, globalSigner, u, args.TokenAmountMin)
	if err != nil {
		return err
	}
	outOfRange, err := c.returnToAmm(amm, u, userSigner, globalSigner, vaultSlice.tokenAccount(), amount, false)
	if err != nil {
		return err
	}

	if err := g.AwardIncrease(k, outOfRange); err != nil {
		return err
	}
	c.ic.Log("position returned to AMM", "position", u.UserMint, "amount", amount, "out_of_range", outOfRange)
	u.SetNotDeployed()
	return c.storeRebalance(userKey, u, keeperKey, k)
}

func (c *call) storeRebalance(userKey solana.PublicKey, u *UserState, keeperKey solana.PublicKey, k *KeeperState) error {
	data, err := u.Encode()
	if err != nil {
		return err
	}
	if err := c.store(userKey, data); err != nil {
		return err
	}
	data, err = k.Encode()
	if err != nil {
		return err
	}
	return c.store(keeperKey, data)
}

// withdrawDeployed redeems the position's LP shares into the global state's
// token account and returns the amount owed to the position after fees.
// The destination must be the custody account of the deployed side's mint.
func (c *call) withdrawDeployed(accounts vaultAccounts, amm increaseAccounts, g *GlobalState, globalSigner authority, u *UserState, minOut uint64) (uint64, error) {
	globalKey := globalSigner.Key()
	pool, err := c.pool(amm.pool())
	if err != nil {
		return 0, err
	}
	var sideMint solana.PublicKey
	switch u.TokenDeployed {
	case DeployedToken0:
		sideMint = pool.TokenMint0
	case DeployedToken1:
		sideMint = pool.TokenMint1
	default:
		return 0, fmt.Errorf("%w: %s", ErrDeployedSideMissing, u.TokenDeployed)
	}
	if !solanago.IsATA(globalKey, accounts.tokenAccount(), sideMint) {
		return 0, fmt.Errorf("%w: vault destination %s", ErrInvalidTokenAccount, accounts.tokenAccount())
	}
	if !solanago.IsATA(globalKey, accounts.lpAccount(), accounts.lpMint()) {
		return 0, fmt.Errorf("%w: vault LP account %s", ErrInvalidTokenAccount, accounts.lpAccount())
	}
	withdrawn, err := measure(c.ic, accounts.tokenAccount(), func() error {
		return withdrawFromVault(c.ic, accounts, globalSigner, u.LpShares, minOut)
	})
	if err != nil {
		return 0, err
	}
	return g.NetAmount(u.VaultDeposit, withdrawn)
}

// returnToAmm puts amount back into the position. It reports whether the
// tick was outside the position range. force deposits single sided even
// when the tick is outside the in band.
func (c *call) returnToAmm(amm increaseAccounts, u *UserState, userSigner, globalSigner authority, source solana.PublicKey, amount uint64, force bool) (bool, error) {
	globalKey := globalSigner.Key()
	if !amm.nftOwner().Equals(globalKey) {
		return false, fmt.Errorf("%w: AMM nft owner %s", ErrInvalidGlobalStateAccount, amm.nftOwner())
	}
	nftAccount := amm.nftAccount()
	if !solanago.IsATA(userSigner.Key(), nftAccount, u.UserMint) {
		return false, fmt.Errorf("%w: nft account %s", ErrInvalidTokenAccount, nftAccount)
	}
	if !amm.tokenProgram().Equals(solana.TokenProgramID) {
		return false, fmt.Errorf("%w: token program %s", ErrUnexpectedAccount, amm.tokenProgram())
	}
	pool, err := c.pool(amm.pool())
	if err != nil {
		return false, err
	}

	tick := pool.TickCurrent
	inRange, inThreshold := u.InRange(tick), u.InThreshold(tick)
	var args increaseArgs
	switch {
	case (force && !inThreshold) || (inThreshold && !inRange):
		if args, err = singleSidedArgs(u.TokenDeployed, amount); err != nil {
			return false, err
		}
		deployed, other, otherMint := amm.tokenAccount0(), amm.tokenAccount1(), pool.TokenMint1
		if u.TokenDeployed == DeployedToken1 {
			deployed, other, otherMint = amm.tokenAccount1(), amm.tokenAccount0(), pool.TokenMint0
		}
		if !deployed.Equals(source) {
			return false, fmt.Errorf("%w: AMM source %s", ErrInvalidTokenAccount, deployed)
		}
		if !solanago.IsATA(globalKey, other, otherMint) {
			return false, fmt.Errorf("%w: AMM source %s", ErrInvalidTokenAccount, other)
		}
	case inRange:
		args = increaseArgs{liquidity: u.Liquidity}
		if !solanago.IsATA(globalKey, amm.tokenAccount0(), pool.TokenMint0) ||
			!solanago.IsATA(globalKey, amm.tokenAccount1(), pool.TokenMint1) {
			return false, fmt.Errorf("%w: AMM sources", ErrInvalidTokenAccount)
		}
	default:
		return false, ErrTickNotWithinRange
	}

	err = withNftOwner(c.ic, nftAccount, userSigner, globalSigner, func() error {
		return increaseLiquidity(c.ic, amm, globalSigner, args)
	})
	return !inRange, err
}

func (c *call) pool(key solana.PublicKey) (*clmm.PoolState, error) {
	a, err := c.ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(clmm.ProgramID) {
		return nil, fmt.Errorf("%w: %s not owned by the AMM", ErrInvalidPool, key)
	}
	p, err := clmm.DecodePoolState(a.Data)
	if err != nil {
		return nil, errors.Join(ErrInvalidPool, err)
	}
	return p, nil
}

func (c *call) personalPosition(key solana.PublicKey) (*clmm.PersonalPositionState, error) {
	a, err := c.ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(clmm.ProgramID) {
		return nil, fmt.Errorf("%w: position %s not owned by the AMM", ErrUnexpectedAccount, key)
	}
	p, err := clmm.DecodePersonalPositionState(a.Data)
	if err != nil {
		return nil, errors.Join(ErrUnexpectedAccount, err)
	}
	return p, nil
}
