package strategy

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// accounts: payer (w, s), user (s), nft_mint, user_nft_account (w),
// personal_position, pool_state, user_state (w), user_state_nft_account (w),
// whitelist_0, whitelist_1, global_state, token_program, system_program,
// associated_token_program
func openPosition(c *call) error {
	var args OpenPositionArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	var (
		payer          = c.key(0)
		user           = c.key(1)
		nftMint        = c.key(2)
		userNftAccount = c.key(3)
		positionKey    = c.key(4)
		poolKey        = c.key(5)
		userKey        = c.key(6)
		custody        = c.key(7)
	)
	if err := c.requireSigner(payer); err != nil {
		return err
	}
	if err := c.requireSigner(user); err != nil {
		return err
	}
	g, _, err := c.globalState(c.key(10))
	if err != nil {
		return err
	}
	if !g.CanCreatePosition() {
		return ErrProgramNotOpenToCreatingPositions
	}

	position, err := c.personalPosition(positionKey)
	if err != nil {
		return err
	}
	pool, err := c.pool(poolKey)
	if err != nil {
		return err
	}
	if !position.PoolID.Equals(poolKey) {
		return fmt.Errorf("%w: position belongs to %s", ErrInvalidPool, position.PoolID)
	}
	if !position.NftMint.Equals(nftMint) {
		return ErrInvalidNFTMint
	}
	for i, mint := range []solana.PublicKey{pool.TokenMint0, pool.TokenMint1} {
		if err := c.requireWhitelisted(c.key(8+i), mint); err != nil {
			return err
		}
	}

	expected, bump := DeriveUserStateAddress(nftMint)
	if !userKey.Equals(expected) {
		return fmt.Errorf("%w: %s", ErrInvalidUserStateAccount, userKey)
	}
	u := &UserState{
		User:          user,
		UserMint:      nftMint,
		TokenDeployed: DeployedNone,
		TickLower:     position.TickLowerIndex,
		TickUpper:     position.TickUpperIndex,
		OutLower:      args.OutLower,
		OutUpper:      args.OutUpper,
		InLower:       args.InLower,
		InUpper:       args.InUpper,
		Bump:          bump,
	}
	if err := u.ValidateThresholds(); err != nil {
		return err
	}
	if !solanago.IsATA(userKey, custody, nftMint) {
		return fmt.Errorf("%w: custody account %s", ErrInvalidTokenAccount, custody)
	}
	userSigner, err := u.signer(c.ic.ProgramID())
	if err != nil {
		return err
	}
	if err := c.createAccount(payer, userSigner, UserStateSize); err != nil {
		return err
	}
	data, err := u.Encode()
	if err != nil {
		return err
	}
	if err := c.store(userKey, data); err != nil {
		return err
	}

	createCustody := associatedtokenaccount.NewCreateInstruction(payer, userKey, nftMint).Build()
	if err := c.ic.Invoke(createCustody); err != nil {
		return fmt.Errorf("create nft custody account: %w", err)
	}
	if err := c.ic.Invoke(solanago.TransferInstruction(user, userNftAccount, custody, nftMint, 0, 1)); err != nil {
		return fmt.Errorf("take nft custody: %w", err)
	}
	if g.BaseDeposit > 0 {
		if err := c.ic.Invoke(solanago.TransferSOLInstruction(payer, userKey, g.BaseDeposit)); err != nil {
			return fmt.Errorf("base deposit: %w", err)
		}
	}
	c.ic.Log("opened position", "position", nftMint, "user", user, "tick_lower", u.TickLower, "tick_upper", u.TickUpper)
	return nil
}

// requireWhitelisted checks that key holds the whitelist record of mint.
func (c *call) requireWhitelisted(key, mint solana.PublicKey) error {
	data, err := c.owned(key)
	if err != nil {
		return errors.Join(ErrDestinationMintNotWhitelisted, err)
	}
	w, err := DecodeWhitelistState(data)
	if err != nil {
		return errors.Join(ErrDestinationMintNotWhitelisted, err)
	}
	if !w.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s", ErrDestinationMintNotWhitelisted, mint)
	}
	return nil
}

// accounts: user (w, s), user_state (w), user_nft_account (w),
// user_state_nft_account (w), nft_mint, token_program
// remaining, when deployed: vault withdraw accounts, AMM increase_liquidity_v2 accounts
func closePosition(c *call) error {
	var args ClosePositionArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	user, userKey, userNftAccount, custody, nftMint := c.key(0), c.key(1), c.key(2), c.key(3), c.key(4)
	if err := c.requireSigner(user); err != nil {
		return err
	}
	u, userSigner, err := c.userState(userKey)
	if err != nil {
		return err
	}
	if !u.User.Equals(user) {
		return ErrUnauthorizedUser
	}
	if !nftMint.Equals(u.UserMint) {
		return ErrInvalidNFTMint
	}
	if !solanago.IsATA(userKey, custody, nftMint) {
		return fmt.Errorf("%w: custody account %s", ErrInvalidTokenAccount, custody)
	}

	if u.IsDeployed() {
		vaultSlice, amm, err := splitIncrease(c.remaining)
		if err != nil {
			return err
		}
		g, globalSigner, err := c.globalState(vaultSlice.depositor())
		if err != nil {
			return err
		}
		amount, err := c.withdrawDeployed(vaultSlice, amm, g, globalSigner, u, args.TokenAmountMin)
		if err != nil {
			return err
		}
		if _, err := c.returnToAmm(amm, u, userSigner, globalSigner, vaultSlice.tokenAccount(), amount, true); err != nil {
			return err
		}
		u.SetNotDeployed()
		c.ic.Log("recalled position from vault", "position", nftMint, "amount", amount)
	}

	if err := userSigner.invoke(c.ic, solanago.TransferInstruction(userKey, custody, userNftAccount, nftMint, 0, 1)); err != nil {
		return fmt.Errorf("return nft: %w", err)
	}
	if err := userSigner.invoke(c.ic, solanago.CloseAccountInstruction(custody, user, userKey)); err != nil {
		return fmt.Errorf("close nft custody account: %w", err)
	}
	c.ic.Log("closed position", "position", nftMint, "user", user)
	return c.closeAccount(userKey, user)
}
