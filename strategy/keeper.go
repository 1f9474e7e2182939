package strategy

import "fmt"

// accounts: keeper_state (w), payer (w, s), keeper, system_program
func createKeeperAccount(c *call) error {
	keeperKey, payer, keeper := c.key(0), c.key(1), c.key(2)
	if err := c.requireSigner(payer); err != nil {
		return err
	}
	expected, bump := DeriveKeeperStateAddress(keeper)
	if !keeperKey.Equals(expected) {
		return fmt.Errorf("%w: keeper state %s", ErrUnexpectedAccount, keeperKey)
	}
	signer, err := newAuthority(c.ic.ProgramID(), seed.KeeperState, keeper.Bytes(), []byte{bump})
	if err != nil {
		return err
	}
	if err := c.createAccount(payer, signer, KeeperStateSize); err != nil {
		return err
	}
	data, err := (&KeeperState{Keeper: keeper}).Encode()
	if err != nil {
		return err
	}
	c.ic.Log("created keeper account", "keeper", keeper)
	return c.store(keeperKey, data)
}

// accounts: keeper_state (w), keeper (s), recipient (w), global_state, sol_vault (w)
func keeperWithdrawRewards(c *call) error {
	keeperKey, keeper, recipient, globalKey, solVault := c.key(0), c.key(1), c.key(2), c.key(3), c.key(4)
	k, err := c.keeperState(keeperKey, keeper)
	if err != nil {
		return err
	}
	g, _, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if !solVault.Equals(g.SolVault) {
		return fmt.Errorf("%w: sol vault %s", ErrUnexpectedAccount, solVault)
	}
	amount, err := g.RewardAmount(k.Credits)
	if err != nil {
		return err
	}
	if err := c.payOut(solVault, recipient, amount); err != nil {
		return err
	}
	c.ic.Log("paid keeper rewards", "keeper", keeper, "credits", k.Credits, "lamports", amount)
	k.ResetCredits()
	data, err := k.Encode()
	if err != nil {
		return err
	}
	return c.store(keeperKey, data)
}
