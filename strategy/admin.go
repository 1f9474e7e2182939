package strategy

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// accounts: global_state (w), sol_vault (w), initializer (s), admin (w, s), system_program
func initializeConfig(c *call) error {
	var args InitializeConfigArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	globalKey, solVaultKey, initializer, admin := c.key(0), c.key(1), c.key(2), c.key(3)
	if !initializer.Equals(BootstrapKey) {
		return ErrUnauthorizedAction
	}
	if err := c.requireSigner(initializer); err != nil {
		return err
	}
	if err := c.requireSigner(admin); err != nil {
		return err
	}
	if args.FeeBasisPoints > MaxFeeBasisPoints {
		return fmt.Errorf("%w: fee basis points %d", ledger.ErrInvalidArgument, args.FeeBasisPoints)
	}

	expected, bump := DeriveGlobalStateAddress()
	if !globalKey.Equals(expected) {
		return ErrInvalidGlobalStateAccount
	}
	expectedVault, vaultBump := DeriveSolVaultAddress()
	if !solVaultKey.Equals(expectedVault) {
		return fmt.Errorf("%w: sol vault %s", ErrUnexpectedAccount, solVaultKey)
	}

	g := &GlobalState{
		State:              args.State,
		Admin:              admin,
		SolVault:           solVaultKey,
		CreditsForDecrease: args.CreditsForDecrease,
		CreditsForIncrease: args.CreditsForIncrease,
		SolPerCredit:       args.SolPerCredit,
		BaseDeposit:        args.BaseDeposit,
		FeeBasisPoints:     args.FeeBasisPoints,
		Bump:               bump,
		SolVaultBump:       vaultBump,
	}
	globalSigner, err := g.signer(c.ic.ProgramID())
	if err != nil {
		return err
	}
	vaultSigner, err := newAuthority(c.ic.ProgramID(), seed.SolVault, []byte{vaultBump})
	if err != nil {
		return err
	}
	if err := c.createAccount(admin, globalSigner, GlobalStateSize); err != nil {
		return err
	}
	if err := c.createAccount(admin, vaultSigner, 0); err != nil {
		return err
	}
	data, err := g.Encode()
	if err != nil {
		return err
	}
	c.ic.Log("initialized config", "admin", admin, "state", g.State)
	return c.store(globalKey, data)
}

// accounts: global_state (w), admin (w, s), system_program
func changeConfig(c *call) error {
	change, err := decodeConfigChange(bin.NewBorshDecoder(c.args))
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
	}
	globalKey, admin := c.key(0), c.key(1)
	g, _, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(g, admin); err != nil {
		return err
	}

	switch change.Kind {
	case ChangeCreditsForDecrease:
		g.CreditsForDecrease = change.Value
	case ChangeCreditsForIncrease:
		g.CreditsForIncrease = change.Value
	case ChangeSolPerCredit:
		g.SolPerCredit = change.Value
	case ChangeBaseDeposit:
		g.BaseDeposit = change.Value
	case ChangeFeeBasisPoints:
		if change.Value > MaxFeeBasisPoints {
			return fmt.Errorf("%w: fee basis points %d", ledger.ErrInvalidArgument, change.Value)
		}
		g.FeeBasisPoints = uint16(change.Value)
	case ChangeStateBit:
		if err := g.SetStateBit(change.Bit, change.Set); err != nil {
			return err
		}
	case ChangeAdmin:
		g.Admin = change.Admin
	}

	data, err := g.Encode()
	if err != nil {
		return err
	}
	c.ic.Log("changed config", "kind", change.Kind)
	return c.store(globalKey, data)
}

// accounts: global_state, whitelist_state (w), mint, admin (w, s), system_program
func whitelistMint(c *call) error {
	globalKey, whitelistKey, mint, admin := c.key(0), c.key(1), c.key(2), c.key(3)
	g, _, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(g, admin); err != nil {
		return err
	}
	mintAccount, err := c.ic.Account(mint)
	if err != nil {
		return err
	}
	if !mintAccount.Owner.Equals(solana.TokenProgramID) {
		return fmt.Errorf("%w: %s is not a mint", ledger.ErrInvalidArgument, mint)
	}
	if _, err := solanago.DecodeMint(mintAccount.Data); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidArgument, err)
	}

	expected, bump := DeriveWhitelistStateAddress(mint)
	if !whitelistKey.Equals(expected) {
		return fmt.Errorf("%w: whitelist %s", ErrUnexpectedAccount, whitelistKey)
	}
	signer, err := newAuthority(c.ic.ProgramID(), seed.WhitelistState, mint.Bytes(), []byte{bump})
	if err != nil {
		return err
	}
	if err := c.createAccount(admin, signer, WhitelistStateSize); err != nil {
		return err
	}
	data, err := (&WhitelistState{Mint: mint}).Encode()
	if err != nil {
		return err
	}
	c.ic.Log("whitelisted mint", "mint", mint)
	return c.store(whitelistKey, data)
}

// accounts: global_state, whitelist_state (w), admin (w, s), system_program
func unwhitelistMint(c *call) error {
	globalKey, whitelistKey, admin := c.key(0), c.key(1), c.key(2)
	g, _, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(g, admin); err != nil {
		return err
	}
	data, err := c.owned(whitelistKey)
	if err != nil {
		return err
	}
	w, err := DecodeWhitelistState(data)
	if err != nil {
		return err
	}
	c.ic.Log("unwhitelisted mint", "mint", w.Mint)
	return c.closeAccount(whitelistKey, admin)
}

// accounts: global_state (w), admin (s), sol_vault (w), recipient (w)
func adminWithdrawSol(c *call) error {
	var args AmountArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	globalKey, admin, solVault, recipient := c.key(0), c.key(1), c.key(2), c.key(3)
	g, _, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(g, admin); err != nil {
		return err
	}
	if !solVault.Equals(g.SolVault) {
		return fmt.Errorf("%w: sol vault %s", ErrUnexpectedAccount, solVault)
	}
	c.ic.Log("withdrawing from sol vault", "recipient", recipient, "lamports", args.Amount)
	return c.payOut(solVault, recipient, args.Amount)
}

// accounts: global_state, admin (s), source (w), mint, destination (w), token_program
func adminWithdrawTokens(c *call) error {
	var args AmountArgs
	if err := c.decode(&args); err != nil {
		return err
	}
	globalKey, admin, source, mint, destination := c.key(0), c.key(1), c.key(2), c.key(3), c.key(4)
	g, signer, err := c.globalState(globalKey)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(g, admin); err != nil {
		return err
	}
	mintAccount, err := c.ic.Account(mint)
	if err != nil {
		return err
	}
	m, err := solanago.DecodeMint(mintAccount.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidArgument, err)
	}
	ix := solanago.TransferInstruction(signer.Key(), source, destination, mint, m.Decimals, args.Amount)
	if err := signer.invoke(c.ic, ix); err != nil {
		return err
	}
	c.ic.Log("withdrew tokens", "mint", mint, "amount", args.Amount)
	return nil
}
