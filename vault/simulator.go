package vault

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
)

var (
	ErrVaultDisabled      = errors.New("vault: vault is disabled")
	ErrInvalidVault       = errors.New("vault: invalid vault account")
	ErrSlippage           = errors.New("vault: exceeded slippage tolerance")
	ErrZeroAmount         = errors.New("vault: amount is zero")
	ErrMathOverflow       = errors.New("vault: math overflow")
	ErrUnknownInstruction = errors.New("vault: unknown instruction")
	ErrNotEnoughAccounts  = errors.New("vault: not enough accounts")
)

// Simulator executes deposit and withdraw against vault accounts held in a
// ledger. Strategy allocation and locked profit are not modelled: every
// token counted in TotalAmount sits in the token vault. Both instructions
// set the minted or released amount as little-endian u64 return data.
type Simulator struct{}

func (Simulator) ProgramID() solana.PublicKey { return ProgramID }

func (s Simulator) Process(ic *ledger.InvokeContext) error {
	disc, amount, minimum, err := DecodeArgs(ic.Data())
	if err != nil {
		return err
	}
	metas := ic.Accounts()
	if len(metas) < DepositWithdrawAccountsLen {
		return ErrNotEnoughAccounts
	}
	a := &Accounts{
		Vault:        metas[0].PublicKey,
		TokenVault:   metas[1].PublicKey,
		LpMint:       metas[2].PublicKey,
		UserToken:    metas[3].PublicKey,
		UserLp:       metas[4].PublicKey,
		User:         metas[5].PublicKey,
		TokenProgram: metas[6].PublicKey,
	}
	switch disc {
	case DepositDiscriminator:
		return s.deposit(ic, a, amount, minimum)
	case WithdrawDiscriminator:
		return s.withdraw(ic, a, amount, minimum)
	default:
		return ErrUnknownInstruction
	}
}

type vaultContext struct {
	raw      *ledger.Account
	vault    *Vault
	lpSupply uint64
}

func (c *vaultContext) store() error {
	data, err := c.vault.Encode()
	if err != nil {
		return err
	}
	c.raw.Data = data
	return nil
}

func load(ic *ledger.InvokeContext, a *Accounts) (*vaultContext, error) {
	if !ic.IsSigner(a.User) {
		return nil, fmt.Errorf("%w: user %s did not sign", ledger.ErrMissingRequiredSignature, a.User)
	}
	if !a.TokenProgram.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: token program %s", ledger.ErrInvalidArgument, a.TokenProgram)
	}
	raw, err := ic.Account(a.Vault)
	if err != nil {
		return nil, err
	}
	if !raw.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("%w: %s not owned by the vault program", ErrInvalidVault, a.Vault)
	}
	v, err := DecodeVault(raw.Data)
	if err != nil {
		return nil, err
	}
	if !v.IsEnabled() {
		return nil, ErrVaultDisabled
	}
	if !v.TokenVault.Equals(a.TokenVault) || !v.LpMint.Equals(a.LpMint) {
		return nil, fmt.Errorf("%w: token vault or lp mint mismatch", ErrInvalidVault)
	}

	mintRaw, err := ic.Account(a.LpMint)
	if err != nil {
		return nil, err
	}
	lp, err := solanago.DecodeMint(mintRaw.Data)
	if err != nil {
		return nil, err
	}
	tokenRaw, err := ic.Account(a.TokenVault)
	if err != nil {
		return nil, err
	}
	tokenVault, err := solanago.DecodeTokenAccount(tokenRaw.Data)
	if err != nil {
		return nil, err
	}
	if !tokenVault.Mint.Equals(v.TokenMint) {
		return nil, fmt.Errorf("%w: token vault mint", ErrInvalidVault)
	}
	return &vaultContext{raw: raw, vault: v, lpSupply: lp.Supply}, nil
}

func (s Simulator) deposit(ic *ledger.InvokeContext, a *Accounts, amount, minimumLp uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	c, err := load(ic, a)
	if err != nil {
		return err
	}
	shares, err := SharesForAmount(amount, c.vault.TotalAmount, c.lpSupply)
	if err != nil {
		return err
	}
	if shares < minimumLp {
		return fmt.Errorf("%w: minted %d < %d", ErrSlippage, shares, minimumLp)
	}
	total := c.vault.TotalAmount + amount
	if total < amount {
		return ErrMathOverflow
	}
	c.vault.TotalAmount = total
	if err := c.store(); err != nil {
		return err
	}

	transfer := token.NewTransferInstruction(amount, a.UserToken, a.TokenVault, a.User, nil).Build()
	if err := ic.Invoke(transfer); err != nil {
		return err
	}
	mint := token.NewMintToInstruction(shares, a.LpMint, a.UserLp, a.Vault, nil).Build()
	if err := ic.Invoke(mint, c.vault.Signer()); err != nil {
		return err
	}
	ic.SetReturnData(binary.LittleEndian.AppendUint64(nil, shares))
	ic.Log("deposit", "vault", a.Vault, "amount", amount, "lp", shares)
	return nil
}

func (s Simulator) withdraw(ic *ledger.InvokeContext, a *Accounts, unmint, minOut uint64) error {
	if unmint == 0 {
		return ErrZeroAmount
	}
	c, err := load(ic, a)
	if err != nil {
		return err
	}
	out, err := AmountForShares(unmint, c.vault.TotalAmount, c.lpSupply)
	if err != nil {
		return err
	}
	if out < minOut {
		return fmt.Errorf("%w: released %d < %d", ErrSlippage, out, minOut)
	}
	c.vault.TotalAmount -= out
	if err := c.store(); err != nil {
		return err
	}

	burn := token.NewBurnInstruction(unmint, a.UserLp, a.LpMint, a.User, nil).Build()
	if err := ic.Invoke(burn); err != nil {
		return err
	}
	if out > 0 {
		transfer := token.NewTransferInstruction(out, a.TokenVault, a.UserToken, a.Vault, nil).Build()
		if err := ic.Invoke(transfer, c.vault.Signer()); err != nil {
			return err
		}
	}
	ic.SetReturnData(binary.LittleEndian.AppendUint64(nil, out))
	ic.Log("withdraw", "vault", a.Vault, "lp", unmint, "amount", out)
	return nil
}
