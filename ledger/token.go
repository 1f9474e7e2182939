package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

type tokenProgram struct{}

func (tokenProgram) ProgramID() solana.PublicKey { return solana.TokenProgramID }

func (tokenProgram) Process(ic *InvokeContext) error {
	inst, err := token.DecodeInstruction(ic.Accounts(), ic.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	switch v := inst.Impl.(type) {
	case *token.InitializeMint2:
		return initializeMint(ic, v)
	case *token.InitializeAccount3:
		return initializeTokenAccount(ic, v)
	case *token.Transfer:
		return tokenTransfer(ic, v.GetSourceAccount().PublicKey, nil, v.GetDestinationAccount().PublicKey, v.GetOwnerAccount().PublicKey, *v.Amount, nil)
	case *token.TransferChecked:
		mint := v.GetMintAccount().PublicKey
		return tokenTransfer(ic, v.GetSourceAccount().PublicKey, &mint, v.GetDestinationAccount().PublicKey, v.GetOwnerAccount().PublicKey, *v.Amount, v.Decimals)
	case *token.MintTo:
		return mintTo(ic, v)
	case *token.Burn:
		return burn(ic, v)
	case *token.SetAuthority:
		return setAuthority(ic, v)
	case *token.CloseAccount:
		return closeTokenAccount(ic, v)
	default:
		return fmt.Errorf("%w: unsupported token instruction %T", ErrInvalidInstructionData, inst.Impl)
	}
}

type tokenAccount struct {
	key   solana.PublicKey
	raw   *Account
	state *solanago.Account
}

func (t *tokenAccount) store() error {
	data, err := solanago.EncodeTokenAccount(t.state)
	if err != nil {
		return err
	}
	t.raw.Data = data
	return nil
}

func loadTokenAccount(ic *InvokeContext, key solana.PublicKey) (*tokenAccount, error) {
	raw, err := ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !raw.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is not a token account", ErrInvalidArgument, key)
	}
	state, err := solanago.DecodeTokenAccount(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !state.IsInitialized() {
		return nil, accountError(ErrUninitializedAccount, key)
	}
	return &tokenAccount{key: key, raw: raw, state: state}, nil
}

type mintAccount struct {
	raw   *Account
	state *token.Mint
}

func (m *mintAccount) store() error {
	data, err := solanago.EncodeMint(m.state)
	if err != nil {
		return err
	}
	m.raw.Data = data
	return nil
}

func loadMint(ic *InvokeContext, key solana.PublicKey) (*mintAccount, error) {
	raw, err := ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !raw.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is not a mint", ErrInvalidArgument, key)
	}
	state, err := solanago.DecodeMint(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !state.IsInitialized {
		return nil, accountError(ErrUninitializedAccount, key)
	}
	return &mintAccount{raw: raw, state: state}, nil
}

func requireSigner(ic *InvokeContext, expected, authority solana.PublicKey) error {
	if !expected.Equals(authority) {
		return accountError(ErrOwnerMismatch, authority)
	}
	if !ic.IsSigner(authority) {
		return accountError(ErrMissingRequiredSignature, authority)
	}
	return nil
}

func initializeMint(ic *InvokeContext, v *token.InitializeMint2) error {
	key := v.GetMintAccount().PublicKey
	raw, err := ic.Account(key)
	if err != nil {
		return err
	}
	if len(raw.Data) != solanago.MintSize || !raw.Owner.Equals(solana.TokenProgramID) {
		return fmt.Errorf("%w: mint %s has wrong size or owner", ErrInvalidArgument, key)
	}
	if !isZeroed(raw.Data) {
		return accountError(ErrAlreadyInitialized, key)
	}
	m := &mintAccount{raw: raw, state: &token.Mint{
		MintAuthority:   v.MintAuthority,
		Decimals:        *v.Decimals,
		IsInitialized:   true,
		FreezeAuthority: v.FreezeAuthority,
	}}
	return m.store()
}

func initializeTokenAccount(ic *InvokeContext, v *token.InitializeAccount3) error {
	key := v.GetAccount().PublicKey
	raw, err := ic.Account(key)
	if err != nil {
		return err
	}
	if len(raw.Data) != solanago.TokenAccountSize || !raw.Owner.Equals(solana.TokenProgramID) {
		return fmt.Errorf("%w: token account %s has wrong size or owner", ErrInvalidArgument, key)
	}
	if !isZeroed(raw.Data) {
		return accountError(ErrAlreadyInitialized, key)
	}
	mint := v.GetMintAccount().PublicKey
	if _, err := loadMint(ic, mint); err != nil {
		return err
	}
	raw.Data, err = solanago.EncodeTokenAccount(&solanago.Account{
		Mint:  mint,
		Owner: *v.Owner,
		State: solanago.AccountStateInitialized,
	})
	return err
}

func tokenTransfer(ic *InvokeContext, source solana.PublicKey, mint *solana.PublicKey, destination, authority solana.PublicKey, amount uint64, decimals *uint8) error {
	src, err := loadTokenAccount(ic, source)
	if err != nil {
		return err
	}
	dst, err := loadTokenAccount(ic, destination)
	if err != nil {
		return err
	}
	if src.state.IsFrozen() {
		return accountError(ErrAccountFrozen, source)
	}
	if dst.state.IsFrozen() {
		return accountError(ErrAccountFrozen, destination)
	}
	if !src.state.Mint.Equals(dst.state.Mint) {
		return accountError(ErrMintMismatch, destination)
	}
	if mint != nil {
		if !mint.Equals(src.state.Mint) {
			return accountError(ErrMintMismatch, *mint)
		}
		m, err := loadMint(ic, *mint)
		if err != nil {
			return err
		}
		if decimals == nil || *decimals != m.state.Decimals {
			return ErrMintDecimalsMismatch
		}
	}
	if err := requireSigner(ic, src.state.Owner, authority); err != nil {
		return err
	}
	if src.state.Amount < amount {
		return accountError(ErrInsufficientFunds, source)
	}
	if source.Equals(destination) {
		return nil
	}
	credited, err := checkedAdd(dst.state.Amount, amount)
	if err != nil {
		return err
	}
	src.state.Amount -= amount
	dst.state.Amount = credited
	if err := src.store(); err != nil {
		return err
	}
	if err := dst.store(); err != nil {
		return err
	}
	return nil
}

func mintTo(ic *InvokeContext, v *token.MintTo) error {
	mintKey := v.GetMintAccount().PublicKey
	m, err := loadMint(ic, mintKey)
	if err != nil {
		return err
	}
	dst, err := loadTokenAccount(ic, v.GetDestinationAccount().PublicKey)
	if err != nil {
		return err
	}
	if !dst.state.Mint.Equals(mintKey) {
		return accountError(ErrMintMismatch, dst.key)
	}
	if m.state.MintAuthority == nil {
		return fmt.Errorf("%w: mint %s has a fixed supply", ErrInvalidArgument, mintKey)
	}
	if err := requireSigner(ic, *m.state.MintAuthority, v.GetAuthorityAccount().PublicKey); err != nil {
		return err
	}
	supply, err := checkedAdd(m.state.Supply, *v.Amount)
	if err != nil {
		return err
	}
	amount, err := checkedAdd(dst.state.Amount, *v.Amount)
	if err != nil {
		return err
	}
	m.state.Supply = supply
	dst.state.Amount = amount
	if err := dst.store(); err != nil {
		return err
	}
	return m.store()
}

func burn(ic *InvokeContext, v *token.Burn) error {
	mintKey := v.GetMintAccount().PublicKey
	m, err := loadMint(ic, mintKey)
	if err != nil {
		return err
	}
	src, err := loadTokenAccount(ic, v.GetSourceAccount().PublicKey)
	if err != nil {
		return err
	}
	if !src.state.Mint.Equals(mintKey) {
		return accountError(ErrMintMismatch, src.key)
	}
	if err := requireSigner(ic, src.state.Owner, v.GetOwnerAccount().PublicKey); err != nil {
		return err
	}
	if src.state.Amount < *v.Amount {
		return accountError(ErrInsufficientFunds, src.key)
	}
	if m.state.Supply < *v.Amount {
		return ErrArithmeticOverflow
	}
	src.state.Amount -= *v.Amount
	m.state.Supply -= *v.Amount
	if err := src.store(); err != nil {
		return err
	}
	return m.store()
}

func setAuthority(ic *InvokeContext, v *token.SetAuthority) error {
	if v.AuthorityType == nil || *v.AuthorityType != token.AuthorityAccountOwner {
		return ErrUnsupportedAuthority
	}
	if v.NewAuthority == nil {
		return fmt.Errorf("%w: account owner cannot be cleared", ErrInvalidArgument)
	}
	acc, err := loadTokenAccount(ic, v.GetSubjectAccount().PublicKey)
	if err != nil {
		return err
	}
	if err := requireSigner(ic, acc.state.Owner, v.GetAuthorityAccount().PublicKey); err != nil {
		return err
	}
	acc.state.Owner = *v.NewAuthority
	acc.state.Delegate = nil
	acc.state.DelegatedAmount = 0
	if err := acc.store(); err != nil {
		return err
	}
	ic.Log("SetAuthority", "account", acc.key, "owner", *v.NewAuthority)
	return nil
}

func closeTokenAccount(ic *InvokeContext, v *token.CloseAccount) error {
	acc, err := loadTokenAccount(ic, v.GetAccount().PublicKey)
	if err != nil {
		return err
	}
	destination := v.GetDestinationAccount().PublicKey
	if acc.key.Equals(destination) {
		return fmt.Errorf("%w: close destination is the closed account", ErrInvalidArgument)
	}
	if !acc.state.IsNative() && acc.state.Amount != 0 {
		return accountError(ErrNonNativeHasBalance, acc.key)
	}
	authority := acc.state.Owner
	if acc.state.CloseAuthority != nil {
		authority = *acc.state.CloseAuthority
	}
	if err := requireSigner(ic, authority, v.GetOwnerAccount().PublicKey); err != nil {
		return err
	}
	dst, err := ic.Account(destination)
	if err != nil {
		return err
	}
	credited, err := checkedAdd(dst.Lamports, acc.raw.Lamports)
	if err != nil {
		return err
	}
	dst.Lamports = credited
	acc.raw.Lamports = 0
	acc.raw.Data = nil
	acc.raw.Owner = solana.SystemProgramID
	return nil
}
