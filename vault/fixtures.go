package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/krazyTry/meteora-strategy/ledger"
	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// CreateVault stores an enabled, empty vault for tokenMint together with its
// token vault and LP mint. The LP mint copies the token decimals.
func CreateVault(l *ledger.Ledger, tokenMint solana.PublicKey, decimals uint8, admin solana.PublicKey) (solana.PublicKey, *Vault, error) {
	key, bump := DeriveVaultAddress(tokenMint, BaseAddress)
	tokenVault, tokenVaultBump := DeriveTokenVaultAddress(key)
	lpMint := DeriveLpMintAddress(key)
	v := &Vault{
		Enabled:    1,
		Bumps:      VaultBumps{VaultBump: bump, TokenVaultBump: tokenVaultBump},
		TokenVault: tokenVault,
		TokenMint:  tokenMint,
		LpMint:     lpMint,
		Base:       BaseAddress,
		Admin:      admin,
		Operator:   admin,
	}
	if err := storeVault(l, key, v); err != nil {
		return solana.PublicKey{}, nil, err
	}
	if err := l.SetTokenAccount(tokenVault, &solanago.Account{
		Mint:  tokenMint,
		Owner: key,
		State: solanago.AccountStateInitialized,
	}); err != nil {
		return solana.PublicKey{}, nil, err
	}
	if err := l.SetMint(lpMint, &token.Mint{
		MintAuthority: key.ToPointer(),
		Decimals:      decimals,
		IsInitialized: true,
	}); err != nil {
		return solana.PublicKey{}, nil, err
	}
	return key, v, nil
}

func storeVault(l *ledger.Ledger, key solana.PublicKey, v *Vault) error {
	data, err := v.Encode()
	if err != nil {
		return err
	}
	l.SetAccount(key, &ledger.Account{
		Lamports: ledger.MinimumBalance(VaultSize),
		Owner:    ProgramID,
		Data:     data,
	})
	return nil
}

func Load(l *ledger.Ledger, key solana.PublicKey) (*Vault, error) {
	a, ok := l.Account(key)
	if !ok || !a.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("vault %s not found", key)
	}
	return DecodeVault(a.Data)
}

// AccrueYield credits amount of new tokens to the vault, raising the value
// of every outstanding LP share.
func AccrueYield(l *ledger.Ledger, key solana.PublicKey, amount uint64) error {
	v, err := Load(l, key)
	if err != nil {
		return err
	}
	if err := l.Update(v.TokenMint, func(a *ledger.Account) error {
		mint, err := solanago.DecodeMint(a.Data)
		if err != nil {
			return err
		}
		mint.Supply += amount
		a.Data, err = solanago.EncodeMint(mint)
		return err
	}); err != nil {
		return err
	}
	if err := l.Update(v.TokenVault, func(a *ledger.Account) error {
		acc, err := solanago.DecodeTokenAccount(a.Data)
		if err != nil {
			return err
		}
		acc.Amount += amount
		a.Data, err = solanago.EncodeTokenAccount(acc)
		return err
	}); err != nil {
		return err
	}
	v.TotalAmount += amount
	return storeVault(l, key, v)
}

// Value is the token amount a holder of shares could withdraw now.
func Value(l *ledger.Ledger, key solana.PublicKey, shares uint64) (uint64, error) {
	v, err := Load(l, key)
	if err != nil {
		return 0, err
	}
	lp, err := l.Mint(v.LpMint)
	if err != nil {
		return 0, err
	}
	if lp.Supply == 0 {
		return 0, nil
	}
	return AmountForShares(shares, v.TotalAmount, lp.Supply)
}
