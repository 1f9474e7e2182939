package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// Fund credits lamports to key, creating a system account if needed.
func (l *Ledger) Fund(key solana.PublicKey, lamports uint64) error {
	return l.Update(key, func(a *Account) error {
		sum, err := checkedAdd(a.Lamports, lamports)
		if err != nil {
			return err
		}
		a.Lamports = sum
		return nil
	})
}

func (l *Ledger) Balance(key solana.PublicKey) uint64 {
	a, ok := l.Account(key)
	if !ok {
		return 0
	}
	return a.Lamports
}

// SetMint stores a rent-exempt mint owned by the token program.
func (l *Ledger) SetMint(key solana.PublicKey, mint *token.Mint) error {
	data, err := solanago.EncodeMint(mint)
	if err != nil {
		return err
	}
	l.SetAccount(key, &Account{
		Lamports: MinimumBalance(solanago.MintSize),
		Owner:    solana.TokenProgramID,
		Data:     data,
	})
	return nil
}

func (l *Ledger) Mint(key solana.PublicKey) (*token.Mint, error) {
	a, ok := l.Account(key)
	if !ok || !a.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("mint %s not found", key)
	}
	return solanago.DecodeMint(a.Data)
}

// SetTokenAccount stores a rent-exempt token account owned by the token program.
func (l *Ledger) SetTokenAccount(key solana.PublicKey, state *solanago.Account) error {
	data, err := solanago.EncodeTokenAccount(state)
	if err != nil {
		return err
	}
	l.SetAccount(key, &Account{
		Lamports: MinimumBalance(solanago.TokenAccountSize),
		Owner:    solana.TokenProgramID,
		Data:     data,
	})
	return nil
}

func (l *Ledger) TokenAccount(key solana.PublicKey) (*solanago.Account, error) {
	a, ok := l.Account(key)
	if !ok || !a.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("token account %s not found", key)
	}
	return solanago.DecodeTokenAccount(a.Data)
}

// TokenBalance returns 0 for missing accounts.
func (l *Ledger) TokenBalance(key solana.PublicKey) uint64 {
	acc, err := l.TokenAccount(key)
	if err != nil {
		return 0
	}
	return acc.Amount
}
