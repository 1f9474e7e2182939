package ledger

import (
	"bytes"
	"slices"

	"github.com/gagliardetto/solana-go"
)

const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// MinimumBalance is the rent-exempt balance for an account holding size bytes.
func MinimumBalance(size int) uint64 {
	return uint64(size+accountStorageOverhead) * lamportsPerByteYear * exemptionThreshold
}

type Account struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Data       []byte
	Executable bool
}

// Exists reports whether the account holds lamports or data. Accounts that do
// neither are collected at commit.
func (a *Account) Exists() bool {
	return a != nil && (a.Lamports > 0 || len(a.Data) > 0)
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Data:       slices.Clone(a.Data),
		Executable: a.Executable,
	}
}

func (a *Account) Equal(b *Account) bool {
	return a.Lamports == b.Lamports &&
		a.Owner.Equals(b.Owner) &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

func emptyAccount() *Account {
	return &Account{Owner: solana.SystemProgramID}
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
