package vault

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

var ErrAccountDiscriminator = errors.New("vault: account discriminator mismatch")

type VaultBumps struct {
	VaultBump      uint8
	TokenVaultBump uint8
}

type LockedProfitTracker struct {
	LastUpdatedLockedProfit uint64
	LastReport              uint64
	LockedProfitDegradation uint64
}

// Vault is the dynamic vault account without its discriminator.
type Vault struct {
	Enabled             uint8
	Bumps               VaultBumps
	TotalAmount         uint64
	TokenVault          solana.PublicKey
	FeeVault            solana.PublicKey
	TokenMint           solana.PublicKey
	LpMint              solana.PublicKey
	Strategies          [MaxStrategies]solana.PublicKey
	Base                solana.PublicKey
	Admin               solana.PublicKey
	Operator            solana.PublicKey
	LockedProfitTracker LockedProfitTracker
}

func DecodeVault(data []byte) (*Vault, error) {
	if len(data) < VaultSize {
		return nil, fmt.Errorf("vault: invalid data length %d", len(data))
	}
	if !bytes.Equal(data[:8], VaultDiscriminator[:]) {
		return nil, ErrAccountDiscriminator
	}
	v := &Vault{}
	if err := bin.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return v, nil
}

func (v *Vault) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, VaultSize))
	buf.Write(VaultDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Vault) IsEnabled() bool { return v.Enabled == 1 }

// Signer returns the seeds the vault signs with for its token vault and LP mint.
func (v *Vault) Signer() [][]byte {
	return [][]byte{seed.Vault, v.TokenMint.Bytes(), v.Base.Bytes(), {v.Bumps.VaultBump}}
}

// SharesForAmount is the LP minted for depositing amount.
func SharesForAmount(amount, totalAmount, lpSupply uint64) (uint64, error) {
	if lpSupply == 0 || totalAmount == 0 {
		return amount, nil
	}
	return mulDiv(amount, lpSupply, totalAmount)
}

// AmountForShares is the token amount released for burning shares.
func AmountForShares(shares, totalAmount, lpSupply uint64) (uint64, error) {
	if lpSupply == 0 {
		return 0, ErrMathOverflow
	}
	return mulDiv(shares, totalAmount, lpSupply)
}

func mulDiv(a, b, c uint64) (uint64, error) {
	q := uint128.From64(a).Mul64(b).Div64(c)
	if q.Hi != 0 {
		return 0, ErrMathOverflow
	}
	return q.Lo, nil
}
