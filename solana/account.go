package solana

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// TokenAccountSize is the packed length of an SPL token account.
const TokenAccountSize = 165

var ErrTokenAccountSize = errors.New("token account: invalid data length")

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

type Account struct {
	// Mint associated with the account
	Mint solana.PublicKey

	// Owner of the account
	Owner solana.PublicKey

	// Number of tokens the account holds
	Amount uint64

	Delegate        *solana.PublicKey
	DelegatedAmount uint64

	State AccountState

	// Rent-exempt reserve of a native (wrapped SOL) account
	RentExemptReserve *uint64

	CloseAuthority *solana.PublicKey
}

func (a *Account) IsInitialized() bool { return a.State != AccountStateUninitialized }

func (a *Account) IsFrozen() bool { return a.State == AccountStateFrozen }

func (a *Account) IsNative() bool { return a.RentExemptReserve != nil }

// tokenAccountLayout https://github.com/solana-labs/solana-program-library/blob/d72289c79a04411c69a8bf1054f7156b6196f9b3/token/js/src/state/account.ts#L69
type tokenAccountLayout struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       uint32
	Delegate             solana.PublicKey
	State                uint8
	IsNativeOption       uint32
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       solana.PublicKey
}

type AccountLayout struct {
}

func (l *AccountLayout) Decode(data []byte) (*Account, error) {
	if len(data) != TokenAccountSize {
		return nil, fmt.Errorf("%w: %d", ErrTokenAccountSize, len(data))
	}
	raw := &tokenAccountLayout{}
	if err := bin.NewBinDecoder(data).Decode(raw); err != nil {
		return nil, err
	}
	out := &Account{
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		DelegatedAmount: raw.DelegatedAmount,
		State:           AccountState(raw.State),
	}
	if raw.DelegateOption > 0 {
		out.Delegate = raw.Delegate.ToPointer()
	}
	if raw.IsNativeOption > 0 {
		reserve := raw.IsNative
		out.RentExemptReserve = &reserve
	}
	if raw.CloseAuthorityOption > 0 {
		out.CloseAuthority = raw.CloseAuthority.ToPointer()
	}
	return out, nil
}

func (l *AccountLayout) Encode(a *Account) ([]byte, error) {
	raw := tokenAccountLayout{
		Mint:            a.Mint,
		Owner:           a.Owner,
		Amount:          a.Amount,
		State:           uint8(a.State),
		DelegatedAmount: a.DelegatedAmount,
	}
	if a.Delegate != nil {
		raw.DelegateOption = 1
		raw.Delegate = *a.Delegate
	}
	if a.RentExemptReserve != nil {
		raw.IsNativeOption = 1
		raw.IsNative = *a.RentExemptReserve
	}
	if a.CloseAuthority != nil {
		raw.CloseAuthorityOption = 1
		raw.CloseAuthority = *a.CloseAuthority
	}

	buf := bytes.NewBuffer(make([]byte, 0, TokenAccountSize))
	enc := bin.NewBinEncoder(buf)
	for _, write := range []func() error{
		func() error { return enc.WriteBytes(raw.Mint[:], false) },
		func() error { return enc.WriteBytes(raw.Owner[:], false) },
		func() error { return enc.WriteUint64(raw.Amount, binary.LittleEndian) },
		func() error { return enc.WriteUint32(raw.DelegateOption, binary.LittleEndian) },
		func() error { return enc.WriteBytes(raw.Delegate[:], false) },
		func() error { return enc.WriteUint8(raw.State) },
		func() error { return enc.WriteUint32(raw.IsNativeOption, binary.LittleEndian) },
		func() error { return enc.WriteUint64(raw.IsNative, binary.LittleEndian) },
		func() error { return enc.WriteUint64(raw.DelegatedAmount, binary.LittleEndian) },
		func() error { return enc.WriteUint32(raw.CloseAuthorityOption, binary.LittleEndian) },
		func() error { return enc.WriteBytes(raw.CloseAuthority[:], false) },
	} {
		if err := write(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeTokenAccount is a shorthand for AccountLayout.Decode.
func DecodeTokenAccount(data []byte) (*Account, error) {
	return new(AccountLayout).Decode(data)
}

// EncodeTokenAccount is a shorthand for AccountLayout.Encode.
func EncodeTokenAccount(a *Account) ([]byte, error) {
	return new(AccountLayout).Encode(a)
}
