package vault

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrInstructionData = errors.New("vault: malformed instruction data")

// Accounts is the account set shared by deposit and withdraw.
type Accounts struct {
	Vault        solana.PublicKey
	TokenVault   solana.PublicKey
	LpMint       solana.PublicKey
	UserToken    solana.PublicKey
	UserLp       solana.PublicKey
	User         solana.PublicKey // signer
	TokenProgram solana.PublicKey
}

func (a *Accounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.Vault).WRITE(),
		solana.Meta(a.TokenVault).WRITE(),
		solana.Meta(a.LpMint).WRITE(),
		solana.Meta(a.UserToken).WRITE(),
		solana.Meta(a.UserLp).WRITE(),
		solana.Meta(a.User).SIGNER(),
		solana.Meta(a.TokenProgram),
	}
}

// NewAccounts fills the vault side of the account set from a decoded vault.
func NewAccounts(vaultKey solana.PublicKey, v *Vault, user, userToken, userLp solana.PublicKey) *Accounts {
	return &Accounts{
		Vault:        vaultKey,
		TokenVault:   v.TokenVault,
		LpMint:       v.LpMint,
		UserToken:    userToken,
		UserLp:       userLp,
		User:         user,
		TokenProgram: solana.TokenProgramID,
	}
}

type DepositInstruction struct {
	TokenAmount             uint64
	MinimumLpTokenAmount    uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewDepositInstruction(accounts *Accounts, tokenAmount, minimumLpTokenAmount uint64) *DepositInstruction {
	return &DepositInstruction{
		TokenAmount:          tokenAmount,
		MinimumLpTokenAmount: minimumLpTokenAmount,
		AccountMetaSlice:     accounts.Metas(),
	}
}

func (inst *DepositInstruction) ProgramID() solana.PublicKey { return ProgramID }

func (inst *DepositInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *DepositInstruction) Data() ([]byte, error) {
	return encodeArgs(DepositDiscriminator, inst.TokenAmount, inst.MinimumLpTokenAmount)
}

type WithdrawInstruction struct {
	UnmintAmount            uint64
	MinOutAmount            uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewWithdrawInstruction(accounts *Accounts, unmintAmount, minOutAmount uint64) *WithdrawInstruction {
	return &WithdrawInstruction{
		UnmintAmount:     unmintAmount,
		MinOutAmount:     minOutAmount,
		AccountMetaSlice: accounts.Metas(),
	}
}

func (inst *WithdrawInstruction) ProgramID() solana.PublicKey { return ProgramID }

func (inst *WithdrawInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *WithdrawInstruction) Data() ([]byte, error) {
	return encodeArgs(WithdrawDiscriminator, inst.UnmintAmount, inst.MinOutAmount)
}

func encodeArgs(disc [8]byte, a, b uint64) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(b, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeArgs splits deposit or withdraw data into its discriminator and two
// amount arguments.
func DecodeArgs(data []byte) (disc [8]byte, a, b uint64, err error) {
	if len(data) < 24 {
		return disc, 0, 0, fmt.Errorf("%w: length %d", ErrInstructionData, len(data))
	}
	copy(disc[:], data[:8])
	dec := bin.NewBorshDecoder(data[8:])
	if a, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return disc, 0, 0, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if b, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return disc, 0, 0, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	return disc, a, b, nil
}
