package clmm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/u128"
)

var ErrInstructionData = errors.New("clmm: malformed instruction data")

// DecreaseLiquidityV2Accounts follows the account order of decrease_liquidity_v2.
type DecreaseLiquidityV2Accounts struct {
	NftOwner         solana.PublicKey // signer
	NftAccount       solana.PublicKey
	PersonalPosition solana.PublicKey
	PoolState        solana.PublicKey
	ProtocolPosition solana.PublicKey
	TokenVault0      solana.PublicKey
	TokenVault1      solana.PublicKey
	TickArrayLower   solana.PublicKey
	TickArrayUpper   solana.PublicKey
	Recipient0       solana.PublicKey
	Recipient1       solana.PublicKey
	TokenProgram     solana.PublicKey
	TokenProgram2022 solana.PublicKey
	MemoProgram      solana.PublicKey
	VaultMint0       solana.PublicKey
	VaultMint1       solana.PublicKey

	// reward (vault, recipient, mint) triples and the optional bitmap extension
	Remaining []*solana.AccountMeta
}

func (a *DecreaseLiquidityV2Accounts) Metas() solana.AccountMetaSlice {
	metas := solana.AccountMetaSlice{
		solana.Meta(a.NftOwner).SIGNER(),
		solana.Meta(a.NftAccount),
		solana.Meta(a.PersonalPosition).WRITE(),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.ProtocolPosition).WRITE(),
		solana.Meta(a.TokenVault0).WRITE(),
		solana.Meta(a.TokenVault1).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
		solana.Meta(a.Recipient0).WRITE(),
		solana.Meta(a.Recipient1).WRITE(),
		solana.Meta(a.TokenProgram),
		solana.Meta(a.TokenProgram2022),
		solana.Meta(a.MemoProgram),
		solana.Meta(a.VaultMint0),
		solana.Meta(a.VaultMint1),
	}
	return append(metas, a.Remaining...)
}

// IncreaseLiquidityV2Accounts follows the account order of increase_liquidity_v2.
type IncreaseLiquidityV2Accounts struct {
	NftOwner         solana.PublicKey // signer
	NftAccount       solana.PublicKey
	PoolState        solana.PublicKey
	ProtocolPosition solana.PublicKey
	PersonalPosition solana.PublicKey
	TickArrayLower   solana.PublicKey
	TickArrayUpper   solana.PublicKey
	TokenAccount0    solana.PublicKey
	TokenAccount1    solana.PublicKey
	TokenVault0      solana.PublicKey
	TokenVault1      solana.PublicKey
	TokenProgram     solana.PublicKey
	TokenProgram2022 solana.PublicKey
	VaultMint0       solana.PublicKey
	VaultMint1       solana.PublicKey
}

func (a *IncreaseLiquidityV2Accounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.NftOwner).SIGNER(),
		solana.Meta(a.NftAccount),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.ProtocolPosition).WRITE(),
		solana.Meta(a.PersonalPosition).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
		solana.Meta(a.TokenAccount0).WRITE(),
		solana.Meta(a.TokenAccount1).WRITE(),
		solana.Meta(a.TokenVault0).WRITE(),
		solana.Meta(a.TokenVault1).WRITE(),
		solana.Meta(a.TokenProgram),
		solana.Meta(a.TokenProgram2022),
		solana.Meta(a.VaultMint0),
		solana.Meta(a.VaultMint1),
	}
}

// DecreaseLiquidityV2Instruction removes liquidity from a personal position.
type DecreaseLiquidityV2Instruction struct {
	Liquidity               uint128.Uint128
	Amount0Min              uint64
	Amount1Min              uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *DecreaseLiquidityV2Instruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *DecreaseLiquidityV2Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *DecreaseLiquidityV2Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(DecreaseLiquidityV2Discriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.WriteUint128(u128.ToWire(inst.Liquidity), binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode liquidity: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount0Min, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount 0 min: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount1Min, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount 1 min: %w", err)
	}
	return buf.Bytes(), nil
}

func NewDecreaseLiquidityV2Instruction(accounts *DecreaseLiquidityV2Accounts, liquidity uint128.Uint128, amount0Min, amount1Min uint64) *DecreaseLiquidityV2Instruction {
	return &DecreaseLiquidityV2Instruction{
		Liquidity:        liquidity,
		Amount0Min:       amount0Min,
		Amount1Min:       amount1Min,
		AccountMetaSlice: accounts.Metas(),
	}
}

// IncreaseLiquidityV2Instruction adds liquidity to a personal position. With
// zero Liquidity the amount selected by BaseFlag (true for token 0) decides it.
type IncreaseLiquidityV2Instruction struct {
	Liquidity               uint128.Uint128
	Amount0Max              uint64
	Amount1Max              uint64
	BaseFlag                *bool
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *IncreaseLiquidityV2Instruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *IncreaseLiquidityV2Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *IncreaseLiquidityV2Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(IncreaseLiquidityV2Discriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.WriteUint128(u128.ToWire(inst.Liquidity), binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode liquidity: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount0Max, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount 0 max: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount1Max, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount 1 max: %w", err)
	}
	if err := enc.WriteOption(inst.BaseFlag != nil); err != nil {
		return nil, fmt.Errorf("failed to encode base flag: %w", err)
	}
	if inst.BaseFlag != nil {
		if err := enc.WriteBool(*inst.BaseFlag); err != nil {
			return nil, fmt.Errorf("failed to encode base flag: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func NewIncreaseLiquidityV2Instruction(accounts *IncreaseLiquidityV2Accounts, liquidity uint128.Uint128, amount0Max, amount1Max uint64, baseFlag *bool) *IncreaseLiquidityV2Instruction {
	return &IncreaseLiquidityV2Instruction{
		Liquidity:        liquidity,
		Amount0Max:       amount0Max,
		Amount1Max:       amount1Max,
		BaseFlag:         baseFlag,
		AccountMetaSlice: accounts.Metas(),
	}
}

// DecodeDecreaseLiquidityV2 parses instruction data, discriminator included.
func DecodeDecreaseLiquidityV2(data []byte) (*DecreaseLiquidityV2Instruction, error) {
	dec, err := discriminated(data, DecreaseLiquidityV2Discriminator)
	if err != nil {
		return nil, err
	}
	inst := &DecreaseLiquidityV2Instruction{}
	if inst.Liquidity, err = readUint128(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if inst.Amount0Min, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if inst.Amount1Min, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	return inst, nil
}

func DecodeIncreaseLiquidityV2(data []byte) (*IncreaseLiquidityV2Instruction, error) {
	dec, err := discriminated(data, IncreaseLiquidityV2Discriminator)
	if err != nil {
		return nil, err
	}
	inst := &IncreaseLiquidityV2Instruction{}
	if inst.Liquidity, err = readUint128(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if inst.Amount0Max, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if inst.Amount1Max, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	some, err := dec.ReadOption()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
	}
	if some {
		flag, err := dec.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInstructionData, err)
		}
		inst.BaseFlag = &flag
	}
	return inst, nil
}

func discriminated(data []byte, disc [8]byte) (*bin.Decoder, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInstructionData)
	}
	return bin.NewBorshDecoder(data[8:]), nil
}
