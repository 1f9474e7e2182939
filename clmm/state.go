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

var ErrAccountDiscriminator = errors.New("clmm: account discriminator mismatch")

// PoolState holds the leading fields of a Raydium CLMM pool. The remaining
// bytes of the account (fee growth, rewards, bitmaps) are not interpreted.
type PoolState struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	Liquidity      uint128.Uint128
	SqrtPriceX64   uint128.Uint128
	TickCurrent    int32
}

func DecodePoolState(data []byte) (*PoolState, error) {
	if len(data) < PoolTickCurrentOffset+4 {
		return nil, fmt.Errorf("clmm: pool state too short: %d", len(data))
	}
	if !bytes.Equal(data[:8], PoolStateDiscriminator[:]) {
		return nil, ErrAccountDiscriminator
	}
	dec := bin.NewBinDecoder(data[8:])
	p := &PoolState{}
	var err error
	if p.Bump, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	for _, key := range []*solana.PublicKey{&p.AmmConfig, &p.Owner, &p.TokenMint0, &p.TokenMint1, &p.TokenVault0, &p.TokenVault1, &p.ObservationKey} {
		if err := readKey(dec, key); err != nil {
			return nil, err
		}
	}
	if p.MintDecimals0, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if p.MintDecimals1, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if p.TickSpacing, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return nil, err
	}
	if p.Liquidity, err = readUint128(dec); err != nil {
		return nil, err
	}
	if p.SqrtPriceX64, err = readUint128(dec); err != nil {
		return nil, err
	}
	if p.TickCurrent, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode writes a full-size pool account.
func (p *PoolState) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, PoolStateSize))
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(PoolStateDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(p.Bump); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{p.AmmConfig, p.Owner, p.TokenMint0, p.TokenMint1, p.TokenVault0, p.TokenVault1, p.ObservationKey} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint8(p.MintDecimals0); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(p.MintDecimals1); err != nil {
		return nil, err
	}
	if err := enc.WriteUint16(p.TickSpacing, binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, v := range []uint128.Uint128{p.Liquidity, p.SqrtPriceX64} {
		if err := enc.WriteUint128(u128.ToWire(v), binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteInt32(p.TickCurrent, binary.LittleEndian); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	return append(out, make([]byte, PoolStateSize-len(out))...), nil
}

type PositionRewardInfo struct {
	GrowthInsideLastX64 uint128.Uint128
	RewardAmountOwed    uint64
}

type PersonalPositionState struct {
	Bump                    uint8
	NftMint                 solana.PublicKey
	PoolID                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
	RewardInfos             [3]PositionRewardInfo
	RecentEpoch             uint64
}

func DecodePersonalPositionState(data []byte) (*PersonalPositionState, error) {
	if len(data) != PersonalPositionStateSize {
		return nil, fmt.Errorf("clmm: personal position has invalid length %d", len(data))
	}
	if !bytes.Equal(data[:8], PersonalPositionStateDiscriminator[:]) {
		return nil, ErrAccountDiscriminator
	}
	dec := bin.NewBinDecoder(data[8:])
	p := &PersonalPositionState{}
	var err error
	if p.Bump, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if err := readKey(dec, &p.NftMint); err != nil {
		return nil, err
	}
	if err := readKey(dec, &p.PoolID); err != nil {
		return nil, err
	}
	if p.TickLowerIndex, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	if p.TickUpperIndex, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, v := range []*uint128.Uint128{&p.Liquidity, &p.FeeGrowthInside0LastX64, &p.FeeGrowthInside1LastX64} {
		if *v, err = readUint128(dec); err != nil {
			return nil, err
		}
	}
	if p.TokenFeesOwed0, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	if p.TokenFeesOwed1, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	for i := range p.RewardInfos {
		if p.RewardInfos[i].GrowthInsideLastX64, err = readUint128(dec); err != nil {
			return nil, err
		}
		if p.RewardInfos[i].RewardAmountOwed, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if p.RecentEpoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PersonalPositionState) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, PersonalPositionStateSize))
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(PersonalPositionStateDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(p.Bump); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{p.NftMint, p.PoolID} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	for _, tick := range []int32{p.TickLowerIndex, p.TickUpperIndex} {
		if err := enc.WriteInt32(tick, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	for _, v := range []uint128.Uint128{p.Liquidity, p.FeeGrowthInside0LastX64, p.FeeGrowthInside1LastX64} {
		if err := enc.WriteUint128(u128.ToWire(v), binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	for _, v := range []uint64{p.TokenFeesOwed0, p.TokenFeesOwed1} {
		if err := enc.WriteUint64(v, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	for _, r := range p.RewardInfos {
		if err := enc.WriteUint128(u128.ToWire(r.GrowthInsideLastX64), binary.LittleEndian); err != nil {
			return nil, err
		}
		if err := enc.WriteUint64(r.RewardAmountOwed, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint64(p.RecentEpoch, binary.LittleEndian); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	return append(out, make([]byte, PersonalPositionStateSize-len(out))...), nil
}

func readKey(dec *bin.Decoder, key *solana.PublicKey) error {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(key[:], b)
	return nil
}

func readUint128(dec *bin.Decoder) (uint128.Uint128, error) {
	v, err := dec.ReadUint128(binary.LittleEndian)
	if err != nil {
		return uint128.Zero, err
	}
	return u128.FromWire(v), nil
}

// Patch overwrites the modelled leading fields of an existing pool account,
// leaving the rest of data untouched.
func (p *PoolState) Patch(data []byte) error {
	encoded, err := p.Encode()
	if err != nil {
		return err
	}
	copy(data, encoded[:PoolTickCurrentOffset+4])
	return nil
}
