package strategy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/ledger"
	"github.com/krazyTry/meteora-strategy/u128"
)

var ErrAccountDiscriminator = errors.New("strategy: account discriminator mismatch")

// GlobalState is the program wide configuration.
type GlobalState struct {
	State              uint8
	Admin              solana.PublicKey
	SolVault           solana.PublicKey
	CreditsForDecrease uint64
	CreditsForIncrease uint64
	SolPerCredit       uint64
	BaseDeposit        uint64
	FeeBasisPoints     uint16
	Bump               uint8
	SolVaultBump       uint8
}

func (g *GlobalState) CanCreatePosition() bool   { return g.State&CanCreate != 0 }
func (g *GlobalState) CanIncreasePosition() bool { return g.State&CanIncrease != 0 }
func (g *GlobalState) CanDecreasePosition() bool { return g.State&CanDecrease != 0 }

// SetStateBit flips one of the eight feature bits.
func (g *GlobalState) SetStateBit(bit uint8, set bool) error {
	if bit >= 8 {
		return fmt.Errorf("%w: state bit %d", ledger.ErrInvalidArgument, bit)
	}
	if set {
		g.State |= 1 << bit
	} else {
		g.State &^= 1 << bit
	}
	return nil
}

// NetAmount returns what a vault withdrawal is worth to the position after
// the protocol fee on the gain. A withdrawal that did not gain returns the
// deposited amount.
func (g *GlobalState) NetAmount(deposited, withdrawn uint64) (uint64, error) {
	if withdrawn <= deposited {
		return deposited, nil
	}
	gain := withdrawn - deposited
	fee, err := u128.MulDiv64(gain, uint64(g.FeeBasisPoints), MaxFeeBasisPoints)
	if err != nil || fee > gain {
		return 0, ErrNumericalOverflow
	}
	return withdrawn - fee, nil
}

func (g *GlobalState) AwardDecrease(k *KeeperState) error {
	return k.addCredits(g.CreditsForDecrease)
}

// AwardIncrease pays the full increase credits when the position had left
// its range and half of them otherwise.
func (g *GlobalState) AwardIncrease(k *KeeperState, outOfRange bool) error {
	credits := g.CreditsForIncrease
	if !outOfRange {
		credits /= 2
	}
	return k.addCredits(credits)
}

// RewardAmount converts credits into lamports.
func (g *GlobalState) RewardAmount(credits uint64) (uint64, error) {
	amount, err := u128.MulDiv64(credits, g.SolPerCredit, 1)
	if err != nil {
		return 0, ledger.ErrArithmeticOverflow
	}
	return amount, nil
}

func (g *GlobalState) signer(programID solana.PublicKey) (authority, error) {
	return newAuthority(programID, seed.GlobalState, []byte{g.Bump})
}

func (g *GlobalState) Encode() ([]byte, error) {
	return encodeRecord(GlobalStateDiscriminator, g, GlobalStateSize)
}

func DecodeGlobalState(data []byte) (*GlobalState, error) {
	g := &GlobalState{}
	if err := decodeRecord(data, GlobalStateDiscriminator, GlobalStateSize, g); err != nil {
		return nil, err
	}
	return g, nil
}

// WhitelistState marks a mint as an approved destination.
type WhitelistState struct {
	Mint solana.PublicKey
}

func (w *WhitelistState) Encode() ([]byte, error) {
	return encodeRecord(WhitelistStateDiscriminator, w, WhitelistStateSize)
}

func DecodeWhitelistState(data []byte) (*WhitelistState, error) {
	w := &WhitelistState{}
	if err := decodeRecord(data, WhitelistStateDiscriminator, WhitelistStateSize, w); err != nil {
		return nil, err
	}
	return w, nil
}

type KeeperState struct {
	Keeper  solana.PublicKey
	Credits uint64
}

func (k *KeeperState) addCredits(credits uint64) error {
	sum := k.Credits + credits
	if sum < k.Credits {
		return ErrNumericalOverflow
	}
	k.Credits = sum
	return nil
}

func (k *KeeperState) ResetCredits() { k.Credits = 0 }

func (k *KeeperState) Encode() ([]byte, error) {
	return encodeRecord(KeeperStateDiscriminator, k, KeeperStateSize)
}

func DecodeKeeperState(data []byte) (*KeeperState, error) {
	k := &KeeperState{}
	if err := decodeRecord(data, KeeperStateDiscriminator, KeeperStateSize, k); err != nil {
		return nil, err
	}
	return k, nil
}

// DeployedToken is the side of the pool a position holds in the vault.
type DeployedToken uint8

const (
	DeployedToken0 DeployedToken = iota
	DeployedToken1
	DeployedNone
)

func (d DeployedToken) String() string {
	switch d {
	case DeployedToken0:
		return "token0"
	case DeployedToken1:
		return "token1"
	case DeployedNone:
		return "none"
	default:
		return fmt.Sprintf("DeployedToken(%d)", uint8(d))
	}
}

// UserState tracks one custodied position. Ticks mirror the AMM position;
// the in and out bands are the keeper thresholds around it.
type UserState struct {
	User          solana.PublicKey
	UserMint      solana.PublicKey
	TokenDeployed DeployedToken
	VaultDeposit  uint64
	TickLower     int32
	TickUpper     int32
	Liquidity     uint128.Uint128
	LpShares      uint64
	OutLower      int32
	OutUpper      int32
	InLower       int32
	InUpper       int32
	Bump          uint8
}

func (u *UserState) IsDeployed() bool { return u.TokenDeployed != DeployedNone }

func (u *UserState) SetDeployed(liquidity uint128.Uint128, deposit, lpShares uint64, side DeployedToken) {
	u.Liquidity = liquidity
	u.VaultDeposit = deposit
	u.LpShares = lpShares
	u.TokenDeployed = side
}

func (u *UserState) SetNotDeployed() {
	u.Liquidity = uint128.Zero
	u.VaultDeposit = 0
	u.LpShares = 0
	u.TokenDeployed = DeployedNone
}

// ValidateThresholds requires the in band to strictly enclose the position
// range and the out band to enclose the in band.
func (u *UserState) ValidateThresholds() error {
	if u.OutLower <= u.InLower && u.InLower < u.TickLower &&
		u.TickUpper < u.InUpper && u.InUpper <= u.OutUpper {
		return nil
	}
	return ErrInvalidTickThresholdProvided
}

// OutOfRangeSide picks the token the position has converted into once the
// tick has left the out band.
func (u *UserState) OutOfRangeSide(tick int32) (DeployedToken, error) {
	switch {
	case tick < u.OutLower:
		return DeployedToken0, nil
	case tick > u.OutUpper:
		return DeployedToken1, nil
	default:
		return DeployedNone, ErrTickNotOutOfRange
	}
}

func (u *UserState) InRange(tick int32) bool {
	return u.TickLower <= tick && tick <= u.TickUpper
}

func (u *UserState) InThreshold(tick int32) bool {
	return u.InLower <= tick && tick <= u.InUpper
}

func (u *UserState) signer(programID solana.PublicKey) (authority, error) {
	return newAuthority(programID, seed.UserState, u.UserMint.Bytes(), []byte{u.Bump})
}

func (u *UserState) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, UserStateSize))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(UserStateDiscriminator[:], false); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{u.User, u.UserMint} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint8(uint8(u.TokenDeployed)); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(u.VaultDeposit, binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, tick := range []int32{u.TickLower, u.TickUpper} {
		if err := enc.WriteInt32(tick, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint128(u128.ToWire(u.Liquidity), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(u.LpShares, binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, tick := range []int32{u.OutLower, u.OutUpper, u.InLower, u.InUpper} {
		if err := enc.WriteInt32(tick, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint8(u.Bump); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	return append(out, make([]byte, UserStateSize-len(out))...), nil
}

func DecodeUserState(data []byte) (*UserState, error) {
	if len(data) < UserStateSize {
		return nil, fmt.Errorf("strategy: user state has invalid length %d", len(data))
	}
	if !bytes.Equal(data[:8], UserStateDiscriminator[:]) {
		return nil, ErrAccountDiscriminator
	}
	dec := bin.NewBorshDecoder(data[8:])
	u := &UserState{}
	for _, key := range []*solana.PublicKey{&u.User, &u.UserMint} {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, err
		}
		copy(key[:], b)
	}
	side, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	if side > uint8(DeployedNone) {
		return nil, fmt.Errorf("strategy: invalid deployed token %d", side)
	}
	u.TokenDeployed = DeployedToken(side)
	if u.VaultDeposit, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	if u.TickLower, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	if u.TickUpper, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	liquidity, err := dec.ReadUint128(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	u.Liquidity = u128.FromWire(liquidity)
	if u.LpShares, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, t := range []*int32{&u.OutLower, &u.OutUpper, &u.InLower, &u.InUpper} {
		if *t, err = dec.ReadInt32(binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	if u.Bump, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	return u, nil
}

func encodeRecord(disc [8]byte, v any, size int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, fmt.Errorf("strategy: encoded %d bytes, want %d", buf.Len(), size)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, disc [8]byte, size int, v any) error {
	if len(data) < size {
		return fmt.Errorf("strategy: record has invalid length %d", len(data))
	}
	if !bytes.Equal(data[:8], disc[:]) {
		return ErrAccountDiscriminator
	}
	return bin.NewBorshDecoder(data[8:size]).Decode(v)
}
