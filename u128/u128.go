package u128

import (
	"errors"
	"fmt"
	"math/big"

	binary "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"
)

var ErrOverflow = errors.New("u128: overflow")

// Uint128 is the little-endian wire form used by borsh encoded accounts and
// instruction arguments.
type Uint128 binary.Uint128

func (u *Uint128) Scan(s fmt.ScanState, ch rune) error {
	i := new(big.Int)
	if err := i.Scan(s, ch); err != nil {
		return err
	} else if i.Sign() < 0 {
		return errors.New("value cannot be negative")
	} else if i.BitLen() > 128 {
		return errors.New("value overflows Uint128")
	}
	u.Lo = i.Uint64()
	u.Hi = i.Rsh(i, 64).Uint64()
	return nil
}

// Parse reads a base-10 unsigned integer into the arithmetic form.
func Parse(num string) (uint128.Uint128, error) {
	w := binary.NewUint128LittleEndian()
	if _, err := fmt.Sscan(num, (*Uint128)(w)); err != nil {
		return uint128.Zero, fmt.Errorf("parse %q: %w", num, err)
	}
	return FromWire(*w), nil
}

func FromWire(v binary.Uint128) uint128.Uint128 {
	return uint128.New(v.Lo, v.Hi)
}

func ToWire(v uint128.Uint128) binary.Uint128 {
	w := binary.NewUint128LittleEndian()
	w.Lo = v.Lo
	w.Hi = v.Hi
	return *w
}

// CheckedAdd returns ErrOverflow instead of panicking.
func CheckedAdd(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return uint128.Zero, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns ErrOverflow when b > a.
func CheckedSub(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(b) < 0 {
		return uint128.Zero, ErrOverflow
	}
	return a.Sub(b), nil
}

// MulDiv64 computes a*b/c with a 128-bit intermediate and fails if the
// quotient does not fit in 64 bits.
func MulDiv64(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrOverflow
	}
	q := uint128.From64(a).Mul64(b).Div64(c)
	if q.Hi != 0 {
		return 0, ErrOverflow
	}
	return q.Lo, nil
}
