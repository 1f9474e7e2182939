package clmm

import (
	"fmt"

	"lukechampine.com/uint128"
)

// span returns the distances of the clamped tick from each bound and the
// width of the range.
func span(tick, lower, upper int32) (below, above, width uint64, err error) {
	if lower >= upper {
		return 0, 0, 0, fmt.Errorf("%w: tick range [%d, %d]", ErrInvalidLiquidity, lower, upper)
	}
	if tick < lower {
		tick = lower
	}
	if tick > upper {
		tick = upper
	}
	return uint64(int64(upper) - int64(tick)), uint64(int64(tick) - int64(lower)), uint64(int64(upper) - int64(lower)), nil
}

// AmountsForLiquidity splits liquidity into token amounts at tick. Deposits
// round up, withdrawals round down.
func AmountsForLiquidity(liquidity uint128.Uint128, tick, lower, upper int32, roundUp bool) (amount0, amount1 uint64, err error) {
	toToken0, toToken1, width, err := span(tick, lower, upper)
	if err != nil {
		return 0, 0, err
	}
	if amount0, err = scale(liquidity, toToken0, width, roundUp); err != nil {
		return 0, 0, err
	}
	if amount1, err = scale(liquidity, toToken1, width, roundUp); err != nil {
		return 0, 0, err
	}
	return amount0, amount1, nil
}

// LiquidityForAmount0 is the largest liquidity whose token 0 requirement
// fits in amount.
func LiquidityForAmount0(amount uint64, tick, lower, upper int32) (uint128.Uint128, error) {
	toToken0, _, width, err := span(tick, lower, upper)
	if err != nil {
		return uint128.Zero, err
	}
	if toToken0 == 0 || amount == 0 {
		return uint128.Zero, fmt.Errorf("%w: token 0 cannot add liquidity at tick %d", ErrInvalidLiquidity, tick)
	}
	return uint128.From64(amount).Mul64(width).Div64(toToken0), nil
}

func LiquidityForAmount1(amount uint64, tick, lower, upper int32) (uint128.Uint128, error) {
	_, toToken1, width, err := span(tick, lower, upper)
	if err != nil {
		return uint128.Zero, err
	}
	if toToken1 == 0 || amount == 0 {
		return uint128.Zero, fmt.Errorf("%w: token 1 cannot add liquidity at tick %d", ErrInvalidLiquidity, tick)
	}
	return uint128.From64(amount).Mul64(width).Div64(toToken1), nil
}

func scale(liquidity uint128.Uint128, num, den uint64, roundUp bool) (uint64, error) {
	if num == 0 {
		return 0, nil
	}
	if liquidity.Cmp(uint128.Max.Div64(num)) > 0 {
		return 0, ErrAmountExceedsU64
	}
	q, r := liquidity.Mul64(num).QuoRem64(den)
	if roundUp && r != 0 {
		q = q.Add64(1)
	}
	if q.Hi != 0 {
		return 0, ErrAmountExceedsU64
	}
	return q.Lo, nil
}
