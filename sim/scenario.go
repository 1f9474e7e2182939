package sim

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"lukechampine.com/uint128"

	"github.com/krazyTry/meteora-strategy/strategy"
	"github.com/krazyTry/meteora-strategy/u128"
)

var ErrScenario = errors.New("sim: invalid scenario")

// Scenario is a scripted run against one environment.
type Scenario struct {
	Name        string
	Params      strategy.InitializeConfigArgs
	Decimals0   uint8
	Decimals1   uint8
	InitialTick int32
	Positions   []PositionSpec
	Steps       []Step
}

// PositionSpec describes a position minted before the steps run. Liquidity
// is in whole units of token 0.
type PositionSpec struct {
	Name      string
	TickLower int32
	TickUpper int32
	Liquidity decimal.Decimal
	Inner     int32
	Outer     int32
}

// Step is one scenario action. Parallel steps run concurrently; Expect
// names the program error the step must fail with.
type Step struct {
	Action    string
	Position  string
	Keeper    string
	Tick      int32
	Token     int
	Amount    decimal.Decimal
	Recipient solana.PublicKey
	Expect    string
	Parallel  []Step
}

const (
	ActionOpen            = "open"
	ActionClose           = "close"
	ActionDecrease        = "decrease"
	ActionIncrease        = "increase"
	ActionTick            = "tick"
	ActionYield           = "yield"
	ActionCreateKeeper    = "create_keeper"
	ActionFundRewards     = "fund_rewards"
	ActionWithdrawRewards = "withdraw_rewards"
	ActionSetFeature      = "set_feature"
	ActionClearFeature    = "clear_feature"
	ActionParallel        = "parallel"
)

// ParseScenario reads a scenario document. Percentages and token amounts are
// decimal strings, for example "fee_percent": "2.5".
func ParseScenario(data []byte) (*Scenario, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrScenario)
	}
	doc := gjson.ParseBytes(data)

	sc := &Scenario{
		Name:        doc.Get("name").String(),
		Params:      DefaultParams,
		Decimals0:   uint8(doc.Get("decimals.0").Uint()),
		Decimals1:   uint8(doc.Get("decimals.1").Uint()),
		InitialTick: int32(doc.Get("initial_tick").Int()),
	}
	if err := parseParams(doc.Get("params"), &sc.Params); err != nil {
		return nil, err
	}

	for i, p := range doc.Get("positions").Array() {
		spec := PositionSpec{
			Name:      p.Get("name").String(),
			TickLower: int32(p.Get("tick_lower").Int()),
			TickUpper: int32(p.Get("tick_upper").Int()),
			Inner:     int32(p.Get("inner").Int()),
			Outer:     int32(p.Get("outer").Int()),
		}
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: position %d has no name", ErrScenario, i)
		}
		liquidity, err := decimal.NewFromString(p.Get("liquidity").String())
		if err != nil {
			return nil, fmt.Errorf("%w: position %s liquidity: %v", ErrScenario, spec.Name, err)
		}
		spec.Liquidity = liquidity
		sc.Positions = append(sc.Positions, spec)
	}

	steps, err := parseSteps(doc.Get("steps"))
	if err != nil {
		return nil, err
	}
	sc.Steps = steps
	return sc, nil
}

func parseParams(p gjson.Result, params *strategy.InitializeConfigArgs) error {
	if !p.Exists() {
		return nil
	}
	if v := p.Get("state"); v.Exists() {
		params.State = uint8(v.Uint())
	}
	if v := p.Get("credits_for_decrease"); v.Exists() {
		params.CreditsForDecrease = v.Uint()
	}
	if v := p.Get("credits_for_increase"); v.Exists() {
		params.CreditsForIncrease = v.Uint()
	}
	if v := p.Get("sol_per_credit"); v.Exists() {
		params.SolPerCredit = v.Uint()
	}
	if v := p.Get("base_deposit_sol"); v.Exists() {
		lamports, err := lamportsFromSol(v.String())
		if err != nil {
			return err
		}
		params.BaseDeposit = lamports
	}
	if v := p.Get("fee_percent"); v.Exists() {
		bps, err := BasisPoints(v.String())
		if err != nil {
			return err
		}
		params.FeeBasisPoints = bps
	}
	return nil
}

func parseSteps(list gjson.Result) ([]Step, error) {
	var steps []Step
	for i, s := range list.Array() {
		step := Step{
			Action:   s.Get("action").String(),
			Position: s.Get("position").String(),
			Keeper:   s.Get("keeper").String(),
			Tick:     int32(s.Get("tick").Int()),
			Token:    int(s.Get("token").Int()),
			Expect:   s.Get("expect").String(),
		}
		if v := s.Get("amount"); v.Exists() {
			amount, err := decimal.NewFromString(v.String())
			if err != nil {
				return nil, fmt.Errorf("%w: step %d amount: %v", ErrScenario, i, err)
			}
			step.Amount = amount
		}
		if v := s.Get("recipient"); v.Exists() {
			key, err := parseKey(v.String())
			if err != nil {
				return nil, fmt.Errorf("%w: step %d recipient: %v", ErrScenario, i, err)
			}
			step.Recipient = key
		}
		if step.Action == ActionParallel {
			inner, err := parseSteps(s.Get("steps"))
			if err != nil {
				return nil, err
			}
			step.Parallel = inner
		}
		if step.Action == "" {
			return nil, fmt.Errorf("%w: step %d has no action", ErrScenario, i)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// BasisPoints converts a percentage such as "2.5" into basis points.
func BasisPoints(percent string) (uint16, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return 0, fmt.Errorf("%w: fee percent %q", ErrScenario, percent)
	}
	bps := d.Mul(decimal.NewFromInt(100))
	if !bps.IsInteger() || bps.IsNegative() || bps.GreaterThan(decimal.NewFromInt(strategy.MaxFeeBasisPoints)) {
		return 0, fmt.Errorf("%w: fee percent %s is not a whole number of basis points up to 100%%", ErrScenario, percent)
	}
	return uint16(bps.IntPart()), nil
}

// RawAmount scales a decimal token amount to base units.
func RawAmount(amount decimal.Decimal, decimals uint8) (uint64, error) {
	raw := amount.Shift(int32(decimals))
	if !raw.IsInteger() || raw.IsNegative() || raw.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("%w: amount %s does not fit %d decimals", ErrScenario, amount, decimals)
	}
	return raw.BigInt().Uint64(), nil
}

// RawLiquidity scales a decimal liquidity to base units. Unlike token
// amounts liquidity may use the full 128 bits.
func RawLiquidity(amount decimal.Decimal, decimals uint8) (uint128.Uint128, error) {
	raw := amount.Shift(int32(decimals))
	if !raw.IsInteger() {
		return uint128.Zero, fmt.Errorf("%w: liquidity %s does not fit %d decimals", ErrScenario, amount, decimals)
	}
	v, err := u128.Parse(raw.BigInt().String())
	if err != nil {
		return uint128.Zero, fmt.Errorf("%w: liquidity %s: %v", ErrScenario, amount, err)
	}
	return v, nil
}

// UIAmount renders base units with decimals.
func UIAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals)).String()
}

func lamportsFromSol(sol string) (uint64, error) {
	d, err := decimal.NewFromString(sol)
	if err != nil {
		return 0, fmt.Errorf("%w: SOL amount %q", ErrScenario, sol)
	}
	return RawAmount(d, 9)
}

func parseKey(s string) (solana.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("key %q is %d bytes", s, len(b))
	}
	return solana.PublicKeyFromBytes(b), nil
}
