package clmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/ledger"
)

// SetPool stores a rent-exempt pool account owned by the CLMM program.
func SetPool(l *ledger.Ledger, key solana.PublicKey, pool *PoolState) error {
	data, err := pool.Encode()
	if err != nil {
		return err
	}
	l.SetAccount(key, &ledger.Account{
		Lamports: ledger.MinimumBalance(PoolStateSize),
		Owner:    ProgramID,
		Data:     data,
	})
	return nil
}

func Pool(l *ledger.Ledger, key solana.PublicKey) (*PoolState, error) {
	a, ok := l.Account(key)
	if !ok || !a.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("pool %s not found", key)
	}
	return DecodePoolState(a.Data)
}

// SetPoolTick moves the current tick of a stored pool.
func SetPoolTick(l *ledger.Ledger, key solana.PublicKey, tick int32) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("tick %d out of bounds", tick)
	}
	return l.Update(key, func(a *ledger.Account) error {
		pool, err := DecodePoolState(a.Data)
		if err != nil {
			return err
		}
		pool.TickCurrent = tick
		return pool.Patch(a.Data)
	})
}

func SetPersonalPosition(l *ledger.Ledger, key solana.PublicKey, position *PersonalPositionState) error {
	data, err := position.Encode()
	if err != nil {
		return err
	}
	l.SetAccount(key, &ledger.Account{
		Lamports: ledger.MinimumBalance(PersonalPositionStateSize),
		Owner:    ProgramID,
		Data:     data,
	})
	return nil
}

func PersonalPosition(l *ledger.Ledger, key solana.PublicKey) (*PersonalPositionState, error) {
	a, ok := l.Account(key)
	if !ok || !a.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("personal position %s not found", key)
	}
	return DecodePersonalPositionState(a.Data)
}
