package strategy

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/ledger"
)

// authority is a program derived address the executing program can sign
// for. It is only built from the seeds that derive it.
type authority struct {
	key   solana.PublicKey
	seeds [][]byte
}

func newAuthority(programID solana.PublicKey, seeds ...[]byte) (authority, error) {
	key, err := solana.CreateProgramAddress(seeds, programID)
	if err != nil {
		return authority{}, fmt.Errorf("%w: %v", ledger.ErrInvalidSeeds, err)
	}
	return authority{key: key, seeds: seeds}, nil
}

func (a authority) Key() solana.PublicKey { return a.key }

// invoke runs ix with a signing for its own address.
func (a authority) invoke(ic *ledger.InvokeContext, ix solana.Instruction) error {
	return ic.Invoke(ix, a.seeds)
}
