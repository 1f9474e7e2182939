package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// associatedTokenProgram creates canonical token accounts through nested
// system and token invocations. Data [1] selects the idempotent variant.
type associatedTokenProgram struct{}

func (associatedTokenProgram) ProgramID() solana.PublicKey {
	return solana.SPLAssociatedTokenAccountProgramID
}

func (associatedTokenProgram) Process(ic *InvokeContext) error {
	idempotent := false
	switch data := ic.Data(); {
	case len(data) == 0 || data[0] == 0:
	case data[0] == 1:
		idempotent = true
	default:
		return fmt.Errorf("%w: unsupported associated token instruction %d", ErrInvalidInstructionData, data[0])
	}

	inst := associatedtokenaccount.NewCreateInstructionBuilder()
	if err := inst.SetAccounts(ic.Accounts()); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingAccount, err)
	}
	payer := inst.GetPayerAccount().PublicKey
	address := inst.GetAssociatedTokenAddressAccount().PublicKey

	derived, bump, err := solana.FindProgramAddress(
		[][]byte{inst.Wallet[:], solana.TokenProgramID[:], inst.Mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil || !derived.Equals(address) {
		return accountError(ErrInvalidSeeds, address)
	}

	existing, err := ic.Account(address)
	if err != nil {
		return err
	}
	if existing.Owner.Equals(solana.TokenProgramID) {
		if !idempotent {
			return accountError(ErrAccountAlreadyInUse, address)
		}
		state, err := solanago.DecodeTokenAccount(existing.Data)
		if err != nil || !state.Owner.Equals(inst.Wallet) || !state.Mint.Equals(inst.Mint) {
			return fmt.Errorf("%w: existing account %s is not the associated account", ErrInvalidArgument, address)
		}
		return nil
	}

	create := system.NewCreateAccountInstruction(
		MinimumBalance(solanago.TokenAccountSize),
		solanago.TokenAccountSize,
		solana.TokenProgramID,
		payer,
		address,
	).Build()
	seeds := [][]byte{inst.Wallet[:], solana.TokenProgramID[:], inst.Mint[:], {bump}}
	if err := ic.Invoke(create, seeds); err != nil {
		return err
	}
	return ic.Invoke(token.NewInitializeAccount3Instruction(inst.Wallet, address, inst.Mint).Build())
}

// NewCreateIdempotentInstruction is the Create instruction with data [1].
func NewCreateIdempotentInstruction(payer, wallet, mint solana.PublicKey) solana.Instruction {
	ix := associatedtokenaccount.NewCreateInstruction(payer, wallet, mint).Build()
	return solana.NewInstruction(ix.ProgramID(), ix.Accounts(), []byte{1})
}
