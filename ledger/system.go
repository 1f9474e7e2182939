package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

type systemProgram struct{}

func (systemProgram) ProgramID() solana.PublicKey { return solana.SystemProgramID }

func (systemProgram) Process(ic *InvokeContext) error {
	inst, err := system.DecodeInstruction(ic.Accounts(), ic.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	switch v := inst.Impl.(type) {
	case *system.Transfer:
		return systemTransfer(ic, v.GetFundingAccount().PublicKey, v.GetRecipientAccount().PublicKey, *v.Lamports)
	case *system.CreateAccount:
		return systemCreateAccount(ic, v)
	default:
		return fmt.Errorf("%w: unsupported system instruction %T", ErrInvalidInstructionData, inst.Impl)
	}
}

func systemTransfer(ic *InvokeContext, from, to solana.PublicKey, lamports uint64) error {
	if !ic.IsSigner(from) {
		return accountError(ErrMissingRequiredSignature, from)
	}
	src, err := ic.Account(from)
	if err != nil {
		return err
	}
	dst, err := ic.Account(to)
	if err != nil {
		return err
	}
	if len(src.Data) > 0 {
		return fmt.Errorf("%w: transfer source %s carries data", ErrInvalidArgument, from)
	}
	if src.Lamports < lamports {
		return accountError(ErrInsufficientFunds, from)
	}
	if from.Equals(to) {
		return nil
	}
	credited, err := checkedAdd(dst.Lamports, lamports)
	if err != nil {
		return err
	}
	src.Lamports -= lamports
	dst.Lamports = credited
	ic.Log("Transfer", "from", from, "to", to, "lamports", lamports)
	return nil
}

func systemCreateAccount(ic *InvokeContext, v *system.CreateAccount) error {
	funding, created := v.GetFundingAccount().PublicKey, v.GetNewAccount().PublicKey
	if !ic.IsSigner(funding) {
		return accountError(ErrMissingRequiredSignature, funding)
	}
	if !ic.IsSigner(created) {
		return accountError(ErrMissingRequiredSignature, created)
	}
	src, err := ic.Account(funding)
	if err != nil {
		return err
	}
	dst, err := ic.Account(created)
	if err != nil {
		return err
	}
	if dst.Exists() || !dst.Owner.Equals(solana.SystemProgramID) {
		return accountError(ErrAccountAlreadyInUse, created)
	}
	if src.Lamports < *v.Lamports {
		return accountError(ErrInsufficientFunds, funding)
	}
	src.Lamports -= *v.Lamports
	dst.Lamports = *v.Lamports
	dst.Data = make([]byte, *v.Space)
	dst.Owner = *v.Owner
	ic.Log("CreateAccount", "account", created, "space", *v.Space, "owner", *v.Owner)
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}
