package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

var (
	ErrInvalidArgument          = errors.New("invalid program argument")
	ErrInvalidInstructionData   = errors.New("invalid instruction data")
	ErrArithmeticOverflow       = errors.New("program arithmetic overflowed")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrMissingRequiredSignature = errors.New("missing required signature for instruction")
	ErrPrivilegeEscalation      = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrReadonlyModified         = errors.New("instruction modified a read-only account")
	ErrExternalDataModified     = errors.New("instruction modified data of an account it does not own")
	ErrExternalLamportSpend     = errors.New("instruction spent from the balance of an account it does not own")
	ErrModifiedOwner            = errors.New("instruction illegally modified the owner of an account")
	ErrUnbalancedInstruction    = errors.New("sum of account balances before and after instruction do not match")
	ErrAccountInUse             = errors.New("account in use")
	ErrAccountAlreadyInUse      = errors.New("account already in use")
	ErrUnknownProgram           = errors.New("unknown program")
	ErrCallDepth                = errors.New("cross-program invocation call depth too deep")
	ErrMissingAccount           = errors.New("an account required by the instruction is missing")
	ErrInvalidSeeds             = errors.New("provided seeds do not result in a valid address")
	ErrInsufficientFundsForRent = errors.New("insufficient funds for rent")
	ErrEmptyTransaction         = errors.New("transaction has no instructions")
)

// Token program errors.
var (
	ErrUninitializedAccount = errors.New("token: account not initialized")
	ErrAlreadyInitialized   = errors.New("token: account already initialized")
	ErrAccountFrozen        = errors.New("token: account frozen")
	ErrOwnerMismatch        = errors.New("token: owner does not match")
	ErrMintMismatch         = errors.New("token: account not associated with this mint")
	ErrMintDecimalsMismatch = errors.New("token: mint decimals mismatch")
	ErrNonNativeHasBalance  = errors.New("token: non-native account can only be closed if its balance is zero")
	ErrUnsupportedAuthority = errors.New("token: authority type not supported")
)

// TransactionError carries the index of the failing instruction. Index is -1
// for failures detected after every instruction ran (rent checks).
type TransactionError struct {
	ID    uuid.UUID
	Index int
	Err   error
}

func (e *TransactionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("transaction %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("transaction %s: instruction %d: %v", e.ID, e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func accountError(err error, key solana.PublicKey) error {
	return fmt.Errorf("%w: %s", err, key)
}
