package ledger

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"lukechampine.com/uint128"
)

type txContext struct {
	ledger   *Ledger
	ctx      context.Context
	id       uuid.UUID
	accounts map[solana.PublicKey]*Account
	signers  map[solana.PublicKey]bool

	logs          []string
	returnProgram solana.PublicKey
	returnData    []byte
}

func (tc *txContext) run(tx *Transaction) error {
	for i, ix := range tx.Instructions {
		if err := tc.ctx.Err(); err != nil {
			return &TransactionError{ID: tc.id, Index: i, Err: err}
		}
		signers := make(map[solana.PublicKey]bool)
		writable := make(map[solana.PublicKey]bool)
		for _, m := range ix.Accounts() {
			if m.IsSigner {
				if !tc.signers[m.PublicKey] {
					return &TransactionError{ID: tc.id, Index: i, Err: accountError(ErrMissingRequiredSignature, m.PublicKey)}
				}
				signers[m.PublicKey] = true
			}
			if m.IsWritable {
				writable[m.PublicKey] = true
			}
		}
		if err := tc.execute(ix, signers, writable, 1); err != nil {
			return &TransactionError{ID: tc.id, Index: i, Err: err}
		}
	}
	return nil
}

func (tc *txContext) execute(ix solana.Instruction, signers, writable map[solana.PublicKey]bool, depth int) error {
	programID := ix.ProgramID()
	program, ok := tc.ledger.program(programID)
	if !ok {
		return accountError(ErrUnknownProgram, programID)
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}

	ic := &InvokeContext{
		tx:        tc,
		programID: programID,
		accounts:  ix.Accounts(),
		data:      data,
		depth:     depth,
		signers:   signers,
		writable:  writable,
	}
	ic.snapshot()

	tc.log(fmt.Sprintf("Program %s invoke [%d]", programID, depth))
	err = program.Process(ic)
	if err == nil {
		err = ic.verify()
	}
	if err != nil {
		tc.log(fmt.Sprintf("Program %s failed: %v", programID, err))
		InstructionsTotal.WithLabelValues(programID.String(), statusError).Inc()
		return err
	}
	tc.log(fmt.Sprintf("Program %s success", programID))
	InstructionsTotal.WithLabelValues(programID.String(), statusSuccess).Inc()
	return nil
}

func (tc *txContext) log(line string) {
	tc.logs = append(tc.logs, line)
}

// InvokeContext is the view a program gets of the instruction it executes:
// its accounts with their privileges, the instruction data and the ability to
// call other programs.
type InvokeContext struct {
	tx        *txContext
	programID solana.PublicKey
	accounts  []*solana.AccountMeta
	data      []byte
	depth     int
	signers   map[solana.PublicKey]bool
	writable  map[solana.PublicKey]bool

	// account state at the start of the instruction, refreshed after each
	// successful invoke
	pre map[solana.PublicKey]*Account
}

func (ic *InvokeContext) ProgramID() solana.PublicKey { return ic.programID }

func (ic *InvokeContext) Accounts() []*solana.AccountMeta { return ic.accounts }

func (ic *InvokeContext) Data() []byte { return ic.data }

func (ic *InvokeContext) Depth() int { return ic.depth }

func (ic *InvokeContext) Context() context.Context { return ic.tx.ctx }

func (ic *InvokeContext) IsSigner(key solana.PublicKey) bool { return ic.signers[key] }

func (ic *InvokeContext) IsWritable(key solana.PublicKey) bool { return ic.writable[key] }

// Account returns the live account for key. Mutations are checked against
// the program's privileges when the instruction returns.
func (ic *InvokeContext) Account(key solana.PublicKey) (*Account, error) {
	if _, ok := ic.pre[key]; !ok {
		return nil, accountError(ErrMissingAccount, key)
	}
	return ic.tx.accounts[key], nil
}

// Invoke runs ix as a cross-program invocation. Each seed set signs for the
// address it derives under the calling program.
func (ic *InvokeContext) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	if ic.depth+1 > ic.tx.ledger.cfg.MaxInvokeDepth {
		return ErrCallDepth
	}
	pdas := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := solana.CreateProgramAddress(seeds, ic.programID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		pdas[addr] = true
	}

	signers := make(map[solana.PublicKey]bool)
	writable := make(map[solana.PublicKey]bool)
	for _, m := range ix.Accounts() {
		key := m.PublicKey
		if _, ok := ic.pre[key]; !ok {
			return accountError(ErrMissingAccount, key)
		}
		if m.IsWritable {
			if !ic.writable[key] {
				return accountError(ErrPrivilegeEscalation, key)
			}
			writable[key] = true
		}
		if m.IsSigner {
			if !ic.signers[key] && !pdas[key] {
				return accountError(ErrPrivilegeEscalation, key)
			}
			signers[key] = true
		}
	}

	if err := ic.verify(); err != nil {
		return err
	}
	ic.tx.returnProgram, ic.tx.returnData = solana.PublicKey{}, nil
	if err := ic.tx.execute(ix, signers, writable, ic.depth+1); err != nil {
		return err
	}
	ic.snapshot()
	return nil
}

func (ic *InvokeContext) SetReturnData(data []byte) {
	ic.tx.returnProgram = ic.programID
	ic.tx.returnData = bytes.Clone(data)
}

// ReturnData is the data set by the most recently invoked program.
func (ic *InvokeContext) ReturnData() (solana.PublicKey, []byte) {
	return ic.tx.returnProgram, ic.tx.returnData
}

// Log records a program log line on the receipt. args are key/value pairs.
func (ic *InvokeContext) Log(msg string, args ...any) {
	var sb strings.Builder
	sb.WriteString("Program log: ")
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	ic.tx.log(sb.String())
	ic.tx.ledger.log.Debug(msg, append(args, "program", ic.programID, "tx", ic.tx.id)...)
}

func (ic *InvokeContext) snapshot() {
	ic.pre = make(map[solana.PublicKey]*Account, len(ic.accounts))
	for _, m := range ic.accounts {
		ic.pre[m.PublicKey] = ic.tx.accounts[m.PublicKey].Clone()
	}
}

// verify enforces the account rules of the executing program against the
// state recorded by the last snapshot.
func (ic *InvokeContext) verify() error {
	before, after := uint128.Zero, uint128.Zero
	for key, pre := range ic.pre {
		post := ic.tx.accounts[key]
		before = before.Add64(pre.Lamports)
		after = after.Add64(post.Lamports)
		if pre.Equal(post) {
			continue
		}
		if !ic.writable[key] || pre.Executable || post.Executable {
			return accountError(ErrReadonlyModified, key)
		}
		owned := pre.Owner.Equals(ic.programID)
		if !pre.Owner.Equals(post.Owner) && (!owned || !isZeroed(post.Data)) {
			return accountError(ErrModifiedOwner, key)
		}
		if !bytes.Equal(pre.Data, post.Data) && !owned {
			return accountError(ErrExternalDataModified, key)
		}
		if post.Lamports < pre.Lamports && !owned {
			return accountError(ErrExternalLamportSpend, key)
		}
	}
	if !before.Equals(after) {
		return ErrUnbalancedInstruction
	}
	return nil
}
