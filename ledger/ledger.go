package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const DefaultMaxInvokeDepth = 4

// Program is an instruction processor registered under its program id.
type Program interface {
	ProgramID() solana.PublicKey
	Process(ic *InvokeContext) error
}

type Config struct {
	Logger         *slog.Logger
	Clock          clockwork.Clock
	MaxInvokeDepth int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.MaxInvokeDepth < 0 {
		return errors.New("max invoke depth must not be negative")
	}
	if cfg.MaxInvokeDepth == 0 {
		cfg.MaxInvokeDepth = DefaultMaxInvokeDepth
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Transaction struct {
	Instructions []solana.Instruction
	// Signers are the keys whose signatures the transaction carries.
	Signers []solana.PublicKey
}

type Receipt struct {
	ID                uuid.UUID
	Logs              []string
	ReturnDataProgram solana.PublicKey
	ReturnData        []byte
	Duration          time.Duration
}

type lockState struct {
	writer  bool
	readers int
}

// Ledger holds account state and executes transactions against it. Each
// transaction locks its accounts, runs on a private copy and commits only
// when every instruction succeeds.
type Ledger struct {
	log *slog.Logger
	cfg Config

	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
	locks    map[solana.PublicKey]*lockState
	programs map[solana.PublicKey]Program
}

func New(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		log:      cfg.Logger,
		cfg:      cfg,
		accounts: make(map[solana.PublicKey]*Account),
		locks:    make(map[solana.PublicKey]*lockState),
		programs: make(map[solana.PublicKey]Program),
	}
	l.Register(systemProgram{})
	l.Register(tokenProgram{})
	l.Register(associatedTokenProgram{})
	return l, nil
}

// Register installs p and marks its id as an executable account.
func (l *Ledger) Register(p Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := p.ProgramID()
	l.programs[id] = p
	l.accounts[id] = &Account{
		Lamports:   1,
		Owner:      solana.BPFLoaderUpgradeableProgramID,
		Executable: true,
	}
}

func (l *Ledger) program(id solana.PublicKey) (Program, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.programs[id]
	return p, ok
}

// Account returns a copy of the stored account.
func (l *Ledger) Account(key solana.PublicKey) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (l *Ledger) SetAccount(key solana.PublicKey, account *Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !account.Exists() {
		delete(l.accounts, key)
		return
	}
	l.accounts[key] = account.Clone()
}

// Update applies fn to a copy of the account and stores the result. Missing
// accounts are passed in empty and owned by the system program.
func (l *Ledger) Update(key solana.PublicKey, fn func(*Account) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.locks[key]; ok && st.writer {
		return accountError(ErrAccountInUse, key)
	}
	a, ok := l.accounts[key]
	if ok {
		a = a.Clone()
	} else {
		a = emptyAccount()
	}
	if err := fn(a); err != nil {
		return err
	}
	if !a.Exists() {
		delete(l.accounts, key)
		return nil
	}
	l.accounts[key] = a
	return nil
}

// Process executes tx atomically. The receipt is returned on failure too so
// callers can inspect the logs.
func (l *Ledger) Process(ctx context.Context, tx *Transaction) (*Receipt, error) {
	start := l.cfg.Clock.Now()
	receipt := &Receipt{ID: uuid.New()}

	if err := ctx.Err(); err != nil {
		return receipt, err
	}
	if len(tx.Instructions) == 0 {
		return receipt, ErrEmptyTransaction
	}

	locks, err := collectLocks(tx)
	if err != nil {
		return receipt, &TransactionError{ID: receipt.ID, Index: 0, Err: err}
	}
	accounts, err := l.acquire(locks)
	if err != nil {
		AccountLockConflictsTotal.Inc()
		TransactionsTotal.WithLabelValues(statusLocked).Inc()
		return receipt, &TransactionError{ID: receipt.ID, Index: -1, Err: err}
	}
	defer l.release(locks)

	tc := &txContext{
		ledger:   l,
		ctx:      ctx,
		id:       receipt.ID,
		accounts: accounts,
		signers:  make(map[solana.PublicKey]bool, len(tx.Signers)),
	}
	for _, s := range tx.Signers {
		tc.signers[s] = true
	}
	original := make(map[solana.PublicKey]*Account, len(accounts))
	for k, a := range accounts {
		original[k] = a.Clone()
	}

	err = tc.run(tx)
	if err == nil {
		if rentErr := checkRent(original, accounts, locks); rentErr != nil {
			err = &TransactionError{ID: receipt.ID, Index: -1, Err: rentErr}
		}
	}

	receipt.Logs = tc.logs
	receipt.ReturnDataProgram = tc.returnProgram
	receipt.ReturnData = tc.returnData
	receipt.Duration = l.cfg.Clock.Since(start)
	TransactionDuration.Observe(receipt.Duration.Seconds())

	if err != nil {
		TransactionsTotal.WithLabelValues(statusError).Inc()
		l.log.Debug("ledger: transaction failed", "id", receipt.ID, "error", err)
		return receipt, err
	}

	l.commit(accounts, locks)
	TransactionsTotal.WithLabelValues(statusSuccess).Inc()
	l.log.Debug("ledger: transaction committed", "id", receipt.ID, "instructions", len(tx.Instructions), "duration", receipt.Duration)
	return receipt, nil
}

// collectLocks maps every key referenced by tx to whether it is written.
func collectLocks(tx *Transaction) (map[solana.PublicKey]bool, error) {
	locks := make(map[solana.PublicKey]bool)
	for i, ix := range tx.Instructions {
		if ix == nil {
			return nil, fmt.Errorf("%w: instruction %d is nil", ErrInvalidArgument, i)
		}
		if _, ok := locks[ix.ProgramID()]; !ok {
			locks[ix.ProgramID()] = false
		}
		for _, m := range ix.Accounts() {
			locks[m.PublicKey] = locks[m.PublicKey] || m.IsWritable
		}
	}
	return locks, nil
}

func (l *Ledger) acquire(keys map[solana.PublicKey]bool) (map[solana.PublicKey]*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, writable := range keys {
		st, ok := l.locks[key]
		if !ok {
			continue
		}
		if st.writer || (writable && st.readers > 0) {
			return nil, accountError(ErrAccountInUse, key)
		}
	}
	accounts := make(map[solana.PublicKey]*Account, len(keys))
	for key, writable := range keys {
		st, ok := l.locks[key]
		if !ok {
			st = &lockState{}
			l.locks[key] = st
		}
		if writable {
			st.writer = true
		} else {
			st.readers++
		}
		if a, ok := l.accounts[key]; ok {
			accounts[key] = a.Clone()
		} else {
			accounts[key] = emptyAccount()
		}
	}
	return accounts, nil
}

func (l *Ledger) release(keys map[solana.PublicKey]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, writable := range keys {
		st, ok := l.locks[key]
		if !ok {
			continue
		}
		if writable {
			st.writer = false
		} else {
			st.readers--
		}
		if !st.writer && st.readers == 0 {
			delete(l.locks, key)
		}
	}
}

func (l *Ledger) commit(accounts map[solana.PublicKey]*Account, keys map[solana.PublicKey]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, writable := range keys {
		if !writable {
			continue
		}
		a := accounts[key]
		if a.Lamports == 0 {
			delete(l.accounts, key)
			continue
		}
		l.accounts[key] = a
	}
}

// checkRent rejects writable accounts left funded below the rent-exempt
// minimum. Unchanged and emptied accounts pass.
func checkRent(before, after map[solana.PublicKey]*Account, keys map[solana.PublicKey]bool) error {
	for key, writable := range keys {
		if !writable {
			continue
		}
		a := after[key]
		if a.Lamports == 0 || a.Equal(before[key]) {
			continue
		}
		if a.Lamports < MinimumBalance(len(a.Data)) {
			return accountError(ErrInsufficientFundsForRent, key)
		}
	}
	return nil
}
