package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_ledger_transactions_total",
			Help: "Total number of processed transactions",
		},
		[]string{"status"},
	)

	InstructionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_ledger_instructions_total",
			Help: "Total number of executed instructions, including cross-program invocations",
		},
		[]string{"program", "status"},
	)

	TransactionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strategy_ledger_transaction_duration_seconds",
			Help:    "Duration of transaction processing",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~0.33s
		},
	)

	AccountLockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strategy_ledger_account_lock_conflicts_total",
			Help: "Total number of transactions rejected because an account was locked",
		},
	)
)

const (
	statusSuccess = "success"
	statusError   = "error"
	statusLocked  = "locked"
)
