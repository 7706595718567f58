package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when a payment exceeds the available balance.
	// The wallet state is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive amounts and for deposits
	// that would overflow the balance.
	ErrInvalidAmount = errors.New("invalid amount")
)

const (
	// DefaultInitialBalance is the balance a wallet starts with.
	DefaultInitialBalance int64 = 1000
	// Capacity is the number of transaction records retained.
	Capacity = 10
	// RecentCount is how many records ViewTransactions renders.
	RecentCount = 3
	// RecordLimit bounds the length of a single record's text.
	RecordLimit = 49
)

// Ledger defines the operations the command dispatcher drives.
type Ledger interface {
	Deposit(ctx context.Context, amount int64) error
	Pay(ctx context.Context, amount int64) error
	Balance(ctx context.Context) int64
	Transactions(ctx context.Context, dst []byte) int
}
