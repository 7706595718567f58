package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
)

// Engine owns the wallet state: a balance that never goes negative and a
// bounded log of the transactions that moved it. All operations are
// serialised by a single mutex so the balance check and the debit are atomic.
type Engine struct {
	mu      sync.Mutex
	balance int64
	log     ring
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitialBalance overrides DefaultInitialBalance. Negative values are ignored.
func WithInitialBalance(amount int64) Option {
	return func(e *Engine) {
		if amount >= 0 {
			e.balance = amount
		}
	}
}

// WithLogger sets the logger used for operation events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates wallet state with the default starting balance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		balance: DefaultInitialBalance,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits amount and appends a "Deposit" record.
func (e *Engine) Deposit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: deposit of %d", ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: deposit of %d overflows balance", ErrInvalidAmount, amount)
	}

	e.balance += amount
	e.log.append(newRecord("Deposit", amount))

	e.logger.InfoContext(ctx, "deposited", slog.Int64("amount", amount), slog.Int64("balance", e.balance))
	return nil
}

// Pay debits amount and appends a "Pay" record. A payment larger than the
// balance fails with ErrInsufficientFunds and changes nothing.
func (e *Engine) Pay(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: payment of %d", ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.balance < amount {
		e.logger.InfoContext(ctx, "payment rejected", slog.Int64("amount", amount), slog.Int64("balance", e.balance))
		return ErrInsufficientFunds
	}

	e.balance -= amount
	e.log.append(newRecord("Pay", amount))

	e.logger.InfoContext(ctx, "paid", slog.Int64("amount", amount), slog.Int64("balance", e.balance))
	return nil
}

// Balance returns the current balance.
func (e *Engine) Balance(ctx context.Context) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.DebugContext(ctx, "balance read", slog.Int64("balance", e.balance))
	return e.balance
}

// Transactions renders the most recent RecentCount records into dst as
// "Transaction {i}: {record}\n" lines, oldest first. Rendering stops when dst
// is full; the last line may be cut short. It returns the number of bytes
// written, which never exceeds len(dst).
func (e *Engine) Transactions(ctx context.Context, dst []byte) int {
	e.mu.Lock()
	recent := e.log.last(RecentCount)
	e.mu.Unlock()

	written := 0
	for i, rec := range recent {
		if written >= len(dst) {
			break
		}
		line := fmt.Sprintf("Transaction %d: %s\n", i+1, rec)
		written += copy(dst[written:], line)
	}

	e.logger.DebugContext(ctx, "transactions rendered", slog.Int("count", len(recent)), slog.Int("written", written))
	return written
}

// Records returns a copy of every retained record, oldest first.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.last(Capacity)
}

// Count returns how many transactions have ever been appended.
func (e *Engine) Count() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.count
}

var _ Ledger = (*Engine)(nil)
