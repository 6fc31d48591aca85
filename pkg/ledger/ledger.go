// Package ledger tracks per-account coin balances with atomic, race-free debits.
// Balances are plain non-negative integers; every decrement is gated on the
// committed balance at decrement time inside a backend transaction.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds is returned by ChargeIfAffordable when the committed
	// balance at charge time is below the requested cost. The balance is unchanged.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidAmount is returned when a caller passes a non-positive amount.
	ErrInvalidAmount = errors.New("ledger: amount must be a positive integer")
)

// Store persists account balances.
//
// TopUp and Refund are unconditional atomic increments: concurrent calls
// commute and need no precondition. ChargeIfAffordable is the only operation
// with a read-then-write race to protect; implementations must execute the
// read, the precondition check, and the decrement as one atomic transaction.
type Store interface {
	// CreateAccount initializes an account with a starting balance.
	// It is idempotent: if the account already exists it is left untouched.
	CreateAccount(ctx context.Context, accountID string, startingBalance int64) error

	// Balance returns the committed balance. Accounts never written read as 0.
	Balance(ctx context.Context, accountID string) (int64, error)

	// TopUp applies balance += amount. amount must be positive.
	TopUp(ctx context.Context, accountID string, amount int64) error

	// ChargeIfAffordable applies balance -= cost only if balance >= cost,
	// atomically. Returns ErrInsufficientFunds (balance untouched) otherwise.
	ChargeIfAffordable(ctx context.Context, accountID string, cost int64) error

	// Refund applies balance += amount. It is the compensation path for a
	// charge whose follow-up work failed; it is not atomic with the original
	// charge (see the service design notes on the compensation gap).
	Refund(ctx context.Context, accountID string, amount int64) error
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
