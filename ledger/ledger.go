// Package ledger owns the authoritative credit balance per user. Game logic
// never mutates balances directly; every change flows through Apply as a
// signed delta.
package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned when a debit would take a balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownUser is returned by backends that require the user row to exist.
var ErrUnknownUser = errors.New("unknown user")

// Ledger applies signed credit deltas. Implementations must make
// debit-if-sufficient a single indivisible operation: the balance read used to
// validate a debit and the write must not be separable by a concurrent caller.
type Ledger interface {
	// Balance returns the user's current balance, freshly read.
	Balance(ctx context.Context, userID string) (int64, error)
	// Apply adds delta to the user's balance and returns the new balance.
	// A debit that would go negative fails with ErrInsufficientFunds and
	// leaves the balance unchanged.
	Apply(ctx context.Context, userID string, delta int64) (int64, error)
}
