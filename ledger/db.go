package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBLedger applies deltas against the storefront's users table. The
// conditional UPDATE makes debit-if-sufficient atomic at the row level, so two
// concurrent wagers cannot both pass validation against the same balance.
type DBLedger struct {
	db *sql.DB
}

func NewDBLedger(db *sql.DB) *DBLedger {
	return &DBLedger{db: db}
}

func (l *DBLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := l.db.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = $1", userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return bal, nil
}

func (l *DBLedger) Apply(ctx context.Context, userID string, delta int64) (int64, error) {
	var bal int64
	err := l.db.QueryRowContext(ctx, `
		UPDATE users SET credits = credits + $1
		WHERE id = $2 AND credits + $1 >= 0
		RETURNING credits
	`, delta, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		// No row updated: either the user is unknown or the debit would go negative.
		var exists bool
		if err2 := l.db.QueryRowContext(ctx, "SELECT true FROM users WHERE id = $1", userID).Scan(&exists); err2 != nil {
			if errors.Is(err2, sql.ErrNoRows) {
				return 0, ErrUnknownUser
			}
			return 0, fmt.Errorf("check user: %w", err2)
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("apply delta: %w", err)
	}
	return bal, nil
}
