// Package games holds the validation errors shared by the game engines.
// Validation failures never mutate the ledger or the session store; the
// gateway maps them to error events on the originating connection.
package games

import "errors"

var (
	// ErrNoActiveSession is returned for any action without a live session.
	ErrNoActiveSession = errors.New("no active game session")
	// ErrInvalidAction is returned for unrecognized or implausible action input.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidWager is returned for a non-positive wager or one above the house limit.
	ErrInvalidWager = errors.New("invalid wager")
)
