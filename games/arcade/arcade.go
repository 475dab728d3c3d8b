// Package arcade implements the score-based minigame session: a fixed entry
// fee at start, a payout of floor(points / divisor) at the end.
package arcade

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/crmacca/ebookstore-game-server/games"
	"github.com/crmacca/ebookstore-game-server/ledger"
	"github.com/crmacca/ebookstore-game-server/session"

	"github.com/google/uuid"
)

// Engine runs arcade sessions. The score is still client-reported (the game
// runs in the browser), so End rejects negative points and clamps the rest to
// MaxPoints; a tampered client bounds its own payout rather than minting
// arbitrary credits.
type Engine struct {
	EntryFee  int64
	Divisor   int64
	MaxPoints int64
	Ledger    ledger.Ledger
	Store     *session.Store
	Locks     *session.Locks
	Entries   *ledger.EntryLog // optional audit log
}

func NewEngine(l ledger.Ledger, store *session.Store, locks *session.Locks, entryFee, divisor, maxPoints int64) *Engine {
	return &Engine{
		EntryFee:  entryFee,
		Divisor:   divisor,
		MaxPoints: maxPoints,
		Ledger:    l,
		Store:     store,
		Locks:     locks,
	}
}

// Started is the arcade-started event payload.
type Started struct {
	Status string `json:"status"`
}

// Ended is the arcade-ended event payload.
type Ended struct {
	Status string `json:"status"`
	Payout int64  `json:"payout"`

	SessionID string `json:"-"`
	Fee       int64  `json:"-"`
}

// Start debits the entry fee and opens a session. A stale active session is
// discarded without payout (abandoned-session policy).
func (e *Engine) Start(ctx context.Context, userID string) (*Started, error) {
	mu := e.Locks.Acquire(userID, session.KindArcade)
	mu.Lock()
	defer mu.Unlock()

	if prev, ok := e.Store.Get(userID, session.KindArcade); ok {
		if err := e.Store.Delete(userID, session.KindArcade); err != nil {
			return nil, fmt.Errorf("discard stale session: %w", err)
		}
		log.Printf("arcade: user %s abandoned session %s (superseded by new start)", userID, prev.ID)
	}

	if _, err := e.Ledger.Apply(ctx, userID, -e.EntryFee); err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      session.KindArcade,
		Active:    true,
		Wager:     e.EntryFee,
		CreatedAt: time.Now(),
	}
	if err := e.Store.Put(sess); err != nil {
		if _, rerr := e.Ledger.Apply(ctx, userID, e.EntryFee); rerr != nil {
			log.Printf("arcade: COMPENSATION FAILED for user %s fee %d: %v", userID, e.EntryFee, rerr)
		}
		return nil, fmt.Errorf("persist session: %w", err)
	}
	e.audit(sess, -e.EntryFee, "entry_fee")

	return &Started{Status: "started"}, nil
}

// End settles the user's active session for the reported score.
func (e *Engine) End(ctx context.Context, userID string, points int64) (*Ended, error) {
	if points < 0 {
		return nil, games.ErrInvalidAction
	}
	if points > e.MaxPoints {
		points = e.MaxPoints
	}
	mu := e.Locks.Acquire(userID, session.KindArcade)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := e.Store.Get(userID, session.KindArcade)
	if !ok || !sess.Active {
		return nil, games.ErrNoActiveSession
	}

	payout := points / e.Divisor
	if payout > 0 {
		if _, err := e.Ledger.Apply(ctx, userID, payout); err != nil {
			// Session stays ACTIVE; the end can be retried.
			return nil, fmt.Errorf("credit payout: %w", err)
		}
	}
	if err := e.Store.Delete(userID, session.KindArcade); err != nil {
		if payout > 0 {
			if _, rerr := e.Ledger.Apply(ctx, userID, -payout); rerr != nil {
				log.Printf("arcade: COMPENSATION FAILED for user %s payout %d: %v", userID, payout, rerr)
			}
		}
		return nil, fmt.Errorf("clear session: %w", err)
	}
	if payout > 0 {
		e.audit(sess, payout, "payout")
	}

	return &Ended{
		Status:    fmt.Sprintf("Game ended. %d credits earned.", payout),
		Payout:    payout,
		SessionID: sess.ID,
		Fee:       sess.Wager,
	}, nil
}

func (e *Engine) audit(sess *session.Session, delta int64, reason string) {
	if e.Entries == nil {
		return
	}
	err := e.Entries.Append(&ledger.Entry{
		ID:        uuid.New().String(),
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Game:      string(session.KindArcade),
		Delta:     delta,
		Reason:    reason,
		At:        time.Now(),
	})
	if err != nil {
		log.Printf("arcade: audit append failed: %v", err)
	}
}
