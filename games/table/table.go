// Package table implements the blackjack-style wager session: server-owned
// deck, hit/stand transitions, dealer draws to 17, settlement against the
// ledger.
package table

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/crmacca/ebookstore-game-server/deck"
	"github.com/crmacca/ebookstore-game-server/games"
	"github.com/crmacca/ebookstore-game-server/ledger"
	"github.com/crmacca/ebookstore-game-server/session"

	"github.com/google/uuid"
)

const (
	ActionHit   = "hit"
	ActionStand = "stand"
)

// dealerStandsAt is the fixed house rule: the dealer draws until reaching it.
const dealerStandsAt = 17

// Engine runs table game sessions. All transitions for one user serialize on
// the per-(user, kind) lock, so concurrent connections cannot double-apply.
type Engine struct {
	MaxWager int64
	Ledger   ledger.Ledger
	Store    *session.Store
	Locks    *session.Locks
	Entries  *ledger.EntryLog // optional audit log

	// NewDeck produces the shuffled deck for a new session. Overridable so
	// tests can stack known cards.
	NewDeck func() []deck.Card
}

func NewEngine(l ledger.Ledger, store *session.Store, locks *session.Locks, maxWager int64) *Engine {
	return &Engine{
		MaxWager: maxWager,
		Ledger:   l,
		Store:    store,
		Locks:    locks,
		NewDeck:  deck.NewShuffled,
	}
}

// Started is the table-started event payload. DealerCards holds only the
// dealer's visible card; the hole card stays hidden state until settlement.
type Started struct {
	SessionID   string      `json:"sessionId"`
	PlayerCards []deck.Card `json:"playerCards"`
	DealerCards []deck.Card `json:"dealerCards"`
	PlayerTotal int         `json:"playerTotal"`
	DealerTotal int         `json:"dealerTotal"`
}

// Update is the table-updated event payload (hit without bust).
type Update struct {
	PlayerCards []deck.Card `json:"playerCards"`
	PlayerTotal int         `json:"playerTotal"`
}

// Ended is the table-ended event payload. The settlement fields are carried
// for the audit webhook but not sent to the client.
type Ended struct {
	Status      string      `json:"status"`
	PlayerCards []deck.Card `json:"playerCards"`
	PlayerTotal int         `json:"playerTotal"`
	DealerCards []deck.Card `json:"dealerCards"`
	DealerTotal int         `json:"dealerTotal"`

	SessionID string `json:"-"`
	Wager     int64  `json:"-"`
	Payout    int64  `json:"-"`
	Outcome   string `json:"-"` // "win", "lose", "push", "bust"
}

// Start opens a new session: any prior active session for this user is
// forfeited (its wager stays with the house, by policy), the wager is debited,
// and two cards each are dealt to player and dealer.
func (e *Engine) Start(ctx context.Context, userID string, wager int64) (*Started, error) {
	if wager <= 0 || wager > e.MaxWager {
		return nil, games.ErrInvalidWager
	}
	mu := e.Locks.Acquire(userID, session.KindTable)
	mu.Lock()
	defer mu.Unlock()

	if prev, ok := e.Store.Get(userID, session.KindTable); ok && prev.Active {
		if err := e.Store.Delete(userID, session.KindTable); err != nil {
			return nil, fmt.Errorf("forfeit prior session: %w", err)
		}
		log.Printf("table: user %s forfeited session %s (superseded by new start)", userID, prev.ID)
	}

	if _, err := e.Ledger.Apply(ctx, userID, -wager); err != nil {
		return nil, err
	}

	d := e.NewDeck()
	player := deck.Deal(&d, 2)
	dealer := deck.Deal(&d, 2)
	sess := &session.Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        session.KindTable,
		Active:      true,
		Wager:       wager,
		Deck:        d,
		PlayerCards: player,
		DealerCards: dealer,
		PlayerTotal: deck.HandValue(player),
		DealerTotal: deck.HandValue(dealer[:1]), // only the visible card counts yet
		CreatedAt:   time.Now(),
	}
	if err := e.Store.Put(sess); err != nil {
		// The debit landed but the session did not: give the wager back.
		if _, rerr := e.Ledger.Apply(ctx, userID, wager); rerr != nil {
			log.Printf("table: COMPENSATION FAILED for user %s wager %d: %v", userID, wager, rerr)
		}
		return nil, fmt.Errorf("persist session: %w", err)
	}
	e.audit(sess, -wager, "wager")

	return &Started{
		SessionID:   sess.ID,
		PlayerCards: sess.PlayerCards,
		DealerCards: sess.DealerCards[:1],
		PlayerTotal: sess.PlayerTotal,
		DealerTotal: sess.DealerTotal,
	}, nil
}

// Action applies a player action to the user's active session. Exactly one of
// the returned Update/Ended is non-nil on success.
func (e *Engine) Action(ctx context.Context, userID, action string) (*Update, *Ended, error) {
	if action != ActionHit && action != ActionStand {
		return nil, nil, games.ErrInvalidAction
	}
	mu := e.Locks.Acquire(userID, session.KindTable)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := e.Store.Get(userID, session.KindTable)
	if !ok || !sess.Active {
		return nil, nil, games.ErrNoActiveSession
	}
	if action == ActionHit {
		return e.hit(ctx, sess)
	}
	return e.stand(ctx, sess)
}

func (e *Engine) hit(ctx context.Context, sess *session.Session) (*Update, *Ended, error) {
	work := sess.Clone()
	card := deck.Deal(&work.Deck, 1)
	work.PlayerCards = append(work.PlayerCards, card...)
	work.PlayerTotal = deck.HandValue(work.PlayerCards)

	if work.PlayerTotal > 21 {
		// Bust: wager is lost, no ledger movement to make.
		if err := e.Store.Delete(sess.UserID, session.KindTable); err != nil {
			return nil, nil, fmt.Errorf("clear session: %w", err)
		}
		return nil, &Ended{
			Status:      "Bust!",
			PlayerCards: work.PlayerCards,
			PlayerTotal: work.PlayerTotal,
			DealerCards: work.DealerCards,
			DealerTotal: deck.HandValue(work.DealerCards),
			SessionID:   sess.ID,
			Wager:       sess.Wager,
			Outcome:     "bust",
		}, nil
	}

	if err := e.Store.Put(work); err != nil {
		return nil, nil, fmt.Errorf("persist session: %w", err)
	}
	return &Update{PlayerCards: work.PlayerCards, PlayerTotal: work.PlayerTotal}, nil, nil
}

func (e *Engine) stand(ctx context.Context, sess *session.Session) (*Update, *Ended, error) {
	work := sess.Clone()
	dealerTotal := deck.HandValue(work.DealerCards)
	for dealerTotal < dealerStandsAt {
		card := deck.Deal(&work.Deck, 1)
		work.DealerCards = append(work.DealerCards, card...)
		dealerTotal = deck.HandValue(work.DealerCards)
	}
	playerTotal := deck.HandValue(work.PlayerCards)

	// Settlement order matters: dealer bust beats push beats dealer high.
	var payout int64
	var status, outcome string
	switch {
	case dealerTotal > 21:
		payout = sess.Wager * 2
		status = "Game Over: Dealer busts. You win!"
		outcome = "win"
	case dealerTotal == playerTotal:
		payout = sess.Wager
		status = "Game Over: Push."
		outcome = "push"
	case dealerTotal > playerTotal:
		payout = 0
		status = "Game Over: Dealer wins."
		outcome = "lose"
	default:
		payout = sess.Wager * 2
		status = "Game Over: You win!"
		outcome = "win"
	}

	if payout > 0 {
		if _, err := e.Ledger.Apply(ctx, sess.UserID, payout); err != nil {
			// Session stays ACTIVE; a later stand re-runs settlement.
			return nil, nil, fmt.Errorf("credit payout: %w", err)
		}
	}
	if err := e.Store.Delete(sess.UserID, session.KindTable); err != nil {
		if payout > 0 {
			if _, rerr := e.Ledger.Apply(ctx, sess.UserID, -payout); rerr != nil {
				log.Printf("table: COMPENSATION FAILED for user %s payout %d: %v", sess.UserID, payout, rerr)
			}
		}
		return nil, nil, fmt.Errorf("clear session: %w", err)
	}
	if payout > 0 {
		e.audit(sess, payout, "payout")
	}

	return nil, &Ended{
		Status:      status,
		PlayerCards: work.PlayerCards,
		PlayerTotal: playerTotal,
		DealerCards: work.DealerCards,
		DealerTotal: dealerTotal,
		SessionID:   sess.ID,
		Wager:       sess.Wager,
		Payout:      payout,
		Outcome:     outcome,
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
		Game:      string(session.KindTable),
		Delta:     delta,
		Reason:    reason,
		At:        time.Now(),
	})
	if err != nil {
		log.Printf("table: audit append failed: %v", err)
	}
}
