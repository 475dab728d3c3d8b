// Package session holds the persisted game session records. The store
// enforces the uniqueness invariant: at most one session per (user, kind).
package session

import (
	"time"

	"github.com/crmacca/ebookstore-game-server/deck"
)

// Kind distinguishes which minigame a session belongs to.
type Kind string

const (
	KindTable  Kind = "table"
	KindArcade Kind = "arcade"
)

// Session is one active game session. Deck and the dealer's hole card are
// hidden state: they are never sent to the client until the session settles.
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Kind        Kind        `json:"kind"`
	Active      bool        `json:"active"`
	Wager       int64       `json:"wager"`
	Deck        []deck.Card `json:"deck,omitempty"`
	PlayerCards []deck.Card `json:"playerCards,omitempty"`
	DealerCards []deck.Card `json:"dealerCards,omitempty"`
	PlayerTotal int         `json:"playerTotal,omitempty"`
	DealerTotal int         `json:"dealerTotal,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Clone returns a deep copy. Engines mutate a clone and only commit it via
// Store.Put, so a failed persist leaves the stored session untouched.
func (s *Session) Clone() *Session {
	c := *s
	c.Deck = append([]deck.Card(nil), s.Deck...)
	c.PlayerCards = append([]deck.Card(nil), s.PlayerCards...)
	c.DealerCards = append([]deck.Card(nil), s.DealerCards...)
	return &c
}
