// Package deck provides the shuffled card sequence and hand arithmetic for the
// table game. A deck is exclusively owned by one game session and never shared.
package deck

import (
	"crypto/rand"
	"math/big"
)

// Card is one playing card. Value is "2".."10", "J", "Q", "K" or "A".
type Card struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

var suits = []string{"♦", "♣", "♥", "♠"}

var values = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// secureIntn returns a uniform random int in [0, n) using crypto/rand (CSPRNG).
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// New returns the full ordered 52-card deck.
func New() []Card {
	cards := make([]Card, 0, len(suits)*len(values))
	for _, s := range suits {
		for _, v := range values {
			cards = append(cards, Card{Suit: s, Value: v})
		}
	}
	return cards
}

// Shuffle applies a Fisher-Yates permutation in place using CSPRNG so round
// outcomes are fair and unpredictable.
func Shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := secureIntn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// NewShuffled returns a freshly shuffled deck.
func NewShuffled() []Card {
	cards := New()
	Shuffle(cards)
	return cards
}

// Deal removes and returns the top n cards, mutating the deck in place.
// The returned cards are copies, so appending them to a hand cannot clobber
// cards still in the deck's backing array.
func Deal(d *[]Card, n int) []Card {
	if n > len(*d) {
		n = len(*d)
	}
	out := make([]Card, n)
	copy(out, (*d)[:n])
	*d = (*d)[n:]
	return out
}

// HandValue returns the blackjack total for a hand. Non-Ace cards are summed
// first, then each Ace counts 11 if that keeps the total at or under 21 and 1
// otherwise. Summing in dealt order would misvalue hands like [A, 6, 10], so
// Aces are always resolved last.
func HandValue(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		switch c.Value {
		case "A":
			aces++
		case "J", "Q", "K", "10":
			total += 10
		default:
			// values "2".."9"
			total += int(c.Value[0] - '0')
		}
	}
	for ; aces > 0; aces-- {
		if total+11 <= 21 {
			total += 11
		} else {
			total++
		}
	}
	return total
}
