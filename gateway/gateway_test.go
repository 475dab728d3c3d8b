package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crmacca/ebookstore-game-server/deck"
	"github.com/crmacca/ebookstore-game-server/games/arcade"
	"github.com/crmacca/ebookstore-game-server/games/table"
	"github.com/crmacca/ebookstore-game-server/ledger"
	"github.com/crmacca/ebookstore-game-server/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope mirrors OutMsg with a raw payload for test-side decoding.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestGateway(t *testing.T, deckValues ...string) (*Gateway, *ledger.FileLedger) {
	t.Helper()
	dir := t.TempDir()
	led := ledger.NewFileLedger(dir)
	_, err := led.Apply(context.Background(), "u1", 100)
	require.NoError(t, err)
	store := session.NewStore(dir)
	locks := session.NewLocks()

	tbl := table.NewEngine(led, store, locks, 5)
	if len(deckValues) > 0 {
		stacked := make([]deck.Card, len(deckValues))
		for i, v := range deckValues {
			stacked[i] = deck.Card{Suit: "♠", Value: v}
		}
		tbl.NewDeck = func() []deck.Card { return stacked }
	}
	arc := arcade.NewEngine(led, store, locks, 3, 250, 1_000_000)

	auth := func(ctx context.Context, token string) (string, error) {
		if token == "good-token" {
			return "u1", nil
		}
		return "", fmt.Errorf("bad token")
	}
	return New(auth, tbl, arc, nil), led
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	require.NoError(t, ws.WriteJSON(InMsg{Event: event, Data: raw}))
}

func recv(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg envelope
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestUpgradeRejectsMissingOrBadToken(t *testing.T) {
	gw, _ := newTestGateway(t)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=wrong", nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestTableGameFlow(t *testing.T) {
	// player 5+9=14, dealer shows K (7 hidden), hit deals 2 (16),
	// stand: dealer K+7=17, stands; dealer wins 17 > 16
	gw, led := newTestGateway(t, "5", "9", "K", "7", "2")
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	defer srv.Close()
	ws := dial(t, srv, "good-token")

	send(t, ws, EvStartTable, map[string]int64{"wager": 5})
	msg := recv(t, ws)
	require.Equal(t, EvTableStarted, msg.Event)
	var started struct {
		SessionID   string      `json:"sessionId"`
		PlayerCards []deck.Card `json:"playerCards"`
		DealerCards []deck.Card `json:"dealerCards"`
		PlayerTotal int         `json:"playerTotal"`
		DealerTotal int         `json:"dealerTotal"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &started))
	assert.NotEmpty(t, started.SessionID)
	assert.Len(t, started.PlayerCards, 2)
	assert.Equal(t, 14, started.PlayerTotal)
	// the dealer's hole card must not leak before settlement
	assert.Len(t, started.DealerCards, 1)
	assert.Equal(t, 10, started.DealerTotal)

	send(t, ws, EvTableAction, map[string]string{"action": "hit"})
	msg = recv(t, ws)
	require.Equal(t, EvTableUpdated, msg.Event)
	var upd struct {
		PlayerCards []deck.Card `json:"playerCards"`
		PlayerTotal int         `json:"playerTotal"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &upd))
	assert.Len(t, upd.PlayerCards, 3)
	assert.Equal(t, 16, upd.PlayerTotal)

	send(t, ws, EvTableAction, map[string]string{"action": "stand"})
	msg = recv(t, ws)
	require.Equal(t, EvTableEnded, msg.Event)
	var ended struct {
		Status      string      `json:"status"`
		DealerCards []deck.Card `json:"dealerCards"`
		DealerTotal int         `json:"dealerTotal"`
		PlayerTotal int         `json:"playerTotal"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &ended))
	assert.Equal(t, "Game Over: Dealer wins.", ended.Status)
	assert.Len(t, ended.DealerCards, 2)
	assert.Equal(t, 17, ended.DealerTotal)
	assert.Equal(t, 16, ended.PlayerTotal)

	bal, err := led.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 95, bal)
}

func TestTableErrorEvents(t *testing.T) {
	gw, led := newTestGateway(t)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	defer srv.Close()
	ws := dial(t, srv, "good-token")

	// wager above the house limit
	send(t, ws, EvStartTable, map[string]int64{"wager": 50})
	msg := recv(t, ws)
	assert.Equal(t, EvTableError, msg.Event)
	var perr errorPayload
	require.NoError(t, json.Unmarshal(msg.Data, &perr))
	assert.Equal(t, "Invalid wager", perr.Message)

	// action with no session
	send(t, ws, EvTableAction, map[string]string{"action": "hit"})
	msg = recv(t, ws)
	assert.Equal(t, EvTableError, msg.Event)
	require.NoError(t, json.Unmarshal(msg.Data, &perr))
	assert.Equal(t, "No active game found", perr.Message)

	// nothing was debited along the way
	bal, err := led.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, bal)
}

func TestArcadeGameFlow(t *testing.T) {
	gw, led := newTestGateway(t)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	defer srv.Close()
	ws := dial(t, srv, "good-token")

	send(t, ws, EvStartArcade, nil)
	msg := recv(t, ws)
	require.Equal(t, EvArcadeStarted, msg.Event)

	send(t, ws, EvEndArcade, map[string]int64{"points": 999})
	msg = recv(t, ws)
	require.Equal(t, EvArcadeEnded, msg.Event)
	var ended struct {
		Status string `json:"status"`
		Payout int64  `json:"payout"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &ended))
	assert.EqualValues(t, 3, ended.Payout)
	assert.Contains(t, ended.Status, "3 credits")

	// ending again is a NoActiveSession error, balance untouched
	send(t, ws, EvEndArcade, map[string]int64{"points": 999})
	msg = recv(t, ws)
	assert.Equal(t, EvArcadeError, msg.Event)

	bal, err := led.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, bal)
}

func TestSessionSurvivesReconnect(t *testing.T) {
	gw, _ := newTestGateway(t, "5", "9", "K", "7", "2")
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	defer srv.Close()

	ws := dial(t, srv, "good-token")
	send(t, ws, EvStartTable, map[string]int64{"wager": 5})
	msg := recv(t, ws)
	require.Equal(t, EvTableStarted, msg.Event)
	ws.Close()

	// a new connection for the same user picks the session up where it was
	ws2 := dial(t, srv, "good-token")
	send(t, ws2, EvTableAction, map[string]string{"action": "hit"})
	msg = recv(t, ws2)
	assert.Equal(t, EvTableUpdated, msg.Event)
}
