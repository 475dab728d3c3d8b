// Package gateway is the realtime channel between a connected user and the
// game engines: a websocket per connection, identity bound at upgrade, JSON
// events in both directions. Connections carry no game state of their own;
// every action is resolved against the session store by (user, kind), so two
// tabs of the same user are just two writers to the same session.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/crmacca/ebookstore-game-server/games"
	"github.com/crmacca/ebookstore-game-server/games/arcade"
	"github.com/crmacca/ebookstore-game-server/games/table"
	"github.com/crmacca/ebookstore-game-server/ledger"
	"github.com/crmacca/ebookstore-game-server/webhook"

	"github.com/gorilla/websocket"
)

// AuthFunc resolves a session token to a user id.
type AuthFunc func(ctx context.Context, token string) (string, error)

type Gateway struct {
	auth     AuthFunc
	table    *table.Engine
	arcade   *arcade.Engine
	notifier *webhook.Client // optional
	upgrader websocket.Upgrader
}

func New(auth AuthFunc, tbl *table.Engine, arc *arcade.Engine, notifier *webhook.Client) *Gateway {
	return &Gateway{
		auth:     auth,
		table:    tbl,
		arcade:   arc,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type conn struct {
	ws     *websocket.Conn
	send   chan OutMsg
	userID string
}

// emit queues an event for the write pump. A slow client drops events rather
// than blocking the read loop.
func (c *conn) emit(event string, data interface{}) {
	select {
	case c.send <- OutMsg{Event: event, Data: data}:
	default:
		log.Printf("ws: send buffer full for user %s, dropping %s", c.userID, event)
	}
}

func (c *conn) writePump() {
	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			return
		}
	}
}

// TokenFromRequest extracts the session token from the Authorization header
// or the token query param.
func TokenFromRequest(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if token != "" && strings.HasPrefix(token, "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return token
}

// HandleWS upgrades the connection after binding an identity to it. Without a
// resolvable identity there is no channel: all actions would be rejected
// anyway, so the upgrade itself is refused.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, err := g.auth(r.Context(), token)
	if err != nil || userID == "" {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws, send: make(chan OutMsg, 16), userID: userID}
	go c.writePump()
	g.readLoop(c)
}

// readLoop serves one connection until it closes. A disconnect neither
// settles nor cancels an active session; it stays in the store until the next
// action or a superseding start.
func (g *Gateway) readLoop(c *conn) {
	defer func() {
		close(c.send)
		_ = c.ws.Close()
	}()
	for {
		var msg InMsg
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		g.dispatch(context.Background(), c, msg)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *conn, msg InMsg) {
	switch msg.Event {
	case EvStartTable:
		var p startTablePayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				c.emit(EvTableError, errorPayload{Message: "invalid payload"})
				return
			}
		}
		started, err := g.table.Start(ctx, c.userID, p.Wager)
		if err != nil {
			c.emit(EvTableError, errorPayload{Message: clientMessage(err, c.userID, msg.Event)})
			return
		}
		c.emit(EvTableStarted, started)

	case EvTableAction:
		var p tableActionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.emit(EvTableError, errorPayload{Message: "invalid payload"})
			return
		}
		upd, end, err := g.table.Action(ctx, c.userID, p.Action)
		if err != nil {
			c.emit(EvTableError, errorPayload{Message: clientMessage(err, c.userID, msg.Event)})
			return
		}
		if end != nil {
			c.emit(EvTableEnded, end)
			g.notifySettled(c.userID, end.SessionID, "table", end.Outcome, end.Wager, end.Payout)
			return
		}
		c.emit(EvTableUpdated, upd)

	case EvStartArcade:
		started, err := g.arcade.Start(ctx, c.userID)
		if err != nil {
			c.emit(EvArcadeError, errorPayload{Message: clientMessage(err, c.userID, msg.Event)})
			return
		}
		c.emit(EvArcadeStarted, started)

	case EvEndArcade:
		var p endArcadePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.emit(EvArcadeError, errorPayload{Message: "invalid payload"})
			return
		}
		end, err := g.arcade.End(ctx, c.userID, p.Points)
		if err != nil {
			c.emit(EvArcadeError, errorPayload{Message: clientMessage(err, c.userID, msg.Event)})
			return
		}
		c.emit(EvArcadeEnded, end)
		g.notifySettled(c.userID, end.SessionID, "arcade", "scored", end.Fee, end.Payout)

	default:
		log.Printf("ws: unknown event %q from user %s", msg.Event, c.userID)
	}
}

// clientMessage maps engine errors to what the client may see. Internal
// failures are logged with detail and reported generically.
func clientMessage(err error, userID, event string) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "Not enough credits"
	case errors.Is(err, games.ErrInvalidWager):
		return "Invalid wager"
	case errors.Is(err, games.ErrNoActiveSession):
		return "No active game found"
	case errors.Is(err, games.ErrInvalidAction):
		return "Invalid action"
	case errors.Is(err, ledger.ErrUnknownUser):
		return "Unknown account"
	default:
		log.Printf("ws: %s failed for user %s: %v", event, userID, err)
		return "Something went wrong, please try again"
	}
}

func (g *Gateway) notifySettled(userID, sessionID, gameCode, outcome string, wager, payout int64) {
	if g.notifier == nil {
		return
	}
	go func() {
		if err := g.notifier.Settlement(userID, sessionID, gameCode, outcome, wager, payout); err != nil {
			log.Printf("ws: settlement webhook for session %s failed: %v", sessionID, err)
		}
	}()
}
