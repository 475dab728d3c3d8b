package gateway

import "encoding/json"

// Event names carried on the websocket, matching the storefront client.
const (
	EvStartTable    = "start-table-game"
	EvTableStarted  = "table-started"
	EvTableAction   = "table-action"
	EvTableUpdated  = "table-updated"
	EvTableEnded    = "table-ended"
	EvTableError    = "table-error"
	EvStartArcade   = "start-arcade-game"
	EvArcadeStarted = "arcade-started"
	EvEndArcade     = "end-arcade-game"
	EvArcadeEnded   = "arcade-ended"
	EvArcadeError   = "arcade-error"
)

// InMsg is the envelope for client -> server messages.
type InMsg struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutMsg is the envelope for server -> client messages.
type OutMsg struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type startTablePayload struct {
	Wager int64 `json:"wager"`
}

type tableActionPayload struct {
	Action string `json:"action"`
}

type endArcadePayload struct {
	Points int64 `json:"points"`
}

type errorPayload struct {
	Message string `json:"message"`
}
