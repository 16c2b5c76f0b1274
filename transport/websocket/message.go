package websocket

import "encoding/json"

const (
	// client -> server
	ActionStateGet  = "state:get"
	ActionGameMove  = "game:move"
	ActionGameReset = "game:reset"
	ActionRoundNew  = "round:new"

	// server -> client
	ActionStateUpdate = "state:update"
	ActionError       = "error"
)

// Message - a WebSocket envelope with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MovePayload - the client payload for the game:move action.
type MovePayload struct {
	Square int `json:"square"`
}

// ErrorPayload - the server payload for error replies.
type ErrorPayload struct {
	Error string `json:"error"`
}
