package types

// ClientMessage is a frame a seat console sends over its WebSocket. Only
// bid and vote intents travel this way; everything else is REST.
type ClientMessage struct {
	Type   string `json:"type"` // "PlaceBid" | "CastVote"
	Amount int64  `json:"amount,omitempty"`
	Action string `json:"action,omitempty"` // "call" | "pass"
}

// ServerMessage is every frame the server pushes: an initial snapshot on
// subscribe, ordered events after that, and error frames for rejected
// client commands.
type ServerMessage struct {
	Type    string     `json:"type"` // "snapshot" | "event" | "error"
	Version int        `json:"version"`
	Event   string     `json:"event,omitempty"`
	Payload any        `json:"payload,omitempty"`
	State   *LiveState `json:"state,omitempty"`
	Error   string     `json:"error,omitempty"`
}
