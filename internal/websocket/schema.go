package websocket

import "github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionPing   Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventSaved Event = "saved"
	EventTick  Event = "tick"
	EventPong  Event = "pong"
)

// TickResponse is pushed once per second with the live clock state.
type TickResponse struct {
	Event Event            `json:"event"`
	State simulation.State `json:"state"`
}

type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
