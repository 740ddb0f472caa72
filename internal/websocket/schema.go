package websocket

import "github.com/FrancoisMichell/seirin-sub000/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is the only shape clients send on the live board.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSnapshot   Event = "snapshot"
	EventAttendance Event = "attendance"
	EventPong       Event = "pong"
)

// SnapshotResponse carries every attendance of the session at one instant.
type SnapshotResponse struct {
	Event       Event              `json:"event"`
	SessionID   int                `json:"sessionId"`
	Attendances []model.Attendance `json:"attendances"`
}

// AttendanceResponse forwards one published change.
type AttendanceResponse struct {
	Event Event                 `json:"event"`
	Data  model.AttendanceEvent `json:"data"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
