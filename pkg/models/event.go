package models

import "time"

// Event is a persisted coordination event. Events are written in the same
// transaction as the NOTIFY that announces them, so the id column doubles as
// the catch-up cursor: a subscriber that reconnects asks for everything on
// its channel with an id greater than the last one it saw.
type Event struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	Channel   string         `json:"channel"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateEventRequest carries the fields for persisting a new event.
type CreateEventRequest struct {
	SessionID string         `json:"session_id"`
	Channel   string         `json:"channel"`
	Payload   map[string]any `json:"payload"`
}
