package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// EventService manages the persisted event log. The events publisher writes
// rows itself (insert and NOTIFY share a transaction); this service covers
// everything else: catch-up reads for reconnecting subscribers and cleanup.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new event service backed by db.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent persists a single event outside the publish path. The normal
// path is the events publisher, which inserts and notifies atomically.
func (s *EventService) CreateEvent(httpCtx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	if req.SessionID == "" {
		return nil, NewValidationError("session_id", "session_id is required")
	}
	if req.Channel == "" {
		return nil, NewValidationError("channel", "channel is required")
	}

	payload, err := marshalJSONColumn(req.Payload, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := &models.Event{
		SessionID: req.SessionID,
		Channel:   req.Channel,
		Payload:   req.Payload,
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO events (session_id, channel, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		req.SessionID, req.Channel, payload).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// GetEventsSince returns events on a channel with id greater than sinceID,
// in id order. This is the catch-up read a reconnecting subscriber performs
// before switching to live notifications. limit <= 0 means no limit.
func (s *EventService) GetEventsSince(ctx context.Context, channel string, sinceID int64, limit int) ([]*models.Event, error) {
	query := `SELECT id, session_id, channel, payload, created_at
		 FROM events WHERE channel = $1 AND id > $2 ORDER BY id ASC`
	args := []any{channel, sinceID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

// CleanupSessionEvents removes all events for a session, typically once the
// session has reached a terminal state and its history has been read.
func (s *EventService) CleanupSessionEvents(httpCtx context.Context, sessionID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup session events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup session events: %w", err)
	}
	return int(affected), nil
}

// CleanupExpiredEvents removes events older than ttl. Event rows only serve
// catch-up, so anything past the retention window is dead weight.
func (s *EventService) CleanupExpiredEvents(httpCtx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, NewValidationError("ttl", "event ttl must be positive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-ttl)
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired events: %w", err)
	}
	return int(affected), nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var payload []byte

	err := row.Scan(&event.ID, &event.SessionID, &event.Channel, &payload, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &event.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &event, nil
}
