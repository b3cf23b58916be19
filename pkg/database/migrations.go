package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates PostgreSQL-specific indexes kept out of the
// numbered migrations: a full-text index over session messages (operator
// search across coaching requests) and a jsonb containment index over event
// payloads. Both are idempotent and applied after every migration run.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_coach_sessions_request_gin
		ON coach_sessions USING gin(to_tsvector('english', COALESCE(request->>'message', '')))`)
	if err != nil {
		return fmt.Errorf("failed to create session message GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_events_payload_gin
		ON events USING gin(payload jsonb_path_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create event payload GIN index: %w", err)
	}

	return nil
}
