package models

import "time"

// CoachSession is a queued coaching request processed asynchronously by the
// worker pool. Request and Result are stored as JSONB documents.
type CoachSession struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	CorrelationID string         `json:"correlation_id"`
	Intent        Intent         `json:"intent,omitempty"`
	Workflow      string         `json:"workflow,omitempty"`
	Status        SessionStatus  `json:"status"`
	Request       map[string]any `json:"request,omitempty"`
	Result        *Result        `json:"result,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	PodID         string         `json:"pod_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}

// CreateCoachSessionRequest contains fields for enqueuing a session.
type CreateCoachSessionRequest struct {
	UserID        string         `json:"user_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Intent        Intent         `json:"intent,omitempty"`
	Workflow      string         `json:"workflow,omitempty"`
	Request       map[string]any `json:"request,omitempty"`
}

// CoachSessionFilters contains filtering options for listing sessions.
type CoachSessionFilters struct {
	UserID        string     `json:"user_id,omitempty"`
	Status        string     `json:"status,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

// CoachSessionListResponse contains a paginated session list.
type CoachSessionListResponse struct {
	Sessions   []*CoachSession `json:"sessions"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}
