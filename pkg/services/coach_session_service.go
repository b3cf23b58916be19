package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
)

// CoachSessionService manages the queued coaching sessions that workers
// claim and execute. Claims go through FOR UPDATE SKIP LOCKED so multiple
// replicas can poll the same table without double-claiming.
type CoachSessionService struct {
	db *sql.DB
}

// NewCoachSessionService creates a new session service backed by db.
func NewCoachSessionService(db *sql.DB) *CoachSessionService {
	return &CoachSessionService{db: db}
}

const coachSessionColumns = `session_id, user_id, correlation_id, intent, workflow, status, request, result, error_message, pod_id, created_at, started_at, completed_at, deleted_at`

// CreateSession enqueues a new coaching session in pending state.
// A correlation id is generated when the request leaves it blank.
func (s *CoachSessionService) CreateSession(httpCtx context.Context, req models.CreateCoachSessionRequest) (*models.CoachSession, error) {
	if req.UserID == "" {
		return nil, NewValidationError("user_id", "user_id is required")
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	requestJSON, err := marshalJSONColumn(req.Request, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Use background context with timeout: once the caller has been told
	// the session is accepted, it must actually be in the queue.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionID := uuid.New().String()
	var createdAt time.Time
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO coach_sessions (session_id, user_id, correlation_id, intent, workflow, status, request)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		sessionID, req.UserID, correlationID, string(req.Intent), req.Workflow,
		string(models.SessionStatusPending), requestJSON).
		Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	request := req.Request
	if request == nil {
		request = map[string]any{}
	}
	return &models.CoachSession{
		ID:            sessionID,
		UserID:        req.UserID,
		CorrelationID: correlationID,
		Intent:        req.Intent,
		Workflow:      req.Workflow,
		Status:        models.SessionStatusPending,
		Request:       request,
		CreatedAt:     createdAt,
	}, nil
}

// GetSession retrieves a session by id, including soft-deleted ones.
// Returns ErrNotFound if no such session exists.
func (s *CoachSessionService) GetSession(ctx context.Context, sessionID string) (*models.CoachSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+coachSessionColumns+` FROM coach_sessions WHERE session_id = $1`, sessionID)

	sess, err := scanCoachSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns a filtered, paginated page of sessions plus the total
// count matching the filters. Soft-deleted sessions are always excluded.
func (s *CoachSessionService) ListSessions(ctx context.Context, filters models.CoachSessionFilters) (*models.CoachSessionListResponse, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	if filters.UserID != "" {
		args = append(args, filters.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.CreatedAfter != nil {
		args = append(args, *filters.CreatedAfter)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filters.CreatedBefore != nil {
		args = append(args, *filters.CreatedBefore)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM coach_sessions WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	limit := 20
	if filters.Limit > 0 {
		limit = filters.Limit
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if filters.Offset > 0 {
		offset = filters.Offset
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM coach_sessions WHERE %s
			 ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			coachSessionColumns, whereClause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := collectCoachSessions(rows)
	if err != nil {
		return nil, err
	}

	return &models.CoachSessionListResponse{
		Sessions:   sessions,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// UpdateSessionStatus transitions a session to the given status, stamping
// completed_at when the status is terminal. Returns ErrNotFound if no such
// session exists.
func (s *CoachSessionService) UpdateSessionStatus(httpCtx context.Context, sessionID string, status models.SessionStatus) error {
	// Use background context with timeout: status updates must complete even
	// if the original request context is cancelled (e.g. timeout scenarios).
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		result sql.Result
		err    error
	)
	if status.Terminal() {
		result, err = s.db.ExecContext(ctx,
			`UPDATE coach_sessions SET status = $1, completed_at = now() WHERE session_id = $2`,
			string(status), sessionID)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE coach_sessions SET status = $1 WHERE session_id = $2`,
			string(status), sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteSession finishes a session with a terminal status, its result (may
// be nil for failures), and an error message for the failure cases.
func (s *CoachSessionService) CompleteSession(httpCtx context.Context, sessionID string, status models.SessionStatus, result *models.Result, errorMessage string) error {
	if !status.Terminal() {
		return NewValidationError("status", fmt.Sprintf("status '%s' is not terminal", status))
	}

	var resultJSON any
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = data
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE coach_sessions SET status = $1, result = $2, error_message = $3, completed_at = now()
		 WHERE session_id = $4`,
		string(status), resultJSON, errorMessage, sessionID)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimNextPendingSession atomically claims the oldest pending session for
// podID and marks it in progress. FOR UPDATE SKIP LOCKED lets concurrent
// replicas poll without blocking or double-claiming.
// Returns (nil, nil) when the queue is empty.
func (s *CoachSessionService) ClaimNextPendingSession(ctx context.Context, podID string) (*models.CoachSession, error) {
	if podID == "" {
		return nil, NewValidationError("pod_id", "pod_id is required")
	}

	// Use background context with timeout: a half-cancelled claim would
	// strand the session in in_progress with no worker attached.
	claimCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(claimCtx,
		`UPDATE coach_sessions
		 SET status = $1, pod_id = $2, started_at = now()
		 WHERE session_id = (
		   SELECT session_id FROM coach_sessions
		   WHERE status = $3 AND deleted_at IS NULL
		   ORDER BY created_at ASC
		   FOR UPDATE SKIP LOCKED
		   LIMIT 1
		 )
		 RETURNING `+coachSessionColumns,
		string(models.SessionStatusInProgress), podID, string(models.SessionStatusPending))

	sess, err := scanCoachSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No pending sessions
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim session: %w", err)
	}
	return sess, nil
}

// CancelPendingSession cancels a session only if it is still pending,
// reporting whether the cancel won. In-progress sessions are cancelled
// through the worker's context instead.
func (s *CoachSessionService) CancelPendingSession(httpCtx context.Context, sessionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`UPDATE coach_sessions SET status = $1, completed_at = now()
		 WHERE session_id = $2 AND status = $3`,
		string(models.SessionStatusCancelled), sessionID, string(models.SessionStatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to cancel session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to cancel session: %w", err)
	}
	return affected > 0, nil
}

// RequeueOrphanedSessions returns sessions claimed by dead replicas to the
// queue: any in-progress session whose claim is older than olderThan loses
// its pod assignment and becomes pending again. Returns the number of
// sessions requeued.
func (s *CoachSessionService) RequeueOrphanedSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, NewValidationError("older_than", "orphan threshold must be positive")
	}

	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.ExecContext(ctx,
		`UPDATE coach_sessions
		 SET status = $1, pod_id = '', started_at = NULL
		 WHERE status = $2 AND deleted_at IS NULL AND started_at < $3`,
		string(models.SessionStatusPending), string(models.SessionStatusInProgress), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue orphaned sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue orphaned sessions: %w", err)
	}
	return int(affected), nil
}

// RequeuePodSessions returns every in-progress session claimed by podID to
// the queue. Called once at pool startup so a restarted replica's abandoned
// claims are reprocessed instead of sitting in_progress until the orphan
// scan finds them. Returns the number of sessions requeued.
func (s *CoachSessionService) RequeuePodSessions(ctx context.Context, podID string) (int, error) {
	if podID == "" {
		return 0, NewValidationError("pod_id", "pod_id is required")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE coach_sessions
		 SET status = $1, pod_id = '', started_at = NULL
		 WHERE status = $2 AND deleted_at IS NULL AND pod_id = $3`,
		string(models.SessionStatusPending), string(models.SessionStatusInProgress), podID)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue pod sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue pod sessions: %w", err)
	}
	return int(affected), nil
}

// SoftDeleteOldSessions marks sessions completed before the retention window
// as deleted. Returns the number of sessions soft-deleted.
func (s *CoachSessionService) SoftDeleteOldSessions(httpCtx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, NewValidationError("retention_days", "retention days must be positive")
	}

	// Use background context with generous timeout: retention sweeps can
	// touch many rows.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx,
		`UPDATE coach_sessions SET deleted_at = now()
		 WHERE deleted_at IS NULL AND completed_at IS NOT NULL AND completed_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete sessions: %w", err)
	}
	return int(affected), nil
}

// SearchSessions full-text searches session request messages, newest first.
// Backed by the GIN index on request->>'message'.
func (s *CoachSessionService) SearchSessions(ctx context.Context, query string, limit int) ([]*models.CoachSession, error) {
	if query == "" {
		return nil, NewValidationError("query", "query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+coachSessionColumns+` FROM coach_sessions
		 WHERE deleted_at IS NULL
		   AND to_tsvector('english', COALESCE(request->>'message', '')) @@ plainto_tsquery('english', $1)
		 ORDER BY created_at DESC LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}
	defer rows.Close()

	return collectCoachSessions(rows)
}

// CountSessionsByStatus reports how many live sessions are in each status.
// The health endpoint uses this as its queue-depth gauge.
func (s *CoachSessionService) CountSessionsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, count(*) FROM coach_sessions
		 WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan session count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count sessions by status: %w", err)
	}
	return counts, nil
}

func scanCoachSession(row rowScanner) (*models.CoachSession, error) {
	var sess models.CoachSession
	var request, result []byte

	err := row.Scan(&sess.ID, &sess.UserID, &sess.CorrelationID, &sess.Intent, &sess.Workflow,
		&sess.Status, &request, &result, &sess.ErrorMessage, &sess.PodID,
		&sess.CreatedAt, &sess.StartedAt, &sess.CompletedAt, &sess.DeletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(request, &sess.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if len(result) > 0 {
		var r models.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		sess.Result = &r
	}
	return &sess, nil
}

func collectCoachSessions(rows *sql.Rows) ([]*models.CoachSession, error) {
	var sessions []*models.CoachSession
	for rows.Next() {
		sess, err := scanCoachSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}
