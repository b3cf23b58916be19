package cleanup

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
	testdb "github.com/learnloop/mentor/test/database"
)

func setupServices(t *testing.T) (*sql.DB, *services.CoachSessionService, *services.EventService) {
	t.Helper()
	client := testdb.NewTestClient(t)
	db := client.DB()
	return db, services.NewCoachSessionService(db), services.NewEventService(db)
}

func createTestSession(t *testing.T, db *sql.DB, sessionService *services.CoachSessionService) *models.CoachSession {
	t.Helper()
	ctx := context.Background()

	userID := "learner-" + uuid.New().String()
	userService := services.NewUserService(db)
	_, err := userService.CreateUser(ctx, models.CreateUserRequest{
		UserID: userID,
		Email:  userID + "@example.com",
		Name:   "Retention Learner",
	})
	require.NoError(t, err)

	session, err := sessionService.CreateSession(ctx, models.CreateCoachSessionRequest{
		UserID:  userID,
		Intent:  models.IntentGetProgress,
		Request: map[string]any{},
	})
	require.NoError(t, err)
	return session
}

func retentionConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		SessionRetentionDays: 365,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
}

func TestService_SoftDeletesOldCompletedSessions(t *testing.T) {
	db, sessionService, eventService := setupServices(t)
	ctx := context.Background()

	session := createTestSession(t, db, sessionService)
	err := sessionService.CompleteSession(ctx, session.ID, models.SessionStatusCompleted, nil, "")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`UPDATE coach_sessions SET completed_at = now() - interval '400 days' WHERE session_id = $1`,
		session.ID)
	require.NoError(t, err)

	svc := NewService(retentionConfig(), sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.DeletedAt)
}

func TestService_PreservesRecentSessions(t *testing.T) {
	db, sessionService, eventService := setupServices(t)
	ctx := context.Background()

	session := createTestSession(t, db, sessionService)
	err := sessionService.CompleteSession(ctx, session.ID, models.SessionStatusCompleted, nil, "")
	require.NoError(t, err)

	svc := NewService(retentionConfig(), sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt)
}

func TestService_PreservesPendingSessions(t *testing.T) {
	db, sessionService, eventService := setupServices(t)
	ctx := context.Background()

	// A pending session is still owed work no matter how old it is; only
	// finished sessions age out.
	session := createTestSession(t, db, sessionService)
	_, err := db.ExecContext(ctx,
		`UPDATE coach_sessions SET created_at = now() - interval '400 days' WHERE session_id = $1`,
		session.ID)
	require.NoError(t, err)

	svc := NewService(retentionConfig(), sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt)
	assert.Equal(t, models.SessionStatusPending, updated.Status)
}

func TestService_CleansUpExpiredEvents(t *testing.T) {
	db, sessionService, eventService := setupServices(t)
	ctx := context.Background()

	session := createTestSession(t, db, sessionService)

	old, err := eventService.CreateEvent(ctx, models.CreateEventRequest{
		SessionID: session.ID,
		Channel:   "test",
		Payload:   map[string]any{},
	})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`UPDATE events SET created_at = now() - interval '2 hours' WHERE id = $1`, old.ID)
	require.NoError(t, err)

	recent, err := eventService.CreateEvent(ctx, models.CreateEventRequest{
		SessionID: session.ID,
		Channel:   "test",
		Payload:   map[string]any{},
	})
	require.NoError(t, err)

	svc := NewService(retentionConfig(), sessionService, eventService)
	svc.runAll(ctx)

	events, err := eventService.GetEventsSince(ctx, "test", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1, "old event should be deleted, recent event preserved")
	assert.Equal(t, recent.ID, events[0].ID)
}
