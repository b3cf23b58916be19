package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

func TestCreateSessionEnqueues(t *testing.T) {
	var got models.CreateCoachSessionRequest
	store := &stubStore{
		create: func(_ context.Context, req models.CreateCoachSessionRequest) (*models.CoachSession, error) {
			got = req
			return &models.CoachSession{
				ID:            "sess-1",
				UserID:        req.UserID,
				CorrelationID: req.CorrelationID,
				Status:        models.SessionStatusPending,
			}, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodPost, "/api/v1/sessions",
		`{"user_id":"u1","intent":"generate_exercise","message":"one on slices","data":{"topic":"slices"},"context":{"skill_level":"beginner"}}`, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.IntentGenerateExercise, got.Intent)
	assert.NotEmpty(t, got.CorrelationID)
	assert.Equal(t, "one on slices", got.Request["message"])
	data, ok := got.Request["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "slices", data["topic"])
	ctxFields, ok := got.Request["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "beginner", ctxFields["skill_level"])

	body := decodeBody(t, w)
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "pending", body["status"])
	assert.NotEmpty(t, body["correlation_id"])
}

func TestCreateSessionRejectsEmptyRequest(t *testing.T) {
	called := false
	store := &stubStore{
		create: func(context.Context, models.CreateCoachSessionRequest) (*models.CoachSession, error) {
			called = true
			return nil, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called, "store must not be reached")
}

func TestCreateSessionMapsValidationError(t *testing.T) {
	store := &stubStore{
		create: func(context.Context, models.CreateCoachSessionRequest) (*models.CoachSession, error) {
			return nil, services.NewValidationError("user_id", "is required")
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodPost, "/api/v1/sessions",
		`{"user_id":"u1","message":"hi"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "user_id")
}

func TestGetSession(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	store := &stubStore{
		get: func(_ context.Context, id string) (*models.CoachSession, error) {
			if id != "sess-1" {
				return nil, services.ErrNotFound
			}
			return &models.CoachSession{
				ID:        "sess-1",
				UserID:    "u1",
				Status:    models.SessionStatusCompleted,
				Result:    models.SuccessResult(map[string]any{"exercise": "reverse a slice"}),
				CreatedAt: created,
			}, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodGet, "/api/v1/sessions/sess-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "sess-1", body["id"])
	assert.Equal(t, "completed", body["status"])

	w = doRequest(t, s, http.MethodGet, "/api/v1/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessionsParsesFilters(t *testing.T) {
	var got models.CoachSessionFilters
	store := &stubStore{
		list: func(_ context.Context, f models.CoachSessionFilters) (*models.CoachSessionListResponse, error) {
			got = f
			return &models.CoachSessionListResponse{Sessions: []*models.CoachSession{}, Limit: 20}, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodGet,
		"/api/v1/sessions?user_id=u1&status=completed&created_after=2026-08-01T00:00:00Z&limit=5&offset=10", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.CreatedAfter)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got.CreatedAfter.UTC())
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 10, got.Offset)
}

func TestListSessionsRejectsBadFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "?status=sleeping"},
		{"bad created_after", "?created_after=yesterday"},
		{"bad created_before", "?created_before=2026-13-45"},
	}
	called := false
	store := &stubStore{
		list: func(context.Context, models.CoachSessionFilters) (*models.CoachSessionListResponse, error) {
			called = true
			return &models.CoachSessionListResponse{}, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, "/api/v1/sessions"+tt.query, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, called)
		})
	}
}

func TestListSessionsIgnoresBadPagination(t *testing.T) {
	var got models.CoachSessionFilters
	store := &stubStore{
		list: func(_ context.Context, f models.CoachSessionFilters) (*models.CoachSessionListResponse, error) {
			got = f
			return &models.CoachSessionListResponse{}, nil
		},
	}
	s := newTestServer(func(s *Server) { s.store = store })

	w := doRequest(t, s, http.MethodGet, "/api/v1/sessions?limit=banana&offset=-3", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, got.Limit, "service applies its own default")
	assert.Zero(t, got.Offset)
}

func TestCancelSession(t *testing.T) {
	t.Run("pending cancelled in db", func(t *testing.T) {
		store := &stubStore{
			cancel: func(context.Context, string) (bool, error) { return true, nil },
		}
		s := newTestServer(func(s *Server) { s.store = store })

		w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/cancel", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "sess-1", body["session_id"])
	})

	t.Run("running on this pod", func(t *testing.T) {
		store := &stubStore{
			cancel: func(context.Context, string) (bool, error) { return false, nil },
		}
		pool := &stubPool{cancellable: map[string]bool{"sess-1": true}}
		s := newTestServer(func(s *Server) {
			s.store = store
			s.pool = pool
		})

		w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/cancel", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("terminal session conflicts", func(t *testing.T) {
		store := &stubStore{
			cancel: func(context.Context, string) (bool, error) { return false, nil },
			get: func(context.Context, string) (*models.CoachSession, error) {
				return &models.CoachSession{ID: "sess-1", Status: models.SessionStatusCompleted}, nil
			},
		}
		s := newTestServer(func(s *Server) { s.store = store })

		w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/cancel", "", nil)

		require.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "completed", body["status"])
	})

	t.Run("unknown session", func(t *testing.T) {
		store := &stubStore{
			cancel: func(context.Context, string) (bool, error) { return false, nil },
			get: func(context.Context, string) (*models.CoachSession, error) {
				return nil, services.ErrNotFound
			},
		}
		s := newTestServer(func(s *Server) { s.store = store })

		w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/missing/cancel", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &stubStore{
			cancel: func(context.Context, string) (bool, error) { return false, errors.New("db down") },
		}
		s := newTestServer(func(s *Server) { s.store = store })

		w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/cancel", "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
