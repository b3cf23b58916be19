package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/models"
)

func TestProgressSnapshot(t *testing.T) {
	coach := &stubCoach{result: models.SuccessResult(map[string]any{
		"needs_adaptation": true,
		"triggers":         []any{map[string]any{"type": "consecutive_failures"}},
		"metrics":          map[string]any{"success_rate": 0.4},
	})}
	s := newTestServer(func(s *Server) { s.coach = coach })

	w := doRequest(t, s, http.MethodGet, "/api/v1/users/u1/progress", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "u1", coach.lastCtx.UserID)
	assert.Equal(t, models.IntentDetectAdaptationTriggers, coach.lastPayload.Intent)

	body := decodeBody(t, w)
	assert.Equal(t, "u1", body["user_id"])
	assert.NotEmpty(t, body["correlation_id"])
	progress, ok := body["progress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, progress["needs_adaptation"])
}

func TestProgressForwardsCorrelationID(t *testing.T) {
	coach := &stubCoach{result: models.SuccessResult(nil)}
	s := newTestServer(func(s *Server) { s.coach = coach })

	w := doRequest(t, s, http.MethodGet, "/api/v1/users/u1/progress", "",
		map[string]string{"X-Correlation-ID": "corr-7"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "corr-7", coach.lastCtx.CorrelationID)
	body := decodeBody(t, w)
	assert.Equal(t, "corr-7", body["correlation_id"])
}

func TestProgressDispatchError(t *testing.T) {
	coach := &stubCoach{result: models.ErrorResult(models.ErrCodeAgentUnavailable, "tracker not registered")}
	s := newTestServer(func(s *Server) { s.coach = coach })

	w := doRequest(t, s, http.MethodGet, "/api/v1/users/u1/progress", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "tracker not registered", body["error"])
	assert.Equal(t, string(models.ErrCodeAgentUnavailable), body["error_code"])
}
