package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────
// HTTP Client Helpers
// ────────────────────────────────────────────────────────────

// PostCoach posts a synchronous coaching request and returns the parsed
// response. The dispatch is expected to succeed (HTTP 200).
func (app *TestApp) PostCoach(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/v1/coach", body, http.StatusOK)
}

// PostCoachExpect posts a coaching request expecting a specific HTTP status,
// for dispatch outcomes that map onto error codes.
func (app *TestApp) PostCoachExpect(t *testing.T, body map[string]interface{}, expectedStatus int) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/v1/coach", body, expectedStatus)
}

// CreateSession enqueues an async coaching session and returns the parsed
// 201 response with session_id and status.
func (app *TestApp) CreateSession(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/v1/sessions", body, http.StatusCreated)
}

// GetSession retrieves a session by ID.
func (app *TestApp) GetSession(t *testing.T, sessionID string) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/v1/sessions/"+sessionID, http.StatusOK)
}

// GetSessionList calls GET /api/v1/sessions with optional query params.
func (app *TestApp) GetSessionList(t *testing.T, queryParams string) map[string]interface{} {
	t.Helper()
	path := "/api/v1/sessions"
	if queryParams != "" {
		path += "?" + queryParams
	}
	return app.getJSON(t, path, http.StatusOK)
}

// CancelSession sends POST /api/v1/sessions/:id/cancel.
func (app *TestApp) CancelSession(t *testing.T, sessionID string) map[string]interface{} {
	t.Helper()
	return app.postJSON(t, "/api/v1/sessions/"+sessionID+"/cancel", nil, http.StatusOK)
}

// GetProgress calls GET /api/v1/users/:id/progress.
func (app *TestApp) GetProgress(t *testing.T, userID string) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/v1/users/"+userID+"/progress", http.StatusOK)
}

// GetHealth calls GET /api/v1/health.
func (app *TestApp) GetHealth(t *testing.T) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/v1/health", http.StatusOK)
}

// GetIntents calls GET /api/v1/intents.
func (app *TestApp) GetIntents(t *testing.T) map[string]interface{} {
	t.Helper()
	return app.getJSON(t, "/api/v1/intents", http.StatusOK)
}

func (app *TestApp) postJSON(t *testing.T, path string, body interface{}, expectedStatus int) map[string]interface{} {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, app.BaseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := app.Config.Server.AuthToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: unexpected status", path)
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func (app *TestApp) getJSON(t *testing.T, path string, expectedStatus int) map[string]interface{} {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: unexpected status", path)
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

// ────────────────────────────────────────────────────────────
// Response Shape Helpers
// ────────────────────────────────────────────────────────────

// coachResult extracts the result object from a coach response.
func coachResult(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "response has no result object: %v", resp)
	return result
}

// resultData extracts the data map from a result object, requiring success.
func resultData(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, true, result["success"], "result is not a success: %v", result)
	data, ok := result["data"].(map[string]interface{})
	require.True(t, ok, "result has no data map: %v", result)
	return data
}

// workflowOutput finds the output of the named step intent in a workflow
// result's outputs array and returns its data map.
func workflowOutput(t *testing.T, data map[string]interface{}, intent string) map[string]interface{} {
	t.Helper()
	outputs, ok := data["outputs"].([]interface{})
	require.True(t, ok, "workflow data has no outputs: %v", data)
	for _, raw := range outputs {
		out, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if out["intent"] == intent {
			stepData, _ := out["data"].(map[string]interface{})
			return stepData
		}
	}
	t.Fatalf("no workflow output for intent %s in %v", intent, outputs)
	return nil
}

// ────────────────────────────────────────────────────────────
// Polling Helpers
// ────────────────────────────────────────────────────────────

// WaitForSessionStatus polls the DB until the session reaches one of the
// expected statuses. Returns the status it landed on.
func (app *TestApp) WaitForSessionStatus(t *testing.T, sessionID string, expected ...string) string {
	t.Helper()
	var actual string
	require.Eventually(t, func() bool {
		s, err := app.Sessions.GetSession(context.Background(), sessionID)
		if err != nil {
			return false
		}
		actual = string(s.Status)
		for _, exp := range expected {
			if actual == exp {
				return true
			}
		}
		return false
	}, 30*time.Second, 100*time.Millisecond,
		"session %s did not reach status %v (last: %s)", sessionID, expected, actual)
	return actual
}

// ────────────────────────────────────────────────────────────
// Assessment Fixtures
// ────────────────────────────────────────────────────────────

// intermediateResponses answers the first six diagnostic questions correctly
// and leaves the advanced two blank, which the scoring policy maps to
// "intermediate".
func intermediateResponses() map[string]interface{} {
	return map[string]interface{}{
		"q1": "a value",
		"q2": "a loop",
		"q3": "hands a value back to the caller",
		"q4": "O(log n)",
		"q5": "a stack",
		"q6": "key-value lookup",
	}
}

// uniqueUserID returns a fresh learner id so tests sharing a schema never
// collide on profile rows.
func uniqueUserID() string {
	return uuid.New().String()
}
