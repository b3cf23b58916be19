package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/masking"
	"github.com/learnloop/mentor/pkg/models"
)

func TestTruncateIfNeeded(t *testing.T) {
	t.Run("passes through normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(WorkflowStepPayload{
			Type:      EventTypeWorkflowStep,
			SessionID: "abc-123",
			Workflow:  "submission_review",
			StepIndex: 1,
			Status:    WorkflowStepStarted,
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, EventTypeWorkflowStep)
		assert.Contains(t, result, "abc-123")
	})

	t.Run("truncates oversized payload", func(t *testing.T) {
		longError := make([]byte, 8000)
		for i := range longError {
			longError[i] = 'a'
		}
		payload, _ := json.Marshal(SessionStatusPayload{
			Type:      EventTypeSessionStatus,
			SessionID: "abc-123",
			Status:    models.SessionStatusFailed,
			Error:     string(longError),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, "truncated")
		assert.Less(t, len(result), 8000)
	})

	t.Run("does not truncate small payload", func(t *testing.T) {
		payload, _ := json.Marshal(FallbackUsedPayload{
			Type:      EventTypeFallbackUsed,
			SessionID: "sess-5",
			Reason:    "timeout",
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.NotContains(t, result, "truncated")
	})

	t.Run("truncated payload preserves routing fields", func(t *testing.T) {
		longError := make([]byte, 8000)
		for i := range longError {
			longError[i] = 'x'
		}
		payload, _ := json.Marshal(WorkflowStepPayload{
			Type:      EventTypeWorkflowStep,
			SessionID: "sess-789",
			Status:    WorkflowStepFailed,
			Error:     string(longError),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)

		assert.Contains(t, result, EventTypeWorkflowStep)
		assert.Contains(t, result, "sess-789")
		assert.Contains(t, result, `"truncated":true`)
		assert.NotContains(t, result, "xxxx")
	})

	t.Run("boundary: payload just under limit is not truncated", func(t *testing.T) {
		// Build a payload whose JSON is just under 7900 bytes.
		// Marshal an empty struct first to measure the overhead of the struct's
		// fixed fields (keys, quotes, separators). The 20-byte safety margin
		// accounts for JSON encoding variability: if new fields with non-zero
		// defaults are added to SessionStatusPayload, the base overhead grows
		// and the margin prevents the test from flipping unexpectedly.
		base, _ := json.Marshal(SessionStatusPayload{Type: "t"})
		errorSize := 7900 - len(base) - 20
		errorText := make([]byte, errorSize)
		for i := range errorText {
			errorText[i] = 'b'
		}
		payload, _ := json.Marshal(SessionStatusPayload{
			Type:  "t",
			Error: string(errorText),
		})
		require.LessOrEqual(t, len(payload), 7900, "test payload should be under limit")

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.NotContains(t, result, "truncated")
	})

	t.Run("empty JSON object", func(t *testing.T) {
		result, err := truncateIfNeeded("{}")
		require.NoError(t, err)
		assert.Equal(t, "{}", result)
	})
}

func TestInjectDBEventIDAndTruncate(t *testing.T) {
	t.Run("injects db_event_id into normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(WorkflowStepPayload{
			Type:      EventTypeWorkflowStep,
			SessionID: "sess-1",
			Workflow:  "onboarding",
			Status:    WorkflowStepCompleted,
		})

		result, err := injectDBEventIDAndTruncate(payload, 42)
		require.NoError(t, err)
		assert.Contains(t, result, `"db_event_id":42`)
		assert.Contains(t, result, "onboarding")
	})

	t.Run("truncated payload preserves db_event_id", func(t *testing.T) {
		longError := make([]byte, 8000)
		for i := range longError {
			longError[i] = 'x'
		}
		payload, _ := json.Marshal(SessionStatusPayload{
			Type:      EventTypeSessionStatus,
			SessionID: "sess-789",
			Status:    models.SessionStatusFailed,
			Error:     string(longError),
		})

		result, err := injectDBEventIDAndTruncate(payload, 42)
		require.NoError(t, err)
		assert.Contains(t, result, `"truncated":true`)
		assert.Contains(t, result, `"db_event_id":42`)
		assert.Contains(t, result, "sess-789")
	})

	t.Run("rejects non-JSON input", func(t *testing.T) {
		_, err := injectDBEventIDAndTruncate([]byte("not json"), 1)
		assert.Error(t, err)
	})
}

func TestNewEventPublisher(t *testing.T) {
	publisher := NewEventPublisher(nil, nil)
	assert.NotNil(t, publisher)
	assert.Nil(t, publisher.db)
}

func TestMaskPayload(t *testing.T) {
	t.Run("nil masker passes payload through", func(t *testing.T) {
		p := NewEventPublisher(nil, nil)
		payload := []byte(`{"type":"session.status","session_id":"s-1"}`)
		assert.Equal(t, payload, p.maskPayload(payload))
	})

	t.Run("disabled masker passes payload through", func(t *testing.T) {
		p := NewEventPublisher(nil, masking.NewService(masking.Config{Enabled: false}))
		payload := []byte(`{"type":"session.status","session_id":"s-1"}`)
		assert.Equal(t, payload, p.maskPayload(payload))
	})

	t.Run("masks sensitive content while keeping valid JSON", func(t *testing.T) {
		p := NewEventPublisher(nil, masking.NewService(masking.Config{Enabled: true}))
		payload, _ := json.Marshal(SessionStatusPayload{
			Type:      EventTypeSessionStatus,
			SessionID: "sess-42",
			Status:    models.SessionStatusFailed,
			Error:     "could not notify learner alice@example.com",
		})

		masked := p.maskPayload(payload)
		require.True(t, json.Valid(masked))
		assert.Contains(t, string(masked), "__MASKED_EMAIL__")
		assert.NotContains(t, string(masked), "alice@example.com")
		assert.Contains(t, string(masked), "sess-42")
	})

	t.Run("collapses mangled JSON to a redacted envelope", func(t *testing.T) {
		// A replacement without quotes breaks the surrounding JSON string,
		// which must not break the JSONB insert downstream.
		p := NewEventPublisher(nil, masking.NewService(masking.Config{
			Enabled: true,
			CustomPatterns: []masking.CustomPattern{
				{Name: "break_json", Pattern: `"quota-exceeded"`, Replacement: `quota exceeded`},
			},
		}))
		payload, _ := json.Marshal(FallbackUsedPayload{
			Type:      EventTypeFallbackUsed,
			SessionID: "sess-9",
			AgentType: "exercise_generator",
			Reason:    "quota-exceeded",
		})

		masked := p.maskPayload(payload)
		require.True(t, json.Valid(masked))

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(masked, &envelope))
		assert.Equal(t, EventTypeFallbackUsed, envelope["type"])
		assert.Equal(t, "sess-9", envelope["session_id"])
		assert.Equal(t, true, envelope["redacted"])
		assert.NotContains(t, string(masked), "exercise_generator")
	})
}
