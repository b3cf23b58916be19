package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mentor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
breaker:
  failure_threshold: 3
  recovery_timeout_seconds: 30
  success_threshold: 2
  default_timeout_seconds: 10

router:
  min_confidence: 0.5
  keywords_file: "keywords.yaml"
  watch_keywords: true

workflows:
  enabled:
    - new_learner_onboarding
    - exercise_submission

server:
  host: "127.0.0.1"
  port: 9090
  auth_token: "secret-token"
  allowed_origins:
    - "https://coach.example.com"

database:
  host: "db.internal"
  port: 5433
  user: "coach"
  name: "coach_prod"
  ssl_mode: "require"
  max_open_conns: 40
  conn_max_lifetime: "1h"

queue:
  worker_count: 8
  session_timeout: "3m"
  orphan_check_interval: "30s"

retention:
  session_retention_days: 90
  event_ttl: "2h"
  cleanup_interval: "6h"

progress:
  min_submissions_low_success: 6

sandbox:
  url: "http://runner:8700"
  timeout: "20s"

docs:
  cache_ttl: "5m"
  fetch_timeout: "10s"

llm:
  url: "http://llm:9000"
  timeout: "45s"
  enabled: true

masking:
  pattern_group: "learner_data"
  custom_patterns:
    - name: "student_id"
      pattern: "STU-[0-9]{6}"
      replacement: "***MASKED_STUDENT_ID***"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.RecoveryTimeout())
	assert.Equal(t, 2, cfg.Breaker.SuccessThreshold)
	assert.Equal(t, 10*time.Second, cfg.Breaker.DefaultTimeout())

	assert.Equal(t, 0.5, cfg.Router.MinConfidence)
	assert.Equal(t, "keywords.yaml", cfg.Router.KeywordsFile)
	assert.True(t, cfg.Router.WatchKeywords)

	assert.Equal(t, []string{"new_learner_onboarding", "exercise_submission"}, cfg.Workflows.Enabled)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret-token", cfg.Server.AuthToken)
	assert.Equal(t, []string{"https://coach.example.com"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "coach", cfg.Database.User)
	assert.Equal(t, "coach_prod", cfg.Database.Name)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxIdleTime)

	assert.Equal(t, 8, cfg.Queue.WorkerCount)
	assert.Equal(t, 3*time.Minute, cfg.Queue.SessionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Queue.OrphanCheckInterval)

	assert.Equal(t, 90, cfg.Retention.SessionRetentionDays)
	assert.Equal(t, 2*time.Hour, cfg.Retention.EventTTL)
	assert.Equal(t, 6*time.Hour, cfg.Retention.CleanupInterval)

	assert.Equal(t, 6, cfg.Progress.MinSubmissionsLowSuccess)

	assert.Equal(t, "http://runner:8700", cfg.Sandbox.URL)
	assert.Equal(t, 20*time.Second, cfg.Sandbox.Timeout)

	assert.Equal(t, 5*time.Minute, cfg.Docs.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Docs.FetchTimeout)

	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, "http://llm:9000", cfg.LLM.URL)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)

	assert.True(t, cfg.Masking.Enabled)
	assert.Equal(t, "learner_data", cfg.Masking.PatternGroup)
	require.Len(t, cfg.Masking.CustomPatterns, 1)
	assert.Equal(t, "student_id", cfg.Masking.CustomPatterns[0].Name)
}

func TestLoad_DefaultsSurviveMerge(t *testing.T) {
	path := writeConfig(t, `
queue:
  worker_count: 2

docs:
  cache_ttl: "1m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden fields.
	assert.Equal(t, 2, cfg.Queue.WorkerCount)
	assert.Equal(t, time.Minute, cfg.Docs.CacheTTL)

	// Unset fields in touched sections keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Queue.SessionTimeout)
	assert.Equal(t, time.Minute, cfg.Queue.OrphanCheckInterval)
	assert.Equal(t, 15*time.Second, cfg.Docs.FetchTimeout)

	// Untouched sections are all defaults.
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 0.3, cfg.Router.MinConfidence)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 365, cfg.Retention.SessionRetentionDays)
	assert.True(t, cfg.Masking.Enabled)
	assert.False(t, cfg.LLM.Enabled)
	assert.Empty(t, cfg.Workflows.Enabled)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "queue: [worker_count: oops")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
queue:
  session_timeout: "fast"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.session_timeout")
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
breaker:
  failure_threshold: -1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "breaker.failure_threshold")
}

func TestLoad_LLMEnabledRequiresURL(t *testing.T) {
	path := writeConfig(t, `
llm:
  enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Contains(t, err.Error(), "llm.url")
}

func TestLoad_EnvironmentInterpolation(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret=with=equals")

	path := writeConfig(t, `
database:
  password: "{{.TEST_DB_PASSWORD}}"

masking:
  custom_patterns:
    - name: "learner_email"
      pattern: "learner_[0-9]+@example\\.com$"
      replacement: "***MASKED_EMAIL***"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret=with=equals", cfg.Database.Password)
	// The $ anchor in the pattern must survive expansion untouched.
	assert.Equal(t, `learner_[0-9]+@example\.com$`, cfg.Masking.CustomPatterns[0].Pattern)
}

func TestLoad_MaskingDisabled(t *testing.T) {
	path := writeConfig(t, `
masking:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Masking.Enabled)
	// The group default still resolves so re-enabling at runtime is sane.
	assert.Equal(t, "learner_data", cfg.Masking.PatternGroup)
}
