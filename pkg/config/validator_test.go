package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "default config is valid",
			mutate: nil,
		},
		{
			name:        "zero failure threshold",
			mutate:      func(c *Config) { c.Breaker.FailureThreshold = 0 },
			errContains: "breaker.failure_threshold",
		},
		{
			name:        "negative recovery timeout",
			mutate:      func(c *Config) { c.Breaker.RecoveryTimeoutSeconds = -5 },
			errContains: "breaker.recovery_timeout_seconds",
		},
		{
			name:        "confidence above one",
			mutate:      func(c *Config) { c.Router.MinConfidence = 1.5 },
			errContains: "router.min_confidence",
		},
		{
			name:        "confidence zero",
			mutate:      func(c *Config) { c.Router.MinConfidence = 0 },
			errContains: "router.min_confidence",
		},
		{
			name:        "watch without keywords file",
			mutate:      func(c *Config) { c.Router.WatchKeywords = true },
			errContains: "router.watch_keywords",
		},
		{
			name:        "server port out of range",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			errContains: "server.port",
		},
		{
			name:        "empty server host",
			mutate:      func(c *Config) { c.Server.Host = "" },
			errContains: "server.host",
		},
		{
			name:        "unknown ssl mode",
			mutate:      func(c *Config) { c.Database.SSLMode = "sometimes" },
			errContains: "database.ssl_mode",
		},
		{
			name:        "idle conns exceed open conns",
			mutate:      func(c *Config) { c.Database.MaxIdleConns = 50 },
			errContains: "database.max_idle_conns",
		},
		{
			name:        "zero queue workers",
			mutate:      func(c *Config) { c.Queue.WorkerCount = 0 },
			errContains: "queue.worker_count",
		},
		{
			name:        "negative session timeout",
			mutate:      func(c *Config) { c.Queue.SessionTimeout = -time.Second },
			errContains: "queue.session_timeout",
		},
		{
			name:        "zero retention days",
			mutate:      func(c *Config) { c.Retention.SessionRetentionDays = 0 },
			errContains: "retention.session_retention_days",
		},
		{
			name:        "zero event ttl",
			mutate:      func(c *Config) { c.Retention.EventTTL = 0 },
			errContains: "retention.event_ttl",
		},
		{
			name:        "zero progress minimum",
			mutate:      func(c *Config) { c.Progress.MinSubmissionsLowSuccess = 0 },
			errContains: "progress.min_submissions_low_success",
		},
		{
			name:        "sandbox url without scheme",
			mutate:      func(c *Config) { c.Sandbox.URL = "runner:8700" },
			errContains: "sandbox.url",
		},
		{
			name:        "llm enabled without url",
			mutate:      func(c *Config) { c.LLM.Enabled = true },
			errContains: "llm.url",
		},
		{
			name:        "llm url without scheme",
			mutate:      func(c *Config) { c.LLM.URL = "llm.internal:9000" },
			errContains: "llm.url",
		},
		{
			name:        "zero docs cache ttl",
			mutate:      func(c *Config) { c.Docs.CacheTTL = 0 },
			errContains: "docs.cache_ttl",
		},
		{
			name: "masking enabled with nothing to apply",
			mutate: func(c *Config) {
				c.Masking.PatternGroup = ""
				c.Masking.CustomPatterns = nil
			},
			errContains: "masking.pattern_group",
		},
		{
			name: "masking pattern does not compile",
			mutate: func(c *Config) {
				c.Masking.CustomPatterns = []MaskingPattern{
					{Name: "bad", Pattern: "(", Replacement: "***"},
				}
			},
			errContains: "masking.custom_patterns[0].pattern",
		},
		{
			name: "masking pattern missing replacement",
			mutate: func(c *Config) {
				c.Masking.CustomPatterns = []MaskingPattern{
					{Name: "half", Pattern: "token-[0-9]+"},
				}
			},
			errContains: "masking.custom_patterns[0].replacement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := Validate(cfg)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidate_MissingFieldSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidate_InvalidValueSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Masking.CustomPatterns = []MaskingPattern{
		{Name: "bad", Pattern: "[unclosed", Replacement: "***"},
	}

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
