package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks a resolved Config for values that would fail at runtime
// or silently misconfigure a component. Fail-fast: the first problem found
// is returned.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs all checks against cfg.
func Validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

// ValidateAll runs every section check in declaration order.
func (v *Validator) ValidateAll() error {
	checks := []func() error{
		v.validateBreaker,
		v.validateRouter,
		v.validateServer,
		v.validateDatabase,
		v.validateQueue,
		v.validateRetention,
		v.validateProgress,
		v.validateSandbox,
		v.validateDocs,
		v.validateLLM,
		v.validateMasking,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateBreaker() error {
	b := v.cfg.Breaker
	if b.FailureThreshold < 1 {
		return NewValidationError("breaker", "failure_threshold", fmt.Errorf("must be positive, got %d", b.FailureThreshold))
	}
	if b.RecoveryTimeoutSeconds < 1 {
		return NewValidationError("breaker", "recovery_timeout_seconds", fmt.Errorf("must be positive, got %d", b.RecoveryTimeoutSeconds))
	}
	if b.SuccessThreshold < 1 {
		return NewValidationError("breaker", "success_threshold", fmt.Errorf("must be positive, got %d", b.SuccessThreshold))
	}
	if b.DefaultTimeoutSeconds < 1 {
		return NewValidationError("breaker", "default_timeout_seconds", fmt.Errorf("must be positive, got %d", b.DefaultTimeoutSeconds))
	}
	return nil
}

func (v *Validator) validateRouter() error {
	r := v.cfg.Router
	if r.MinConfidence <= 0 || r.MinConfidence > 1 {
		return NewValidationError("router", "min_confidence", fmt.Errorf("must be in (0, 1], got %g", r.MinConfidence))
	}
	if r.WatchKeywords && r.KeywordsFile == "" {
		return NewValidationError("router", "watch_keywords", fmt.Errorf("%w: keywords_file required when watching", ErrMissingRequiredField))
	}
	return nil
}

func (v *Validator) validateServer() error {
	s := v.cfg.Server
	if s.Host == "" {
		return NewValidationError("server", "host", ErrMissingRequiredField)
	}
	if s.Port < 1 || s.Port > 65535 {
		return NewValidationError("server", "port", fmt.Errorf("port %d out of range", s.Port))
	}
	return nil
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d.Host == "" {
		return NewValidationError("database", "host", ErrMissingRequiredField)
	}
	if d.Port < 1 || d.Port > 65535 {
		return NewValidationError("database", "port", fmt.Errorf("port %d out of range", d.Port))
	}
	if d.User == "" {
		return NewValidationError("database", "user", ErrMissingRequiredField)
	}
	if d.Name == "" {
		return NewValidationError("database", "name", ErrMissingRequiredField)
	}
	// Password is deliberately not required here; it usually arrives via
	// DB_PASSWORD at connect time.
	if !validSSLModes[d.SSLMode] {
		return NewValidationError("database", "ssl_mode", fmt.Errorf("unknown ssl_mode %q", d.SSLMode))
	}
	if d.MaxOpenConns < 1 {
		return NewValidationError("database", "max_open_conns", fmt.Errorf("must be at least 1, got %d", d.MaxOpenConns))
	}
	if d.MaxIdleConns < 0 {
		return NewValidationError("database", "max_idle_conns", fmt.Errorf("must be non-negative, got %d", d.MaxIdleConns))
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return NewValidationError("database", "max_idle_conns", fmt.Errorf("%d exceeds max_open_conns %d", d.MaxIdleConns, d.MaxOpenConns))
	}
	if d.ConnMaxLifetime <= 0 {
		return NewValidationError("database", "conn_max_lifetime", fmt.Errorf("must be positive, got %s", d.ConnMaxLifetime))
	}
	if d.ConnMaxIdleTime <= 0 {
		return NewValidationError("database", "conn_max_idle_time", fmt.Errorf("must be positive, got %s", d.ConnMaxIdleTime))
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count", fmt.Errorf("must be at least 1, got %d", q.WorkerCount))
	}
	if q.SessionTimeout <= 0 {
		return NewValidationError("queue", "session_timeout", fmt.Errorf("must be positive, got %s", q.SessionTimeout))
	}
	if q.OrphanCheckInterval <= 0 {
		return NewValidationError("queue", "orphan_check_interval", fmt.Errorf("must be positive, got %s", q.OrphanCheckInterval))
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r.SessionRetentionDays < 1 {
		return NewValidationError("retention", "session_retention_days", fmt.Errorf("must be at least 1, got %d", r.SessionRetentionDays))
	}
	if r.EventTTL <= 0 {
		return NewValidationError("retention", "event_ttl", fmt.Errorf("must be positive, got %s", r.EventTTL))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "cleanup_interval", fmt.Errorf("must be positive, got %s", r.CleanupInterval))
	}
	return nil
}

func (v *Validator) validateProgress() error {
	if v.cfg.Progress.MinSubmissionsLowSuccess < 1 {
		return NewValidationError("progress", "min_submissions_low_success", fmt.Errorf("must be at least 1, got %d", v.cfg.Progress.MinSubmissionsLowSuccess))
	}
	return nil
}

func (v *Validator) validateSandbox() error {
	s := v.cfg.Sandbox
	if s.URL != "" && !isHTTPURL(s.URL) {
		return NewValidationError("sandbox", "url", fmt.Errorf("must be an http(s) URL, got %q", s.URL))
	}
	if s.Timeout <= 0 {
		return NewValidationError("sandbox", "timeout", fmt.Errorf("must be positive, got %s", s.Timeout))
	}
	return nil
}

func (v *Validator) validateDocs() error {
	d := v.cfg.Docs
	if d.CacheTTL <= 0 {
		return NewValidationError("docs", "cache_ttl", fmt.Errorf("must be positive, got %s", d.CacheTTL))
	}
	if d.FetchTimeout <= 0 {
		return NewValidationError("docs", "fetch_timeout", fmt.Errorf("must be positive, got %s", d.FetchTimeout))
	}
	return nil
}

func (v *Validator) validateLLM() error {
	l := v.cfg.LLM
	if l.Enabled && l.URL == "" {
		return NewValidationError("llm", "url", fmt.Errorf("%w: required when llm.enabled is true", ErrMissingRequiredField))
	}
	if l.URL != "" && !isHTTPURL(l.URL) {
		return NewValidationError("llm", "url", fmt.Errorf("must be an http(s) URL, got %q", l.URL))
	}
	if l.Timeout <= 0 {
		return NewValidationError("llm", "timeout", fmt.Errorf("must be positive, got %s", l.Timeout))
	}
	return nil
}

func (v *Validator) validateMasking() error {
	m := v.cfg.Masking
	if m.Enabled && m.PatternGroup == "" && len(m.CustomPatterns) == 0 {
		return NewValidationError("masking", "pattern_group", fmt.Errorf("%w: a pattern group or custom patterns are required when masking is enabled", ErrMissingRequiredField))
	}
	for i, p := range m.CustomPatterns {
		if p.Name == "" {
			return NewValidationError("masking", fmt.Sprintf("custom_patterns[%d].name", i), ErrMissingRequiredField)
		}
		if p.Pattern == "" {
			return NewValidationError("masking", fmt.Sprintf("custom_patterns[%d].pattern", i), ErrMissingRequiredField)
		}
		if p.Replacement == "" {
			return NewValidationError("masking", fmt.Sprintf("custom_patterns[%d].replacement", i), ErrMissingRequiredField)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return NewValidationError("masking", fmt.Sprintf("custom_patterns[%d].pattern", i), fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
