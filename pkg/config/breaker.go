package config

import "time"

// BreakerConfig tunes the circuit breakers guarding every agent. The
// timeouts are written as whole seconds in YAML; the duration accessors
// convert for callers.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count in Closed that
	// opens a circuit.
	FailureThreshold int `yaml:"failure_threshold"`

	// RecoveryTimeoutSeconds is the minimum dwell time in Open before a
	// probe call is admitted.
	RecoveryTimeoutSeconds int `yaml:"recovery_timeout_seconds"`

	// SuccessThreshold is the consecutive-success count in HalfOpen
	// required to close.
	SuccessThreshold int `yaml:"success_threshold"`

	// DefaultTimeoutSeconds is the per-call wall-clock timeout applied
	// when the payload does not carry its own.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`
}

// DefaultBreakerConfig returns the built-in breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:       5,
		RecoveryTimeoutSeconds: 60,
		SuccessThreshold:       3,
		DefaultTimeoutSeconds:  30,
	}
}

// RecoveryTimeout returns RecoveryTimeoutSeconds as a duration.
func (c BreakerConfig) RecoveryTimeout() time.Duration {
	return time.Duration(c.RecoveryTimeoutSeconds) * time.Second
}

// DefaultTimeout returns DefaultTimeoutSeconds as a duration.
func (c BreakerConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}
