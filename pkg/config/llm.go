package config

import "time"

// LLMConfig points at the optional exercise generation service. When
// Enabled is false the generator serves its template catalog only.
type LLMConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Enabled bool          `yaml:"enabled"`
}

// DefaultLLMConfig returns the built-in LLM settings: disabled.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Timeout: 60 * time.Second,
	}
}
