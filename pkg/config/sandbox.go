package config

import "time"

// SandboxConfig points at the code execution service. An empty URL leaves
// the sandbox unwired; the reviewer then runs static review only.
type SandboxConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultSandboxConfig returns the built-in sandbox settings.
func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		Timeout: 30 * time.Second,
	}
}
