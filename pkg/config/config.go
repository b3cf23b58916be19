// Package config loads and validates the mentor service configuration.
//
// Configuration is layered: built-in defaults, then an optional
// mentor.yaml deep-merged on top (section by section, non-zero values
// override), with {{.ENV_VAR}} template expansion applied to the file
// before parsing. Durations are written as Go duration strings ("30s",
// "5m"). A fail-fast validator rejects bad values at startup with
// dotted-path messages.
package config

// DefaultConfigFile is the config file looked up when no path is given.
const DefaultConfigFile = "mentor.yaml"

// Config is the umbrella configuration object covering every tunable of
// the service. Immutable after Load; components receive the sections they
// need at construction time.
type Config struct {
	Breaker   BreakerConfig   `yaml:"breaker"`
	Router    RouterConfig    `yaml:"router"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Retention RetentionConfig `yaml:"retention"`
	Progress  ProgressConfig  `yaml:"progress"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Docs      DocsConfig      `yaml:"docs"`
	LLM       LLMConfig       `yaml:"llm"`
	Masking   MaskingConfig   `yaml:"masking"`
}

// DefaultConfig returns the built-in defaults for every section. The
// result validates cleanly; a service started with no config file runs on
// these values.
func DefaultConfig() *Config {
	return &Config{
		Breaker:   DefaultBreakerConfig(),
		Router:    DefaultRouterConfig(),
		Workflows: DefaultWorkflowsConfig(),
		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		Queue:     DefaultQueueConfig(),
		Retention: DefaultRetentionConfig(),
		Progress:  DefaultProgressConfig(),
		Sandbox:   DefaultSandboxConfig(),
		Docs:      DefaultDocsConfig(),
		LLM:       DefaultLLMConfig(),
		Masking:   DefaultMaskingConfig(),
	}
}
