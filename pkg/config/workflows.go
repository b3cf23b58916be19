package config

// WorkflowsConfig selects which built-in workflows are served.
type WorkflowsConfig struct {
	// Enabled filters the workflow catalog by name. Empty keeps the whole
	// catalog. Unknown names are rejected when the workflow registry is
	// built, not here.
	Enabled []string `yaml:"enabled"`
}

// DefaultWorkflowsConfig enables the full catalog.
func DefaultWorkflowsConfig() WorkflowsConfig {
	return WorkflowsConfig{}
}
