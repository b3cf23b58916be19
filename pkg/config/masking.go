package config

// MaskingConfig controls scrubbing of sensitive learner data from logged
// text and event payloads. Enabled by default; main hands these values to
// the masking service.
type MaskingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PatternGroup string `yaml:"pattern_group"`

	// CustomPatterns extends the named group with deployment-specific
	// regexes. Patterns are compiled during validation so a typo fails at
	// startup.
	CustomPatterns []MaskingPattern `yaml:"custom_patterns,omitempty"`
}

// MaskingPattern is one custom masking rule.
type MaskingPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Description string `yaml:"description,omitempty"`
}

// DefaultMaskingConfig returns the built-in masking settings.
func DefaultMaskingConfig() MaskingConfig {
	return MaskingConfig{
		Enabled:      true,
		PatternGroup: "learner_data",
	}
}
