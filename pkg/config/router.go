package config

// RouterConfig tunes the intent router.
type RouterConfig struct {
	// MinConfidence is the minimum keyword-classification confidence in
	// (0, 1] for a message to route without an explicit intent.
	MinConfidence float64 `yaml:"min_confidence"`

	// KeywordsFile optionally points at a YAML file whose phrase lists
	// override the built-in keyword tables per intent. Empty means
	// built-ins only.
	KeywordsFile string `yaml:"keywords_file"`

	// WatchKeywords enables hot reload of KeywordsFile on change.
	WatchKeywords bool `yaml:"watch_keywords"`
}

// DefaultRouterConfig returns the built-in router tuning.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MinConfidence: 0.3,
	}
}
