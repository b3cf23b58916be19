package config

import "time"

// DocsConfig tunes the documentation library.
type DocsConfig struct {
	// CacheTTL is how long fetched resource content stays in the
	// in-memory cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// FetchTimeout bounds a single content fetch or quality probe.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultDocsConfig returns the built-in documentation settings.
func DefaultDocsConfig() DocsConfig {
	return DocsConfig{
		CacheTTL:     10 * time.Minute,
		FetchTimeout: 15 * time.Second,
	}
}
