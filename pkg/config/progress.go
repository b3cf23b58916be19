package config

// ProgressConfig tunes the adaptation trigger thresholds.
type ProgressConfig struct {
	// MinSubmissionsLowSuccess is the minimum submission count before a
	// low success rate is trusted enough to fire the reduce-difficulty
	// trigger.
	MinSubmissionsLowSuccess int `yaml:"min_submissions_low_success"`
}

// DefaultProgressConfig returns the built-in thresholds.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{MinSubmissionsLowSuccess: 4}
}
