package config

import "time"

// QueueConfig contains worker pool configuration. These values control how
// pending coach sessions are claimed and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per pod. Each worker
	// independently polls and processes sessions.
	WorkerCount int `yaml:"worker_count"`

	// SessionTimeout is the maximum time a claimed session may execute.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// OrphanCheckInterval is how often the pool scans for sessions left
	// in_progress by a dead pod. Orphans older than twice SessionTimeout
	// are requeued.
	OrphanCheckInterval time.Duration `yaml:"orphan_check_interval"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:         5,
		SessionTimeout:      5 * time.Minute,
		OrphanCheckInterval: 1 * time.Minute,
	}
}
