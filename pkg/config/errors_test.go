package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("queue", "worker_count", fmt.Errorf("must be at least 1, got 0"))

	assert.Equal(t, "queue.worker_count: must be at least 1, got 0", err.Error())
}

func TestValidationError_NoField(t *testing.T) {
	err := NewValidationError("queue", "", errors.New("section malformed"))

	assert.Equal(t, "queue: section malformed", err.Error())
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("llm", "url", fmt.Errorf("%w: required when llm.enabled is true", ErrMissingRequiredField))

	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestLoadError(t *testing.T) {
	err := NewLoadError("mentor.yaml", ErrConfigNotFound)

	assert.Equal(t, "failed to load mentor.yaml: configuration file not found", err.Error())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
