package models

import (
	"errors"
	"fmt"
)

// Result is the uniform agent outcome: either a Success carrying data and
// suggested next actions, or an Error carrying a human message and a
// machine-stable code. Metadata is free-form on both variants.
type Result struct {
	Success     bool           `json:"success"`
	Data        map[string]any `json:"data,omitempty"`
	NextActions []string       `json:"next_actions,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   ErrorCode      `json:"error_code,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SuccessResult builds a Success result.
func SuccessResult(data map[string]any) *Result {
	return &Result{Success: true, Data: data}
}

// ErrorResult builds an Error result.
func ErrorResult(code ErrorCode, msg string) *Result {
	return &Result{Success: false, Error: msg, ErrorCode: code}
}

// WithNextActions sets the ordered action tags and returns the result.
func (r *Result) WithNextActions(actions ...string) *Result {
	r.NextActions = actions
	return r
}

// WithMetadata sets one metadata entry and returns the result.
func (r *Result) WithMetadata(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// IsError reports whether the result is the Error variant.
func (r *Result) IsError() bool {
	return r != nil && !r.Success
}

// CoachError is a processing failure that carries a specific error code.
// Specialists return it (wrapped or bare) when a failure should surface with
// a code other than the generic processing_error.
type CoachError struct {
	Code ErrorCode
	Msg  string
}

func (e *CoachError) Error() string {
	return e.Msg
}

// NewCoachError builds a coded error with a formatted message.
func NewCoachError(code ErrorCode, format string, args ...any) *CoachError {
	return &CoachError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code from err, defaulting to processing_error.
func CodeOf(err error) ErrorCode {
	var ce *CoachError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeProcessing
}
