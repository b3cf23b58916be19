package models

import "time"

// UserProfile is the persisted learner profile.
type UserProfile struct {
	UserID          string         `json:"user_id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	SkillLevel      SkillLevel     `json:"skill_level,omitempty"`
	LearningGoals   []string       `json:"learning_goals,omitempty"`
	TimeConstraints map[string]any `json:"time_constraints,omitempty"`
	Preferences     map[string]any `json:"preferences,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateUserRequest contains fields for creating a learner.
type CreateUserRequest struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
