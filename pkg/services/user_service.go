package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting scan
// helpers serve single-row and multi-row queries alike.
type rowScanner interface {
	Scan(dest ...any) error
}

// UserService manages learner profiles.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new user service backed by db.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `user_id, email, name, skill_level, learning_goals, time_constraints, preferences, created_at, updated_at`

// GetUserProfile retrieves a learner profile by id.
// Returns ErrNotFound if no such user exists.
func (s *UserService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)

	profile, err := scanUserProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return profile, nil
}

// CreateUser creates a new learner with an empty profile. The user id is
// generated when the request leaves it blank. Returns ErrAlreadyExists if the
// id or email is already taken.
func (s *UserService) CreateUser(httpCtx context.Context, req models.CreateUserRequest) (*models.UserProfile, error) {
	if req.Email == "" {
		return nil, NewValidationError("email", "email is required")
	}
	if req.Name == "" {
		return nil, NewValidationError("name", "name is required")
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.New().String()
	}

	// Use background context with timeout: user creation must complete even
	// if the HTTP request is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, name, learning_goals, time_constraints, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, '[]', '{}', '{}', $4, $4)`,
		userID, req.Email, req.Name, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.UserProfile{
		UserID:          userID,
		Email:           req.Email,
		Name:            req.Name,
		LearningGoals:   []string{},
		TimeConstraints: map[string]any{},
		Preferences:     map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// UpdateUserProfile upserts a learner profile. Onboarding writes goals and
// constraints before the learner row necessarily exists, so a missing row is
// created rather than rejected.
func (s *UserService) UpdateUserProfile(httpCtx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if profile == nil {
		return nil, NewValidationError("profile", "profile is required")
	}
	if profile.UserID == "" {
		return nil, NewValidationError("user_id", "user_id is required")
	}

	goals, err := marshalJSONColumn(profile.LearningGoals, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal learning_goals: %w", err)
	}
	constraints, err := marshalJSONColumn(profile.TimeConstraints, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal time_constraints: %w", err)
	}
	prefs, err := marshalJSONColumn(profile.Preferences, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (user_id, email, name, skill_level, learning_goals, time_constraints, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   email            = EXCLUDED.email,
		   name             = EXCLUDED.name,
		   skill_level      = EXCLUDED.skill_level,
		   learning_goals   = EXCLUDED.learning_goals,
		   time_constraints = EXCLUDED.time_constraints,
		   preferences      = EXCLUDED.preferences,
		   updated_at       = now()
		 RETURNING `+userColumns,
		profile.UserID, profile.Email, profile.Name, string(profile.SkillLevel), goals, constraints, prefs)

	updated, err := scanUserProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return updated, nil
}

func scanUserProfile(row rowScanner) (*models.UserProfile, error) {
	var p models.UserProfile
	var goals, constraints, prefs []byte

	err := row.Scan(&p.UserID, &p.Email, &p.Name, &p.SkillLevel,
		&goals, &constraints, &prefs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(goals, &p.LearningGoals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal learning_goals: %w", err)
	}
	if err := json.Unmarshal(constraints, &p.TimeConstraints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal time_constraints: %w", err)
	}
	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &p, nil
}

// marshalJSONColumn marshals v for a JSONB column, substituting empty for
// nil so columns never hold SQL NULL.
func marshalJSONColumn(v any, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}
