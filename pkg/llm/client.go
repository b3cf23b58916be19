// Package llm provides the HTTP client for the exercise generation
// service, an optional language-model backend that drafts practice
// exercises and hints. Every call is fallible by contract: the exercise
// generator degrades to its template catalog whenever the service errors,
// times out, or is simply not deployed.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/models"
)

const defaultTimeout = 60 * time.Second

// Client talks to the generation service over HTTP. It never retries:
// callers already treat any error as "LLM unavailable" and fall back.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client from the llm config section. The service URL
// points at the host root; endpoint paths are fixed.
func NewClient(cfg *config.LLMConfig) *Client {
	timeout := defaultTimeout
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	baseURL := ""
	if cfg != nil {
		baseURL = strings.TrimRight(cfg.URL, "/")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type exerciseRequest struct {
	Topic      string `json:"topic"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	SkillLevel string `json:"skill_level"`
}

type hintsRequest struct {
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
}

type hintsResponse struct {
	Hints []string `json:"hints"`
}

// GenerateExercise asks the service to draft one exercise. The request
// parameters are authoritative metadata: any of topic, language,
// difficulty, or skill level the service leaves blank is backfilled from
// the request. A response without a title and description is an error so
// the caller falls back instead of serving an empty exercise.
func (c *Client) GenerateExercise(ctx context.Context, topic, language, difficulty string, level models.SkillLevel) (*models.Exercise, error) {
	req := exerciseRequest{
		Topic:      topic,
		Language:   language,
		Difficulty: difficulty,
		SkillLevel: string(level),
	}
	var ex models.Exercise
	if err := c.postJSON(ctx, "/generate_exercise", req, &ex); err != nil {
		return nil, fmt.Errorf("generate exercise: %w", err)
	}
	if ex.Title == "" || ex.Description == "" {
		return nil, fmt.Errorf("generate exercise: incomplete response for topic %q", topic)
	}
	if ex.Topic == "" {
		ex.Topic = topic
	}
	if ex.Language == "" {
		ex.Language = language
	}
	if ex.Difficulty == "" {
		ex.Difficulty = difficulty
	}
	if ex.SkillLevel == "" {
		ex.SkillLevel = level
	}
	return &ex, nil
}

// GenerateHints asks the service for up to count hints on a topic. The
// service may return fewer; an empty list is an error so the caller falls
// back to template hints.
func (c *Client) GenerateHints(ctx context.Context, topic, description string, count int) ([]string, error) {
	req := hintsRequest{
		Topic:       topic,
		Description: description,
		Count:       count,
	}
	var out hintsResponse
	if err := c.postJSON(ctx, "/generate_hints", req, &out); err != nil {
		return nil, fmt.Errorf("generate hints: %w", err)
	}
	if len(out.Hints) == 0 {
		return nil, fmt.Errorf("generate hints: empty response for topic %q", topic)
	}
	if count > 0 && len(out.Hints) > count {
		out.Hints = out.Hints[:count]
	}
	return out.Hints, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("llm service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
