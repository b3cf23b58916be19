// Package sandbox provides the HTTP client for the code execution service,
// the isolated runner that executes untrusted learner code.
package sandbox

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

const defaultTimeout = 30 * time.Second

// Client calls the code execution service. It implements the reviewer's
// CodeRunner port; callers treat any error as "sandbox unavailable" and
// degrade, so the client never retries on its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sandbox client for cfg.URL. The configured timeout
// bounds the whole request, including the runner's own execution time.
func NewClient(cfg *config.SandboxConfig) *Client {
	timeout := defaultTimeout
	baseURL := ""
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		baseURL = strings.TrimRight(cfg.URL, "/")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ExecuteCode submits code and test cases to the runner and returns its
// verdict. A non-2xx answer is an error; the runner reports compile errors,
// test failures, and security violations inside a 200 response.
func (c *Client) ExecuteCode(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode execution request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result models.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode sandbox response: %w", err)
	}
	return &result, nil
}
