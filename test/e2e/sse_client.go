package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// SSEEvent represents a received server-sent event.
type SSEEvent struct {
	Type     string
	ID       string                 // id: line, empty for transient events
	Raw      json.RawMessage        // Original JSON payload
	Parsed   map[string]interface{} // Parsed for assertions
	Received time.Time              // When we received it
}

// SSEClient connects to the mentor event stream endpoint and collects events.
type SSEClient struct {
	resp   *http.Response
	events []SSEEvent
	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// OpenEventStream subscribes to GET /api/v1/events/stream with the given raw
// query ("" for the global sessions channel, "session_id=..." for one
// session) and starts collecting events in a background goroutine. The
// subscription is fully established (LISTEN active, catchup staged) by the
// time this returns, because the server completes both before writing the
// response headers.
func (app *TestApp) OpenEventStream(t *testing.T, query string) *SSEClient {
	t.Helper()

	url := app.BaseURL + "/api/v1/events/stream"
	if query != "" {
		url += "?" + query
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		require.NoError(t, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		require.NoError(t, err)
	}
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET %s: unexpected status", url)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	c := &SSEClient{
		resp:   resp,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	go c.readLoop()

	t.Cleanup(c.Close)
	return c
}

// WaitForEvent waits until an event matching the predicate is received, or timeout.
func (c *SSEClient) WaitForEvent(predicate func(SSEEvent) bool, timeout time.Duration) (*SSEEvent, error) {
	deadline := time.After(timeout)
	tick := time.NewTicker(25 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for event (collected %d events)", len(c.Events()))
		case <-tick.C:
			c.mu.Lock()
			for i := range c.events {
				if predicate(c.events[i]) {
					evt := c.events[i]
					c.mu.Unlock()
					return &evt, nil
				}
			}
			c.mu.Unlock()
		}
	}
}

// WaitForSessionStatus waits for a session.status event with the given
// session id and status.
func (c *SSEClient) WaitForSessionStatus(sessionID, status string, timeout time.Duration) (*SSEEvent, error) {
	return c.WaitForEvent(func(e SSEEvent) bool {
		return e.Type == "session.status" &&
			e.Parsed["session_id"] == sessionID &&
			e.Parsed["status"] == status
	}, timeout)
}

// Events returns a snapshot of all collected events.
func (c *SSEClient) Events() []SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]SSEEvent, len(c.events))
	copy(result, c.events)
	return result
}

// EventsByType returns events filtered by type.
func (c *SSEClient) EventsByType(eventType string) []SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []SSEEvent
	for _, e := range c.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Close cancels the stream request and waits for the read loop to exit.
// Safe to call multiple times.
func (c *SSEClient) Close() {
	c.cancel()
	<-c.doneCh
}

// readLoop parses the SSE wire format: optional "id:" line, one "data:"
// line per event, a blank line as the frame terminator, and ":" comment
// lines for heartbeats.
func (c *SSEClient) readLoop() {
	defer close(c.doneCh)
	defer func() { _ = c.resp.Body.Close() }()

	scanner := bufio.NewScanner(c.resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var id, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				c.append(id, data)
			}
			id, data = "", ""
		case strings.HasPrefix(line, ":"):
			// Heartbeat comment.
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func (c *SSEClient) append(id, data string) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return // Skip malformed payloads.
	}

	evt := SSEEvent{
		ID:       id,
		Raw:      json.RawMessage(data),
		Parsed:   parsed,
		Received: time.Now(),
	}
	if t, ok := parsed["type"].(string); ok {
		evt.Type = t
	}

	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}
