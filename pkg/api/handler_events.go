package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/events"
)

// sseHeartbeatInterval is how often an idle stream emits a comment line so
// intermediaries don't reap the connection.
const sseHeartbeatInterval = 30 * time.Second

// eventsStreamHandler handles GET /api/v1/events/stream: an SSE stream of
// session events. Without a session_id query parameter the stream carries
// the global sessions channel; with one it carries that session's channel.
// Reconnecting clients resume from the Last-Event-ID header (or the
// last_event_id query parameter for clients that cannot set headers).
func (s *Server) eventsStreamHandler(c *gin.Context) {
	if s.subscribers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming is not available"})
		return
	}

	channel := events.GlobalSessionsChannel
	if sessionID := c.Query("session_id"); sessionID != "" {
		channel = events.SessionChannel(sessionID)
	}

	var lastEventID int64
	raw := c.GetHeader("Last-Event-ID")
	if raw == "" {
		raw = c.Query("last_event_id")
	}
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid Last-Event-ID"})
			return
		}
		lastEventID = id
	}

	sub, err := s.subscribers.Subscribe(c.Request.Context(), channel, lastEventID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscription failed"})
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			writeSSEEvent(c.Writer, event)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		}
	}
}

// writeSSEEvent writes one payload in SSE wire format. The id line carries
// the payload's db_event_id so clients can resume from it; transient events
// have none and are delivered without an id.
func writeSSEEvent(w io.Writer, payload []byte) {
	var envelope struct {
		DBEventID int64 `json:"db_event_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.DBEventID > 0 {
		fmt.Fprintf(w, "id: %d\n", envelope.DBEventID)
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
