// Package api is the HTTP surface of the coaching runtime: a gin server
// exposing the synchronous coach endpoint, the async session queue, progress
// snapshots, the SSE event stream, and operator introspection (health,
// intents). Handlers translate between HTTP and the orchestrator's
// Context/Payload/Result model; dispatch outcomes map onto status codes in
// one place (errors.go).
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/orchestrator"
	"github.com/learnloop/mentor/pkg/queue"
)

// Coach dispatches one request through the orchestrator's protection
// envelope and reports coordination health. *orchestrator.Orchestrator
// implements it.
type Coach interface {
	Execute(ctx context.Context, cctx *models.Context, payload *models.Payload) *models.Result
	Health() orchestrator.Health
}

// SessionStore is the subset of the coach session service used by the HTTP
// handlers. *services.CoachSessionService implements it.
type SessionStore interface {
	CreateSession(ctx context.Context, req models.CreateCoachSessionRequest) (*models.CoachSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.CoachSession, error)
	ListSessions(ctx context.Context, filters models.CoachSessionFilters) (*models.CoachSessionListResponse, error)
	CancelPendingSession(ctx context.Context, sessionID string) (bool, error)
}

// Pool is the worker pool as the handlers see it: cancellation of sessions
// running on this pod and queue health. *queue.WorkerPool implements it.
type Pool interface {
	CancelSession(sessionID string) bool
	Health() *queue.PoolHealth
}

// Server is the HTTP server. All collaborator fields may be nil in tests;
// production wiring (cmd/mentor) supplies every one of them.
type Server struct {
	cfg         *config.ServerConfig
	db          *sql.DB
	coach       Coach
	store       SessionStore
	pool        Pool
	subscribers *events.SubscriberManager

	engine  *gin.Engine
	httpSrv *http.Server
	logger  *slog.Logger
}

// NewServer creates the API server and registers all routes. An empty
// cfg.AuthToken leaves the mutating routes unauthenticated; that is loudly
// logged so it never happens unnoticed in a real deployment.
func NewServer(cfg *config.ServerConfig, db *sql.DB, coach Coach, store SessionStore, pool Pool, subscribers *events.SubscriberManager) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		coach:       coach,
		store:       store,
		pool:        pool,
		subscribers: subscribers,
		engine:      gin.New(),
		logger:      slog.With("component", "api"),
	}

	if cfg.AuthToken == "" {
		s.logger.Warn("No auth token configured, mutating endpoints are unauthenticated")
	}

	s.setupRoutes()

	s.httpSrv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(correlationID())
	s.engine.Use(requestLogger(s.logger))
	s.engine.Use(securityHeaders())
	if len(s.cfg.AllowedOrigins) > 0 {
		s.engine.Use(corsMiddleware(s.cfg.AllowedOrigins))
	}

	// Liveness probe for orchestration platforms; no dependency probes.
	s.engine.GET("/health", s.livenessHandler)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/health", s.healthHandler)
	v1.GET("/intents", s.intentsHandler)
	v1.GET("/events/stream", s.eventsStreamHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.GET("/users/:id/progress", s.progressHandler)

	mutating := v1.Group("")
	mutating.Use(tokenAuth(s.cfg.AuthToken))
	mutating.POST("/coach", s.coachHandler)
	mutating.POST("/sessions", s.createSessionHandler)
	mutating.POST("/sessions/:id/cancel", s.cancelSessionHandler)
}

// Start begins serving on addr. It blocks until the listener fails or
// Shutdown is called, mirroring http.Server.ListenAndServe.
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	return s.httpSrv.ListenAndServe()
}

// StartWithListener serves on an already-bound listener. Tests use it to bind
// port 0 and read the real address back before the first request.
func (s *Server) StartWithListener(ln net.Listener) error {
	return s.httpSrv.Serve(ln)
}

// Shutdown stops the server gracefully, waiting for in-flight requests up to
// the context deadline. Open SSE streams end when their request contexts are
// cancelled by the closing listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
