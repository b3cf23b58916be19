// Package e2e provides end-to-end test infrastructure for the mentor
// coaching runtime. A TestApp boots the full production wiring against a
// real PostgreSQL schema: domain services, orchestrator with all six
// specialist agents, NOTIFY/LISTEN streaming, the queue worker pool, and
// the HTTP API on a random port. No sandbox or LLM is deployed, so the
// reviewer grades statically and the generator serves its template
// catalog, which is exactly the degraded production path.
package e2e

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/api"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/database"
	"github.com/learnloop/mentor/pkg/docs"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/orchestrator"
	"github.com/learnloop/mentor/pkg/progress"
	"github.com/learnloop/mentor/pkg/queue"
	"github.com/learnloop/mentor/pkg/routing"
	"github.com/learnloop/mentor/pkg/services"
	"github.com/learnloop/mentor/pkg/specialist"
	testdb "github.com/learnloop/mentor/test/database"
)

// TestApp boots a complete mentor instance for e2e testing.
type TestApp struct {
	Config   *config.Config
	DBClient *database.Client

	// Domain services, exposed for direct persistence assertions.
	Users       *services.UserService
	Plans       *services.PlanService
	Submissions *services.SubmissionService
	Sessions    *services.CoachSessionService
	Events      *services.EventService

	// Real infrastructure
	Orchestrator   *orchestrator.Orchestrator
	EventPublisher *events.EventPublisher
	Subscribers    *events.SubscriberManager
	NotifyListener *events.NotifyListener
	WorkerPool     *queue.WorkerPool
	Server         *api.Server

	// Runtime
	BaseURL string // e.g. "http://127.0.0.1:54321"

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	cfg            *config.Config
	workerCount    int
	sessionTimeout time.Duration
	dbClient       *database.Client // injected DB client (for multi-replica tests)
	podID          string           // custom pod ID (for multi-replica tests)
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithConfig sets a custom config.
func WithConfig(cfg *config.Config) TestAppOption {
	return func(c *testAppConfig) { c.cfg = cfg }
}

// WithWorkerCount sets the number of worker pool goroutines. Zero workers
// gives an API-only replica that never claims sessions.
func WithWorkerCount(n int) TestAppOption {
	return func(c *testAppConfig) { c.workerCount = n }
}

// WithSessionTimeout sets the timeout for queued session execution.
func WithSessionTimeout(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.sessionTimeout = d }
}

// WithDBClient injects a pre-created database client, skipping the default
// per-test schema creation. Used for multi-replica tests where multiple
// TestApp instances share the same database schema.
func WithDBClient(client *database.Client) TestAppOption {
	return func(c *testAppConfig) { c.dbClient = client }
}

// WithPodID overrides the auto-generated pod ID. Required for multi-replica
// tests so each replica gets a distinct identity for worker claiming and
// orphan detection.
func WithPodID(id string) TestAppOption {
	return func(c *testAppConfig) { c.podID = id }
}

// NewTestApp creates and starts a full mentor test instance.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	// Apply options.
	tc := &testAppConfig{
		workerCount:    1,
		sessionTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(tc)
	}

	if tc.cfg == nil {
		tc.cfg = config.DefaultConfig()
	}
	tc.cfg.Queue.WorkerCount = tc.workerCount
	tc.cfg.Queue.SessionTimeout = tc.sessionTimeout
	tc.cfg.Queue.OrphanCheckInterval = time.Minute

	// 1. Database — per-test schema unless a shared client was injected.
	dbClient := tc.dbClient
	if dbClient == nil {
		dbClient = testdb.NewTestClient(t)
	}
	db := dbClient.DB()

	// 2. Domain services.
	userService := services.NewUserService(db)
	planService := services.NewPlanService(db)
	submissionService := services.NewSubmissionService(db)
	sessionService := services.NewCoachSessionService(db)
	eventService := services.NewEventService(db)

	// 3. Streaming — real publisher, fan-out manager, and a dedicated LISTEN
	// connection on the schema-scoped connection string.
	eventPublisher := events.NewEventPublisher(db, nil)
	subscribers := events.NewSubscriberManager(events.NewEventServiceAdapter(eventService))
	notifyListener := events.NewNotifyListener(dbClient.ConnString(), subscribers)
	ctx := context.Background()
	require.NoError(t, notifyListener.Start(ctx))
	subscribers.SetListener(notifyListener)

	// 4. Coordination layer: breakers, router, workflow catalog, agents.
	breakers := breaker.NewManager(breaker.Config{})
	router, err := routing.NewRouter(routing.Config{})
	require.NoError(t, err)
	workflows, err := orchestrator.NewRegistry(tc.cfg.Workflows.Enabled)
	require.NoError(t, err)
	agents := agent.NewRegistry(breakers)
	orch := orchestrator.New(agents, router, workflows, breakers)
	orch.SetEventPublisher(eventPublisher)

	// 5. Specialists. No sandbox runner and no LLM: the reviewer falls back
	// to static review and the generator to its template catalog.
	progressEngine := progress.NewEngine(progress.Config{})
	docsService := docs.NewService(&tc.cfg.Docs, docs.DefaultCatalog())
	specialists := []agent.Agent{
		specialist.NewProfile(userService),
		specialist.NewPlanner(planService),
		specialist.NewGenerator(nil),
		specialist.NewReviewer(nil, submissionService),
		specialist.NewTracker(submissionService, planService, progressEngine),
		specialist.NewResources(docsService, planService),
	}
	for _, a := range specialists {
		require.NoError(t, agents.Register(a))
	}

	// 6. Worker pool.
	podID := tc.podID
	if podID == "" {
		podID = fmt.Sprintf("e2e-test-%s", t.Name())
	}
	executor := queue.NewOrchestratorExecutor(orch)
	workerPool := queue.NewWorkerPool(podID, sessionService, eventService, &tc.cfg.Queue, executor, eventPublisher)
	require.NoError(t, workerPool.Start(ctx))

	// 7. HTTP server on a random port.
	server := api.NewServer(&tc.cfg.Server, db, orch, sessionService, workerPool, subscribers)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = server.StartWithListener(ln)
	}()

	app := &TestApp{
		Config:         tc.cfg,
		DBClient:       dbClient,
		Users:          userService,
		Plans:          planService,
		Submissions:    submissionService,
		Sessions:       sessionService,
		Events:         eventService,
		Orchestrator:   orch,
		EventPublisher: eventPublisher,
		Subscribers:    subscribers,
		NotifyListener: notifyListener,
		WorkerPool:     workerPool,
		Server:         server,
		BaseURL:        fmt.Sprintf("http://%s", ln.Addr().String()),
		t:              t,
	}

	// Register cleanup in reverse-creation order.
	t.Cleanup(func() {
		workerPool.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		notifyListener.Stop(context.Background())
		// DB cleanup handled by testdb.NewTestClient / NewSharedTestDB.
	})

	return app
}
