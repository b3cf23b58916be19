// Mentor coach server. Provides the HTTP API, runs the queue worker pool,
// and dispatches coaching requests to the specialist agents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/api"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/cleanup"
	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/database"
	"github.com/learnloop/mentor/pkg/docs"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/llm"
	"github.com/learnloop/mentor/pkg/masking"
	"github.com/learnloop/mentor/pkg/orchestrator"
	"github.com/learnloop/mentor/pkg/progress"
	"github.com/learnloop/mentor/pkg/queue"
	"github.com/learnloop/mentor/pkg/routing"
	"github.com/learnloop/mentor/pkg/sandbox"
	"github.com/learnloop/mentor/pkg/services"
	"github.com/learnloop/mentor/pkg/specialist"
	"github.com/learnloop/mentor/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolvePodID determines the pod identifier for multi-replica coordination.
// Priority: POD_ID env > HOSTNAME env > "local"
func resolvePodID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

// loadConfig resolves the configuration. An explicitly given path must
// exist; the default mentor.yaml is optional and its absence means built-in
// defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultConfigFile); os.IsNotExist(err) {
		slog.Info("No configuration file found, using built-in defaults",
			"path", config.DefaultConfigFile)
		return config.DefaultConfig(), nil
	}
	return config.Load(config.DefaultConfigFile)
}

// databaseConfig maps the file-backed database section onto the client
// config. DB_* environment variables override these afterwards.
func databaseConfig(cfg config.DatabaseConfig) database.Config {
	return database.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Name,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// maskingConfig maps the masking section onto the masking service config.
func maskingConfig(cfg config.MaskingConfig) masking.Config {
	var patterns []masking.CustomPattern
	for _, p := range cfg.CustomPatterns {
		patterns = append(patterns, masking.CustomPattern{
			Name:        p.Name,
			Pattern:     p.Pattern,
			Replacement: p.Replacement,
			Description: p.Description,
		})
	}
	return masking.Config{
		Enabled:        cfg.Enabled,
		PatternGroup:   cfg.PatternGroup,
		CustomPatterns: patterns,
	}
}

func main() {
	configPath := flag.String("config",
		getEnv("MENTOR_CONFIG", ""),
		"Path to the configuration file (default mentor.yaml when present)")
	flag.Parse()

	// Load .env before anything reads the environment
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
		}
	} else {
		slog.Info("Loaded environment", "path", ".env")
	}

	podID := resolvePodID()

	slog.Info("Starting mentor",
		"version", version.Full(),
		"pod_id", podID)

	ctx := context.Background()

	// 1. Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Connect to PostgreSQL (runs migrations)
	dbCfg, err := database.ApplyEnvOverrides(databaseConfig(cfg.Database))
	if err != nil {
		slog.Error("Invalid database configuration", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Masking and domain services
	maskingService := masking.NewService(maskingConfig(cfg.Masking))
	userService := services.NewUserService(dbClient.DB())
	planService := services.NewPlanService(dbClient.DB())
	submissionService := services.NewSubmissionService(dbClient.DB())
	sessionService := services.NewCoachSessionService(dbClient.DB())
	eventService := services.NewEventService(dbClient.DB())
	slog.Info("Services initialized")

	// 4. Dispatch plane: breakers, router, agent registry, workflows
	breakers := breaker.NewManager(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout(),
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		DefaultTimeout:   cfg.Breaker.DefaultTimeout(),
		OnStateChange: func(name string, from, to breaker.State) {
			slog.Info("Circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	router, err := routing.NewRouter(routing.Config{
		MinConfidence: cfg.Router.MinConfidence,
		KeywordsFile:  cfg.Router.KeywordsFile,
	})
	if err != nil {
		slog.Error("Failed to build intent router", "error", err)
		os.Exit(1)
	}
	if cfg.Router.WatchKeywords {
		if err := router.Watch(ctx); err != nil {
			slog.Error("Failed to watch keywords file", "error", err)
			os.Exit(1)
		}
	}

	workflowRegistry, err := orchestrator.NewRegistry(cfg.Workflows.Enabled)
	if err != nil {
		slog.Error("Failed to build workflow registry", "error", err)
		os.Exit(1)
	}

	agents := agent.NewRegistry(breakers)
	orch := orchestrator.New(agents, router, workflowRegistry, breakers)

	// 5. Specialist agents
	sandboxClient := sandbox.NewClient(&cfg.Sandbox)
	docsService := docs.NewService(&cfg.Docs, docs.DefaultCatalog())
	progressEngine := progress.NewEngine(progress.Config{
		MinSubmissionsLowSuccess: cfg.Progress.MinSubmissionsLowSuccess,
	})

	// The generator degrades to its template catalog when no LLM is
	// deployed; the interface stays nil unless the section is enabled.
	var exerciseLLM specialist.ExerciseLLM
	if cfg.LLM.Enabled {
		exerciseLLM = llm.NewClient(&cfg.LLM)
		slog.Info("LLM exercise generation enabled", "url", cfg.LLM.URL)
	}

	specialists := []agent.Agent{
		specialist.NewProfile(userService),
		specialist.NewPlanner(planService),
		specialist.NewGenerator(exerciseLLM),
		specialist.NewReviewer(sandboxClient, submissionService),
		specialist.NewTracker(submissionService, planService, progressEngine),
		specialist.NewResources(docsService, planService),
	}
	for _, sp := range specialists {
		if err := agents.Register(sp); err != nil {
			slog.Error("Failed to register specialist agent", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Specialist agents registered", "count", len(specialists))

	// 6. Event streaming: publisher, subscribers, LISTEN connection
	eventPublisher := events.NewEventPublisher(dbClient.DB(), maskingService)
	catchupQuerier := events.NewEventServiceAdapter(eventService)
	subscribers := events.NewSubscriberManager(catchupQuerier)

	notifyListener := events.NewNotifyListener(dbClient.ConnString(), subscribers)
	if err := notifyListener.Start(ctx); err != nil {
		slog.Error("Failed to start NotifyListener", "error", err)
		os.Exit(1)
	}
	defer notifyListener.Stop(ctx)
	subscribers.SetListener(notifyListener)

	orch.SetEventPublisher(eventPublisher)
	slog.Info("Streaming infrastructure initialized")

	// 7. Worker pool for queued sessions (requeues this pod's leftovers)
	executor := queue.NewOrchestratorExecutor(orch)
	workerPool := queue.NewWorkerPool(podID, sessionService, eventService, &cfg.Queue, executor, eventPublisher)
	if err := workerPool.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	// 8. Retention cleanup
	cleanupService := cleanup.NewService(&cfg.Retention, sessionService, eventService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 9. HTTP server (non-blocking)
	httpServer := api.NewServer(&cfg.Server, dbClient.DB(), orch, sessionService, workerPool, subscribers)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Mentor started successfully",
		"pod_id", podID,
		"workers", cfg.Queue.WorkerCount)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown: drain workers first, then the HTTP server.
	// A worker finishing its current session needs at most SessionTimeout.
	workerShutdownCtx, workerCancel := context.WithTimeout(ctx, cfg.Queue.SessionTimeout)
	defer workerCancel()

	done := make(chan struct{})
	go func() {
		workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-workerShutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, incomplete sessions will be orphan-recovered")
	}

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
