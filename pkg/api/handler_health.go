package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/database"
	"github.com/learnloop/mentor/pkg/version"
)

// healthTimeout bounds the dependency probes behind the readiness endpoint.
const healthTimeout = 5 * time.Second

// livenessHandler handles GET /health: process-is-up, no dependency probes.
func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
}

// healthHandler handles GET /api/v1/health: the full readiness report.
// Orchestrator state (registered agents, workflows, breaker and router
// stats) is always local; the database and worker pool probes run only when
// those dependencies are wired. A dead database makes the service unhealthy
// (503); a struggling worker pool only degrades it, since the synchronous
// coach path does not need workers.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := &HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
		Checks:  make(map[string]HealthCheck),
	}

	if s.coach != nil {
		h := s.coach.Health()
		resp.Orchestrator = &h
		resp.Checks["orchestrator"] = HealthCheck{Status: "healthy"}
	}

	if s.db != nil {
		dbHealth, err := database.Health(ctx, s.db)
		resp.Database = dbHealth
		if err != nil {
			resp.Status = "unhealthy"
			resp.Checks["database"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			resp.Checks["database"] = HealthCheck{Status: "healthy"}
		}
	}

	if s.pool != nil {
		poolHealth := s.pool.Health()
		resp.WorkerPool = poolHealth
		if poolHealth.IsHealthy {
			resp.Checks["worker_pool"] = HealthCheck{Status: "healthy"}
		} else {
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
			resp.Checks["worker_pool"] = HealthCheck{Status: "unhealthy", Message: poolHealth.DBError}
		}
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
