package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Pinger is anything that can report its own liveness.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports the service's dependencies.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	version string
}

func NewHealthHandler(db, redis Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, version: version}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)
	check(c.Request.Context(), services, "database", h.db)
	check(c.Request.Context(), services, "redis", h.redis)

	status := "healthy"
	for _, s := range services {
		if s != "healthy" {
			status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	})
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func check(ctx context.Context, services map[string]string, name string, p Pinger) {
	if p == nil {
		services[name] = "unhealthy: not configured"
		return
	}
	if err := p.HealthCheck(ctx); err != nil {
		services[name] = "unhealthy: " + err.Error()
		return
	}
	services[name] = "healthy"
}
