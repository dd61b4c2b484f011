package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SubscriberCounter reports live event streams
type SubscriberCounter interface {
	SubscriberCount() int
}

// SystemHandler serves liveness and readiness probes
type SystemHandler struct {
	BaseHandler
	service     string
	version     string
	subscribers SubscriberCounter
	checks      []HealthCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(service, version string, subscribers SubscriberCounter, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{
		service:     service,
		version:     version,
		subscribers: subscribers,
		checks:      checks,
	}
}

// RegisterRoutes mounts the probes at the engine root
func (h *SystemHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

func (h *SystemHandler) response(status string) dto.HealthResponse {
	resp := dto.HealthResponse{
		Status:    status,
		Service:   h.service,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	}
	if h.subscribers != nil {
		resp.Subscribers = h.subscribers.SubscriberCount()
	}
	return resp
}

// Health godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.response("healthy"))
}

// Ready godoc
// @Summary      Readiness probe
// @Description  Runs every dependency check; 503 when any fails
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Failure      503 {object} dto.HealthResponse
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := h.response("ready")
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			resp.Checks[check.Name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[check.Name] = "ok"
	}
	c.JSON(status, resp)
}
