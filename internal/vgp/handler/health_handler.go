package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
)

// HealthHandler 健康检查与指标
type HealthHandler struct {
	repos   *repository.Repositories
	metrics *metrics.Metrics
}

func NewHealthHandler(repos *repository.Repositories, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{repos: repos, metrics: m}
}

// Live GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready GET /health/ready; fails while the database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.repos.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics GET /metrics
func (h *HealthHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
