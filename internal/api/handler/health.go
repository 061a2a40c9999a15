package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/metrics"
)

// HealthHandler handles health and metrics endpoints.
type HealthHandler struct {
	metrics *metrics.Registry
	runtime *flags.Runtime
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(reg *metrics.Registry, runtime *flags.Runtime) *HealthHandler {
	return &HealthHandler{metrics: reg, runtime: runtime}
}

// Health returns the health status of the service.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Metrics returns a snapshot of the pipeline's counters, gauges and
// timestamps, plus the last recorded failure per provider.
func (h *HealthHandler) Metrics(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	snapshot["provider_diagnostics"] = h.runtime.ProviderDiagnostics()
	c.JSON(http.StatusOK, snapshot)
}
