package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
)

// AdminHandler handles runtime configuration endpoints.
type AdminHandler struct {
	runtime *flags.Runtime
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - runtime: process-wide runtime flags.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(runtime *flags.Runtime) *AdminHandler {
	return &AdminHandler{runtime: runtime}
}

// RuntimeConfigRequest represents the runtime config update request.
type RuntimeConfigRequest struct {
	MockMode *bool `json:"mock_mode" binding:"required"`
}

// GetRuntimeConfig handles GET /api/v1/admin/runtime-config.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) GetRuntimeConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mock_mode":            h.runtime.MockMode(),
		"provider_diagnostics": h.runtime.ProviderDiagnostics(),
	})
}

// UpdateRuntimeConfig handles PUT /api/v1/admin/runtime-config.
// Switching mock mode takes effect on the next provider call; no restart
// is needed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) UpdateRuntimeConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var req RuntimeConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	h.runtime.SetMockMode(*req.MockMode)
	logger.CtxInfo(ctx, "Runtime config updated: mock_mode=%v, client_ip=%s", *req.MockMode, c.ClientIP())

	c.JSON(http.StatusOK, gin.H{
		"mock_mode": h.runtime.MockMode(),
	})
}
