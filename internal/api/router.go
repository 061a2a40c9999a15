package api

import (
	"github.com/gin-gonic/gin"

	"github.com/linkdive/linkdive/internal/api/handler"
	"github.com/linkdive/linkdive/internal/api/middleware"
	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/logger"
)

// Handlers groups the handlers the router wires up.
type Handlers struct {
	Health   *handler.HealthHandler
	Campaign *handler.CampaignHandler
	Task     *handler.TaskHandler
	Admin    *handler.AdminHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.ServerConfig, log *logger.Logger, h Handlers) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Health check
	r.GET("/health", h.Health.Health)
	r.GET("/health/metrics", h.Health.Metrics)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Campaigns and coverage
		v1.POST("/campaigns", h.Campaign.CreateCampaign)
		v1.GET("/campaigns", h.Campaign.ListCampaigns)
		v1.GET("/campaigns/:id", h.Campaign.GetCampaign)
		v1.POST("/campaigns/:id/analyze", h.Campaign.TriggerAnalysis)
		v1.GET("/campaigns/:id/coverage", h.Campaign.GetCoverage)
		v1.GET("/campaigns/:id/rankings", h.Campaign.GetRankings)

		// Background tasks
		v1.GET("/tasks", h.Task.ListTasks)
		v1.GET("/tasks/:id", h.Task.GetTask)
		v1.POST("/tasks/:id/cancel", h.Task.CancelTask)

		// Runtime administration
		v1.GET("/admin/runtime-config", h.Admin.GetRuntimeConfig)
		v1.PUT("/admin/runtime-config", h.Admin.UpdateRuntimeConfig)
	}

	return r
}
