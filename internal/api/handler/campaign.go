package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/repository"
	"github.com/linkdive/linkdive/internal/scheduler"
	"github.com/linkdive/linkdive/internal/service"
)

// CampaignHandler handles campaign and coverage endpoints.
type CampaignHandler struct {
	campaigns *repository.CampaignRepository
	coverage  *repository.CoverageRepository
	serps     *repository.SerpRepository
	scheduler *scheduler.Scheduler
}

// NewCampaignHandler creates a new campaign handler.
// Parameters:
//   - campaigns: campaign repository.
//   - coverage: coverage repository.
//   - serps: keyword ranking repository.
//   - sched: scheduler used to run analysis tasks.
// Returns:
//   - *CampaignHandler: initialized handler.
func NewCampaignHandler(campaigns *repository.CampaignRepository, coverage *repository.CoverageRepository, serps *repository.SerpRepository, sched *scheduler.Scheduler) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		coverage:  coverage,
		serps:     serps,
		scheduler: sched,
	}
}

// CreateCampaignRequest represents the campaign creation request.
type CreateCampaignRequest struct {
	ClientName           string   `json:"client_name" binding:"required"`
	CampaignName         string   `json:"campaign_name" binding:"required"`
	ClientDomain         string   `json:"client_domain" binding:"required"`
	CampaignURL          string   `json:"campaign_url"`
	LaunchDate           string   `json:"launch_date"` // YYYY-MM-DD
	SerpKeywords         []string `json:"serp_keywords"`
	VerificationKeywords []string `json:"verification_keywords"`
	BlacklistDomains     []string `json:"blacklist_domains"`
}

// AnalyzeRequest represents the manual analysis trigger request.
type AnalyzeRequest struct {
	Depth string `json:"depth" binding:"omitempty,oneof=quick standard deep"`
}

// CreateCampaign handles POST /api/v1/campaigns.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	campaign := &domain.Campaign{
		ClientName:           req.ClientName,
		CampaignName:         req.CampaignName,
		ClientDomain:         req.ClientDomain,
		CampaignURL:          req.CampaignURL,
		MonitoringStatus:     domain.MonitoringLive,
		SerpKeywords:         req.SerpKeywords,
		VerificationKeywords: req.VerificationKeywords,
		BlacklistDomains:     req.BlacklistDomains,
	}
	if req.LaunchDate != "" {
		launch, err := time.Parse("2006-01-02", req.LaunchDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid launch_date, expected YYYY-MM-DD"})
			return
		}
		campaign.LaunchDate = &launch
	}

	if err := h.campaigns.Create(ctx, campaign); err != nil {
		logger.CtxError(ctx, "Failed to create campaign: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign"})
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// ListCampaigns handles GET /api/v1/campaigns.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	ctx := c.Request.Context()

	var campaigns []domain.Campaign
	var err error
	if status := c.Query("status"); status != "" {
		campaigns, err = h.campaigns.ListByStatus(ctx, domain.MonitoringStatus(status))
	} else {
		campaigns, err = h.campaigns.List(ctx)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list campaigns"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns": campaigns,
		"total":     len(campaigns),
	})
}

// GetCampaign handles GET /api/v1/campaigns/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := h.campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.campaigns.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// TriggerAnalysis handles POST /api/v1/campaigns/:id/analyze.
// The analysis runs as a background task; the response carries the task
// to poll.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) TriggerAnalysis(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.campaignID(c)
	if !ok {
		return
	}

	// Body is optional; an empty body means default depth.
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	depth := service.AnalysisDepth(req.Depth)
	if depth == "" {
		depth = service.DepthStandard
	}

	if _, err := h.campaigns.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	// Concurrent ingestions for one campaign would race on its watermark.
	if h.scheduler.InFlight(domain.TaskKindAnalysis, id) {
		c.JSON(http.StatusConflict, gin.H{"error": "An analysis is already in progress for this campaign"})
		return
	}

	task, err := h.scheduler.Submit(domain.TaskKindAnalysis, id, depth)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	logger.CtxInfo(ctx, "Queued analysis task: task_id=%s, campaign_id=%d, depth=%s", task.ID, id, depth)
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
		"depth":   depth,
	})
}

// GetCoverage handles GET /api/v1/campaigns/:id/coverage.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) GetCoverage(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.campaignID(c)
	if !ok {
		return
	}

	records, err := h.coverage.ListByCampaign(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load coverage"})
		return
	}

	verified, err := h.coverage.CountByStatus(ctx, id, domain.CoverageVerified)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count coverage"})
		return
	}
	potential, err := h.coverage.CountByStatus(ctx, id, domain.CoveragePotential)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count coverage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":         records,
		"total":           len(records),
		"verified_count":  verified,
		"potential_count": potential,
	})
}

// GetRankings handles GET /api/v1/campaigns/:id/rankings.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CampaignHandler) GetRankings(c *gin.Context) {
	id, ok := h.campaignID(c)
	if !ok {
		return
	}

	rankings, err := h.serps.ListByCampaign(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rankings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rankings": rankings,
		"total":    len(rankings),
	})
}

func (h *CampaignHandler) campaignID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return 0, false
	}
	return uint(id), true
}
