package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/repository"
	"github.com/linkdive/linkdive/internal/scheduler"
	"github.com/linkdive/linkdive/internal/service"
)

type stubRunner struct{}

func (stubRunner) RunAnalysis(_ context.Context, campaignID uint, _ service.AnalysisDepth) (*service.AnalysisResult, error) {
	return &service.AnalysisResult{CampaignID: campaignID}, nil
}

func (stubRunner) RunKeywordCheck(_ context.Context, campaignID uint) (*service.AnalysisResult, error) {
	return &service.AnalysisResult{CampaignID: campaignID}, nil
}

// campaignFixture builds a handler over an in-memory database and a
// scheduler whose workers are never started, so submitted tasks stay
// pending.
func campaignFixture(t *testing.T) (*CampaignHandler, *repository.CampaignRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Campaign{}, &domain.CoverageRecord{}, &domain.SerpRanking{}))

	campaigns := repository.NewCampaignRepository(db)
	coverage := repository.NewCoverageRepository(db)
	serps := repository.NewSerpRepository(db)

	log := logger.New(&logger.Config{Level: "error", Format: "text"})
	registry := scheduler.NewTaskRegistry(nil, log)
	window, err := scheduler.NewWindow(&config.WindowConfig{Timezone: "UTC", StartHour: 0, EndHour: 24, Weekdays: []int{0, 1, 2, 3, 4, 5, 6}})
	require.NoError(t, err)
	sched := scheduler.New(&config.SchedulerConfig{Workers: 1, TickInterval: time.Hour}, window, registry, stubRunner{}, campaigns, metrics.NewRegistry(), log)

	return NewCampaignHandler(campaigns, coverage, serps, sched), campaigns
}

func TestTriggerAnalysisRejectsConcurrentRuns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, campaigns := campaignFixture(t)

	campaign := &domain.Campaign{ClientName: "Acme", CampaignName: "Widget Study", ClientDomain: "client.com"}
	require.NoError(t, campaigns.Create(context.Background(), campaign))

	router := gin.New()
	router.POST("/campaigns/:id/analyze", h.TriggerAnalysis)
	path := fmt.Sprintf("/campaigns/%d/analyze", campaign.ID)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, path, nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	// The first task is still in flight, so a second trigger must not
	// start another ingestion sharing the campaign's watermark.
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestTriggerAnalysisUnknownCampaign(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := campaignFixture(t)

	router := gin.New()
	router.POST("/campaigns/:id/analyze", h.TriggerAnalysis)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/campaigns/999/analyze", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
