package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/linkdive/linkdive/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Campaign{},
		&domain.CoverageRecord{},
		&domain.SerpRanking{},
		&domain.BackgroundTask{},
		&domain.RateLimitState{},
	))
	return db
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func rating(v int) *int { return &v }

func score(v float64) *float64 { return &v }

func TestUpsertBatchInsertsAndCountsNewRows(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	inserted, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{
		{URL: "https://a.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoveragePotential},
		{URL: "https://b.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoverageVerified},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	records, err := repo.ListByCampaign(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	batch := []domain.CoverageRecord{
		{URL: "https://a.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoveragePotential, FirstSeen: day(2026, 1, 10), LastSeen: day(2026, 1, 10)},
	}
	inserted, err := repo.UpsertBatch(ctx, 1, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = repo.UpsertBatch(ctx, 1, batch)
	require.NoError(t, err)
	assert.Zero(t, inserted, "replay of the same batch must report no new rows")

	records, err := repo.ListByCampaign(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUpsertBatchSameURLDifferentProviderInsertsBoth(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	inserted, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{
		{URL: "https://a.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoveragePotential},
		{URL: "https://a.example.com/p", Provider: "dataforseo", CoverageStatus: domain.CoveragePotential},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted, "provider is part of the uniqueness key")
}

func TestUpsertBatchMergeRules(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	// First discovery: potential, seen 2024-01-10, with scores.
	_, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus:  domain.CoveragePotential,
		FirstSeen:       day(2024, 1, 10),
		LastSeen:        day(2024, 1, 10),
		DomainRating:    rating(40),
		ConfidenceScore: score(0.75),
	}})
	require.NoError(t, err)

	// Rediscovery: verified, earlier first-seen, later last-seen, and a
	// different rating that must not overwrite the stored one.
	inserted, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus:  domain.CoverageVerified,
		FirstSeen:       day(2024, 1, 5),
		LastSeen:        day(2024, 2, 1),
		DomainRating:    rating(60),
		ConfidenceScore: score(0.95),
		PageTitle:       "Recovered title",
	}})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	records, err := repo.ListByCampaign(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]

	assert.Equal(t, domain.CoverageVerified, got.CoverageStatus)
	assert.Equal(t, "2024-01-05", got.FirstSeen.Format("2006-01-02"))
	assert.Equal(t, "2024-02-01", got.LastSeen.Format("2006-01-02"))
	require.NotNil(t, got.DomainRating)
	assert.Equal(t, 40, *got.DomainRating, "rating is first-writer-wins")
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.75, *got.ConfidenceScore, 0.001, "confidence is first-writer-wins")
	assert.Equal(t, "Recovered title", got.PageTitle, "empty title is filled on merge")
}

func TestUpsertBatchStatusNeverDowngrades(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus: domain.CoverageVerified,
	}})
	require.NoError(t, err)

	_, err = repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus: domain.CoveragePotential,
	}})
	require.NoError(t, err)

	records, err := repo.ListByCampaign(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.CoverageVerified, records[0].CoverageStatus)
}

func TestUpsertBatchSeenDatesOnlyWiden(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus: domain.CoveragePotential,
		FirstSeen:      day(2026, 1, 10),
		LastSeen:       day(2026, 3, 1),
	}})
	require.NoError(t, err)

	// A narrower window must not shrink the stored one.
	_, err = repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{{
		URL: "https://a.example.com/p", Provider: "ahrefs",
		CoverageStatus: domain.CoveragePotential,
		FirstSeen:      day(2026, 2, 1),
		LastSeen:       day(2026, 2, 15),
	}})
	require.NoError(t, err)

	records, err := repo.ListByCampaign(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-01-10", records[0].FirstSeen.Format("2006-01-02"))
	assert.Equal(t, "2026-03-01", records[0].LastSeen.Format("2006-01-02"))
}

func TestCountByStatus(t *testing.T) {
	repo := NewCoverageRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, 1, []domain.CoverageRecord{
		{URL: "https://a.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoverageVerified},
		{URL: "https://b.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoveragePotential},
		{URL: "https://c.example.com/p", Provider: "ahrefs", CoverageStatus: domain.CoveragePotential},
	})
	require.NoError(t, err)

	verified, err := repo.CountByStatus(ctx, 1, domain.CoverageVerified)
	require.NoError(t, err)
	assert.EqualValues(t, 1, verified)

	potential, err := repo.CountByStatus(ctx, 1, domain.CoveragePotential)
	require.NoError(t, err)
	assert.EqualValues(t, 2, potential)
}

func TestCampaignWatermarkAdvances(t *testing.T) {
	db := testDB(t)
	campaigns := NewCampaignRepository(db)
	ctx := context.Background()

	campaign := &domain.Campaign{ClientName: "Acme", CampaignName: "Widget Study", ClientDomain: "client.com"}
	require.NoError(t, campaigns.Create(ctx, campaign))

	mark := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, campaigns.UpdateWatermark(ctx, campaign.ID, mark))

	got, err := campaigns.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastFetchAt)
	assert.True(t, got.LastFetchAt.Equal(mark))
}
