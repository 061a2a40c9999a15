package repository

import (
	"context"

	"github.com/linkdive/linkdive/internal/domain"
	"gorm.io/gorm"
)

// SerpRepository stores observed keyword rankings for campaigns.
type SerpRepository struct {
	db *gorm.DB
}

// NewSerpRepository creates a new SerpRepository.
func NewSerpRepository(db *gorm.DB) *SerpRepository {
	return &SerpRepository{db: db}
}

// AddRankings inserts a batch of ranking observations for a campaign.
// Returns the number of rows inserted.
func (r *SerpRepository) AddRankings(ctx context.Context, campaignID uint, rankings []domain.SerpRanking) (int, error) {
	if len(rankings) == 0 {
		return 0, nil
	}
	for i := range rankings {
		rankings[i].ID = 0
		rankings[i].CampaignID = campaignID
	}
	if err := r.db.WithContext(ctx).Create(&rankings).Error; err != nil {
		return 0, err
	}
	return len(rankings), nil
}

// ListByCampaign retrieves rankings for a campaign, newest check first.
func (r *SerpRepository) ListByCampaign(ctx context.Context, campaignID uint) ([]domain.SerpRanking, error) {
	var rankings []domain.SerpRanking
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("check_date DESC").
		Find(&rankings).Error; err != nil {
		return nil, err
	}
	return rankings, nil
}
