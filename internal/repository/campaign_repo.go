package repository

import (
	"context"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
	"gorm.io/gorm"
)

// CampaignRepository handles campaign data operations.
type CampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository creates a new CampaignRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CampaignRepository: repository instance bound to db.
func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create inserts a new campaign record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - campaign: campaign record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *CampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

// GetByID retrieves a campaign by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: campaign ID.
// Returns:
//   - *domain.Campaign: campaign record if found.
//   - error: non-nil if lookup fails.
func (r *CampaignRepository) GetByID(ctx context.Context, id uint) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListByStatus retrieves campaigns with the given monitoring status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: monitoring status to filter by.
// Returns:
//   - []domain.Campaign: matching campaign records.
//   - error: non-nil if the query fails.
func (r *CampaignRepository) ListByStatus(ctx context.Context, status domain.MonitoringStatus) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	if err := r.db.WithContext(ctx).
		Where("monitoring_status = ?", status).
		Order("id").
		Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// List retrieves all campaigns.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.Campaign: all campaign records.
//   - error: non-nil if the query fails.
func (r *CampaignRepository) List(ctx context.Context) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	if err := r.db.WithContext(ctx).Order("id").Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// UpdateWatermark advances a campaign's last-fetch watermark.
// The watermark is advanced unconditionally after every ingestion run,
// even when no new coverage was discovered.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: campaign ID.
//   - at: new watermark timestamp.
// Returns:
//   - error: non-nil if the update fails.
func (r *CampaignRepository) UpdateWatermark(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_fetch_at": at,
			"updated_at":    time.Now(),
		}).Error
}

// UpdateMonitoringStatus sets a campaign's monitoring status. Pausing
// also records when the pause happened.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: campaign ID.
//   - status: new monitoring status.
// Returns:
//   - error: non-nil if the update fails.
func (r *CampaignRepository) UpdateMonitoringStatus(ctx context.Context, id uint, status domain.MonitoringStatus) error {
	updates := map[string]interface{}{
		"monitoring_status": status,
		"updated_at":        time.Now(),
	}
	if status == domain.MonitoringPaused {
		updates["auto_pause_date"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&domain.Campaign{}).
		Where("id = ?", id).
		Updates(updates).Error
}
