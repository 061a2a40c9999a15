package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CoverageRepository reconciles classified candidates against stored
// coverage records. The uniqueness key is (campaign_id, url, provider);
// rediscoveries merge into the existing row under these rules:
//
//   - first_seen only moves backward, last_seen only moves forward
//   - coverage_status upgrades potential -> verified and never downgrades
//   - domain_rating, confidence_score and relevance_score are
//     first-writer-wins: a later provider never overwrites a present value
//   - link_destination keeps the existing value once set
//
// Applying the same batch twice yields the same final state and a zero
// inserted count on the second pass.
type CoverageRepository struct {
	db *gorm.DB

	// Serializes upserts per campaign so concurrent workers cannot
	// interleave read-modify-write cycles on the same keys. Unrelated
	// campaigns proceed in parallel.
	campaignLocks sync.Map
}

// NewCoverageRepository creates a new CoverageRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CoverageRepository: repository instance bound to db.
func NewCoverageRepository(db *gorm.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

func (r *CoverageRepository) lockCampaign(campaignID uint) func() {
	v, _ := r.campaignLocks.LoadOrStore(campaignID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// UpsertBatch reconciles a batch of classified records for one campaign.
// Each record is either inserted (counted) or merged into the existing row
// for its key. The whole batch runs in one transaction; a retry after a
// transient failure cannot double-count inserts because the conditional
// insert reports zero affected rows for keys that already exist.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - campaignID: owning campaign.
//   - records: classified records to reconcile.
// Returns:
//   - int: number of newly inserted rows (not total rows touched).
//   - error: non-nil if the transaction fails.
func (r *CoverageRepository) UpsertBatch(ctx context.Context, campaignID uint, records []domain.CoverageRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	unlock := r.lockCampaign(campaignID)
	defer unlock()

	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := records[i]
			rec.ID = 0
			rec.CampaignID = campaignID

			// Conditional insert on the uniqueness key. RowsAffected == 0
			// means the key already exists and we fall through to a merge.
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "campaign_id"}, {Name: "url"}, {Name: "provider"},
				},
				DoNothing: true,
			}).Create(&rec)
			if res.Error != nil {
				return fmt.Errorf("failed to insert coverage record: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				inserted++
				continue
			}

			var existing domain.CoverageRecord
			if err := tx.First(&existing,
				"campaign_id = ? AND url = ? AND provider = ?",
				campaignID, rec.URL, rec.Provider).Error; err != nil {
				return fmt.Errorf("failed to load coverage record for merge: %w", err)
			}

			updates := mergeUpdates(&existing, &rec)
			if err := tx.Model(&domain.CoverageRecord{}).
				Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to merge coverage record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// mergeUpdates computes the column updates for merging an incoming record
// into an existing one. The update timestamp is always refreshed.
func mergeUpdates(existing, incoming *domain.CoverageRecord) map[string]interface{} {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}

	if incoming.FirstSeen != nil &&
		(existing.FirstSeen == nil || incoming.FirstSeen.Before(*existing.FirstSeen)) {
		updates["first_seen"] = *incoming.FirstSeen
	}
	if incoming.LastSeen != nil &&
		(existing.LastSeen == nil || incoming.LastSeen.After(*existing.LastSeen)) {
		updates["last_seen"] = *incoming.LastSeen
	}

	// Upgrade-only: verified is sticky regardless of later verdicts.
	if incoming.CoverageStatus == domain.CoverageVerified &&
		existing.CoverageStatus != domain.CoverageVerified {
		updates["coverage_status"] = domain.CoverageVerified
	}

	// First-writer-wins fields: keep existing values, fill gaps only.
	if existing.DomainRating == nil && incoming.DomainRating != nil {
		updates["domain_rating"] = *incoming.DomainRating
	}
	if existing.ConfidenceScore == nil && incoming.ConfidenceScore != nil {
		updates["confidence_score"] = *incoming.ConfidenceScore
	}
	if existing.RelevanceScore == nil && incoming.RelevanceScore != nil {
		updates["relevance_score"] = *incoming.RelevanceScore
	}
	if existing.LinkDestination == "" && incoming.LinkDestination != "" {
		updates["link_destination"] = incoming.LinkDestination
	}
	if existing.PageTitle == "" && incoming.PageTitle != "" {
		updates["page_title"] = incoming.PageTitle
	}

	return updates
}

// ListByCampaign retrieves all coverage records for a campaign.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - campaignID: campaign to list records for.
// Returns:
//   - []domain.CoverageRecord: stored records, newest first.
//   - error: non-nil if the query fails.
func (r *CoverageRepository) ListByCampaign(ctx context.Context, campaignID uint) ([]domain.CoverageRecord, error) {
	var records []domain.CoverageRecord
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByStatus counts a campaign's records by coverage status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - campaignID: campaign to count records for.
//   - status: coverage status to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *CoverageRepository) CountByStatus(ctx context.Context, campaignID uint, status domain.CoverageStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CoverageRecord{}).
		Where("campaign_id = ? AND coverage_status = ?", campaignID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
