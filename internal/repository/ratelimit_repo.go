package repository

import (
	"context"
	"errors"

	"github.com/linkdive/linkdive/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimitRepository persists per-provider token bucket state so limits
// survive process restarts.
type RateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository creates a new RateLimitRepository.
func NewRateLimitRepository(db *gorm.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Load retrieves persisted bucket state for a provider, or nil when no
// state has been recorded yet.
func (r *RateLimitRepository) Load(ctx context.Context, name string) (*domain.RateLimitState, error) {
	var state domain.RateLimitState
	if err := r.db.WithContext(ctx).First(&state, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// Save inserts or replaces bucket state keyed by provider name.
func (r *RateLimitRepository) Save(ctx context.Context, state *domain.RateLimitState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(state).Error
}
