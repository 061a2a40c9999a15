package domain

import "time"

// RateLimitState is the persisted token bucket state for one provider,
// so admission decisions survive process restarts.
type RateLimitState struct {
	Name          string    `gorm:"type:text;primaryKey" json:"name"`
	Tokens        float64   `gorm:"not null" json:"tokens"`
	Capacity      int       `gorm:"not null" json:"capacity"`
	RatePerMinute int       `gorm:"not null" json:"rate_per_minute"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for RateLimitState.
func (RateLimitState) TableName() string {
	return "rate_limit_state"
}
