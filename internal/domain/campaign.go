package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MonitoringStatus represents whether a campaign is actively monitored.
// Values include MonitoringLive and MonitoringPaused.
type MonitoringStatus string

const (
	MonitoringLive   MonitoringStatus = "Live"
	MonitoringPaused MonitoringStatus = "Paused"
)

// StringArray is a custom type for storing string lists as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Campaign represents a PR campaign whose web coverage is being tracked.
// The pipeline reads most fields; it only writes LastFetchAt (the
// incremental watermark) and MonitoringStatus (auto-pause maintenance).
type Campaign struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	ClientName           string           `gorm:"type:text;not null" json:"client_name"`
	CampaignName         string           `gorm:"type:text;not null" json:"campaign_name"`
	ClientDomain         string           `gorm:"type:text;not null;index" json:"client_domain"`
	CampaignURL          string           `gorm:"type:text" json:"campaign_url,omitempty"`
	LaunchDate           *time.Time       `gorm:"type:date" json:"launch_date,omitempty"`
	MonitoringStatus     MonitoringStatus `gorm:"type:text;default:Live;index" json:"monitoring_status"`
	AutoPauseDate        *time.Time       `gorm:"type:date" json:"auto_pause_date,omitempty"`
	SerpKeywords         StringArray      `gorm:"type:text" json:"serp_keywords"`
	VerificationKeywords StringArray      `gorm:"type:text" json:"verification_keywords"`
	BlacklistDomains     StringArray      `gorm:"type:text" json:"blacklist_domains"`
	LastFetchAt          *time.Time       `json:"last_fetch_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Campaign.
func (Campaign) TableName() string {
	return "campaigns"
}

// HasKeywords reports whether the campaign has any discovery keywords configured.
func (c *Campaign) HasKeywords() bool {
	return len(c.SerpKeywords) > 0
}
