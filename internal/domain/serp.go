package domain

import "time"

// SerpRanking records one observed search ranking for a campaign keyword.
// Ranking URLs also feed the coverage pipeline as potential-coverage candidates.
type SerpRanking struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;index" json:"campaign_id"`
	Keyword    string    `gorm:"type:text;not null" json:"keyword"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	Position   int       `json:"position"`
	PageTitle  string    `gorm:"type:text" json:"page_title,omitempty"`
	CheckDate  time.Time `gorm:"type:date;not null" json:"check_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for SerpRanking.
func (SerpRanking) TableName() string {
	return "serp_rankings"
}
