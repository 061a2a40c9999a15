package domain

import "time"

// CoverageStatus represents the classification verdict stored for a coverage record.
// Values include CoverageVerified and CoveragePotential. CoverageExcluded is a
// classification outcome only and is never persisted.
type CoverageStatus string

const (
	CoverageVerified  CoverageStatus = "verified"
	CoveragePotential CoverageStatus = "potential"
	CoverageExcluded  CoverageStatus = "excluded"
)

// LinkDestination classifies where on the client's site a discovered link points.
type LinkDestination string

const (
	DestinationBlogPage LinkDestination = "blog_page"
	DestinationHomepage LinkDestination = "homepage"
	DestinationOther    LinkDestination = "other"
)

// CoverageRecord is the durable record of one discovered page linking to a
// campaign's tracked domain or URL. Uniqueness is (campaign_id, url,
// provider): rediscoveries of the same page from the same provider merge
// into the existing row instead of inserting a new one.
type CoverageRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CampaignID      uint            `gorm:"not null;uniqueIndex:idx_coverage_key;index:idx_coverage_campaign_status" json:"campaign_id"`
	URL             string          `gorm:"type:text;not null;uniqueIndex:idx_coverage_key" json:"url"`
	Provider        string          `gorm:"type:text;not null;uniqueIndex:idx_coverage_key" json:"provider"`
	PageTitle       string          `gorm:"type:text" json:"page_title,omitempty"`
	FirstSeen       *time.Time      `gorm:"type:date" json:"first_seen,omitempty"`
	LastSeen        *time.Time      `gorm:"type:date" json:"last_seen,omitempty"`
	CoverageStatus  CoverageStatus  `gorm:"type:text;not null;index:idx_coverage_campaign_status" json:"coverage_status"`
	DomainRating    *int            `json:"domain_rating,omitempty"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	RelevanceScore  *float64        `json:"relevance_score,omitempty"`
	LinkDestination LinkDestination `gorm:"type:text" json:"link_destination,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the database table name for CoverageRecord.
func (CoverageRecord) TableName() string {
	return "coverage_records"
}

// CandidateLink is a raw discovered link produced by a provider adapter.
// Candidates are classified and merged within one ingestion run, then discarded.
type CandidateLink struct {
	SourceURL    string
	TargetURL    string
	Title        string
	AnchorText   string
	FirstSeen    *time.Time
	DomainRating *int
	Provider     string
}
