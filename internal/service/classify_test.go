package service

import (
	"testing"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ratingOf(v int) *int { return &v }

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:               1,
		ClientName:       "Acme",
		CampaignName:     "Widget Study",
		ClientDomain:     "client.com",
		CampaignURL:      "https://client.com/widget-study",
		LaunchDate:       date(2026, 1, 15),
		BlacklistDomains: domain.StringArray{"spam.example"},
	}
}

func TestClassifyDirectLinkIsVerified(t *testing.T) {
	c := NewClassifier()

	// Trailing slash and case differences must not break the URL match.
	record := c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:    "https://press.example.org/launch",
		TargetURL:    "HTTPS://CLIENT.COM/widget-study/",
		Title:        "Launch coverage",
		AnchorText:   "the campaign",
		FirstSeen:    date(2026, 2, 1),
		DomainRating: ratingOf(3),
		Provider:     "ahrefs",
	})

	assert.Equal(t, domain.CoverageVerified, record.CoverageStatus)
	require.NotNil(t, record.ConfidenceScore)
	assert.InDelta(t, 0.95, *record.ConfidenceScore, 0.001)
}

func TestClassifyBlacklistShortCircuits(t *testing.T) {
	c := NewClassifier()

	// Even a candidate that would score as verified is excluded when its
	// source host matches the blacklist.
	record := c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:    "https://news.SPAM.example/widget-study-roundup",
		TargetURL:    "https://client.com/widget-study",
		Title:        "Acme Widget Study",
		FirstSeen:    date(2026, 1, 10),
		DomainRating: ratingOf(80),
		Provider:     "ahrefs",
	})

	assert.Equal(t, domain.CoverageExcluded, record.CoverageStatus)
}

func TestClassifyWeakDomainWideCandidateIsPotential(t *testing.T) {
	c := NewClassifier()

	record := c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:    "https://tiny.example.net/misc",
		TargetURL:    "https://client.com/pricing",
		Title:        "Unrelated roundup",
		AnchorText:   "here",
		FirstSeen:    date(2026, 3, 1), // after launch
		DomainRating: ratingOf(5),      // below threshold
		Provider:     "dataforseo",
	})

	assert.Equal(t, domain.CoveragePotential, record.CoverageStatus)
	require.NotNil(t, record.ConfidenceScore)
	assert.InDelta(t, 0.75, *record.ConfidenceScore, 0.001)
}

func TestClassifyScoreAccumulates(t *testing.T) {
	c := NewClassifier()

	// DR >= 8 plus a pre-launch first-seen reaches the verified threshold
	// without a direct link.
	record := c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:    "https://journal.example.co/science",
		TargetURL:    "https://client.com/about",
		FirstSeen:    date(2026, 1, 15), // on the launch date counts
		DomainRating: ratingOf(8),
		Provider:     "ahrefs",
	})

	assert.Equal(t, domain.CoverageVerified, record.CoverageStatus)
	require.NotNil(t, record.ConfidenceScore)
	assert.InDelta(t, 0.75, *record.ConfidenceScore, 0.001)
}

func TestClassifyNameMentionScoresOnePoint(t *testing.T) {
	c := NewClassifier()

	// Name mention alone is one point: still potential.
	record := c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:  "https://blogger.example.io/post",
		TargetURL:  "https://client.com/shop",
		AnchorText: "acme has a new study out",
		Provider:   "ahrefs",
	})
	assert.Equal(t, domain.CoveragePotential, record.CoverageStatus)

	// Paired with a strong domain rating it upgrades to verified.
	record = c.Classify(testCampaign(), domain.CandidateLink{
		SourceURL:    "https://blogger.example.io/post",
		TargetURL:    "https://client.com/shop",
		Title:        "The Widget Study, reviewed",
		DomainRating: ratingOf(50),
		Provider:     "ahrefs",
	})
	assert.Equal(t, domain.CoverageVerified, record.CoverageStatus)
}

func TestClassifyDestination(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name   string
		target string
		want   domain.LinkDestination
	}{
		{"external target", "https://other.example.com/page", ""},
		{"blog path", "https://client.com/blog/widget-study", domain.DestinationBlogPage},
		{"homepage with scheme", "https://client.com/", domain.DestinationHomepage},
		{"homepage bare domain", "client.com", domain.DestinationHomepage},
		{"homepage www", "https://www.client.com", domain.DestinationHomepage},
		{"deep page", "https://client.com/products/widget", domain.DestinationOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyDestination("client.com", tt.target))
		})
	}
}

func TestBoostConfidence(t *testing.T) {
	assert.InDelta(t, 0.75, BoostConfidence(0.75, 0), 0.001)
	assert.InDelta(t, 0.85, BoostConfidence(0.75, 0.5), 0.001)
	assert.InDelta(t, 1.0, BoostConfidence(0.95, 0.9), 0.001, "boost caps at 1.0")
}
