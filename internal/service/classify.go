package service

import (
	"net/url"
	"strings"

	"github.com/linkdive/linkdive/internal/domain"
)

// Classification confidence levels. A direct link to the campaign URL is
// near-certain coverage; a domain-wide discovery is weaker evidence.
const (
	confidenceDirectLink = 0.95
	confidenceDomainWide = 0.75
)

// Classifier turns raw candidate links into classified coverage records.
// It is pure: no I/O, no stored state.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify scores a candidate against the campaign and returns a coverage
// record carrying the verdict. Blacklisted sources come back with status
// CoverageExcluded and must not be persisted.
//
// Scoring: domain rating >= 8 earns one point, a first-seen date on or
// before the campaign launch earns one, a target matching the campaign URL
// earns two, and campaign or client name in the anchor or title earns one.
// Two or more points means verified, otherwise potential.
func (c *Classifier) Classify(campaign *domain.Campaign, link domain.CandidateLink) domain.CoverageRecord {
	record := domain.CoverageRecord{
		CampaignID:     campaign.ID,
		URL:            link.SourceURL,
		Provider:       link.Provider,
		PageTitle:      link.Title,
		FirstSeen:      link.FirstSeen,
		LastSeen:       link.FirstSeen,
		DomainRating:   link.DomainRating,
		CoverageStatus: domain.CoveragePotential,
	}

	if c.isBlacklisted(campaign, link.SourceURL) {
		record.CoverageStatus = domain.CoverageExcluded
		return record
	}

	directLink := campaign.CampaignURL != "" && urlsMatch(link.TargetURL, campaign.CampaignURL)

	score := 0
	if link.DomainRating != nil && *link.DomainRating >= 8 {
		score++
	}
	if link.FirstSeen != nil && campaign.LaunchDate != nil && !link.FirstSeen.After(*campaign.LaunchDate) {
		score++
	}
	if directLink {
		score += 2
	}
	if c.mentionsCampaign(campaign, link.AnchorText) || c.mentionsCampaign(campaign, link.Title) {
		score++
	}

	if score >= 2 {
		record.CoverageStatus = domain.CoverageVerified
	}

	confidence := confidenceDomainWide
	if directLink {
		confidence = confidenceDirectLink
	}
	record.ConfidenceScore = &confidence

	record.LinkDestination = c.ClassifyDestination(campaign.ClientDomain, link.TargetURL)

	return record
}

// ClassifyDestination reports where on the client's site a target URL
// points. Targets outside the client domain classify as empty.
func (c *Classifier) ClassifyDestination(clientDomain, targetURL string) domain.LinkDestination {
	if clientDomain == "" || targetURL == "" {
		return ""
	}

	parsed, err := url.Parse(strings.TrimSpace(targetURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		// Bare "client.com/page" parses without a host.
		parsed, err = url.Parse("https://" + strings.TrimSpace(targetURL))
		if err != nil {
			return ""
		}
		host = strings.ToLower(parsed.Hostname())
	}

	domainLower := strings.ToLower(strings.TrimSpace(clientDomain))
	if !strings.Contains(host, domainLower) {
		return ""
	}

	if strings.Contains(strings.ToLower(parsed.Path), "/blog") {
		return domain.DestinationBlogPage
	}

	trimmed := strings.ToLower(strings.TrimRight(strings.TrimSpace(targetURL), "/"))
	for _, form := range []string{domainLower, "http://" + domainLower, "https://" + domainLower, "https://www." + domainLower, "http://www." + domainLower} {
		if trimmed == form {
			return domain.DestinationHomepage
		}
	}

	return domain.DestinationOther
}

// BoostConfidence folds a content relevance score into a confidence value,
// capped at 1.0. A relevance of zero leaves confidence unchanged.
func BoostConfidence(confidence, relevance float64) float64 {
	boosted := confidence + relevance*0.2
	if boosted > 1.0 {
		return 1.0
	}
	return boosted
}

// isBlacklisted checks the source host against the campaign's blacklist
// with case-insensitive substring matching, so "spam.example" catches
// every subdomain and path under it.
func (c *Classifier) isBlacklisted(campaign *domain.Campaign, sourceURL string) bool {
	if len(campaign.BlacklistDomains) == 0 {
		return false
	}
	host := hostOf(sourceURL)
	if host == "" {
		return false
	}
	for _, blocked := range campaign.BlacklistDomains {
		blocked = strings.ToLower(strings.TrimSpace(blocked))
		if blocked != "" && strings.Contains(host, blocked) {
			return true
		}
	}
	return false
}

func (c *Classifier) mentionsCampaign(campaign *domain.Campaign, text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	if campaign.CampaignName != "" && strings.Contains(lower, strings.ToLower(campaign.CampaignName)) {
		return true
	}
	if campaign.ClientName != "" && strings.Contains(lower, strings.ToLower(campaign.ClientName)) {
		return true
	}
	return false
}

// urlsMatch compares two URLs by lowercase host and path, ignoring scheme,
// query and a trailing slash.
func urlsMatch(a, b string) bool {
	ha, pa, okA := hostAndPath(a)
	hb, pb, okB := hostAndPath(b)
	if !okA || !okB {
		return false
	}
	return ha == hb && pa == pb
}

func hostAndPath(raw string) (string, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	if parsed.Hostname() == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil || parsed.Hostname() == "" {
			return "", "", false
		}
	}
	host := strings.ToLower(parsed.Hostname())
	path := strings.TrimRight(strings.ToLower(parsed.Path), "/")
	return host, path, true
}

func hostOf(raw string) string {
	host, _, ok := hostAndPath(raw)
	if !ok {
		return ""
	}
	return host
}
