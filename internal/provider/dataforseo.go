package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/ratelimit"
)

const (
	dataForSEOName = "dataforseo"

	// Flat per-call estimate used to track spend against the daily budget.
	// Real pricing varies per endpoint; this deliberately overestimates.
	dataForSEOCallCostUSD = 0.01
)

// DataForSEOProvider discovers backlinks and search rankings through the
// DataForSEO API. Live calls are additionally gated by an estimated daily
// spend budget.
type DataForSEOProvider struct {
	client    *resty.Client
	username  string
	password  string
	budgetUSD float64
	limiter   *ratelimit.Limiter
	runtime   *flags.Runtime
	metrics   *metrics.Registry
	log       *logger.Logger
}

// NewDataForSEOProvider creates a DataForSEO adapter from configuration.
func NewDataForSEOProvider(cfg *config.DataForSEOConfig, limiter *ratelimit.Limiter, runtime *flags.Runtime, reg *metrics.Registry, log *logger.Logger) *DataForSEOProvider {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetBasicAuth(cfg.Username, cfg.Password)
	client.SetHeader("Content-Type", "application/json")

	return &DataForSEOProvider{
		client:    client,
		username:  cfg.Username,
		password:  cfg.Password,
		budgetUSD: cfg.DailyBudgetUSD,
		limiter:   limiter,
		runtime:   runtime,
		metrics:   reg,
		log:       log.WithField(logger.FieldProvider, dataForSEOName),
	}
}

// Name returns the provider identifier stored on coverage records.
func (p *DataForSEOProvider) Name() string {
	return dataForSEOName
}

func (p *DataForSEOProvider) hasCredentials() bool {
	return p.username != "" && p.password != ""
}

// withinBudget atomically reserves one call's worth of estimated spend,
// or reports that the daily budget is exhausted.
func (p *DataForSEOProvider) withinBudget() bool {
	if p.metrics.TryAddGauge(metrics.GaugeEstimatedSpendUSD, dataForSEOCallCostUSD, p.budgetUSD) {
		return true
	}
	p.metrics.Inc(metrics.CounterCostBudgetSkips)
	return false
}

type dataForSEOTask[T any] struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Result        []T    `json:"result"`
}

type dataForSEOResponse[T any] struct {
	StatusCode    int                 `json:"status_code"`
	StatusMessage string              `json:"status_message"`
	Tasks         []dataForSEOTask[T] `json:"tasks"`
}

type dataForSEOBacklinksResult struct {
	Items []struct {
		URLFrom       string `json:"url_from"`
		URLTo         string `json:"url_to"`
		PageFromTitle string `json:"page_from_title"`
		Anchor        string `json:"anchor"`
		Rank          int    `json:"rank"`
		FirstSeen     string `json:"first_seen"`
	} `json:"items"`
}

type dataForSEOSerpResult struct {
	Items []struct {
		Type         string `json:"type"`
		RankAbsolute int    `json:"rank_absolute"`
		URL          string `json:"url"`
		Title        string `json:"title"`
	} `json:"items"`
}

// FetchBacklinks returns candidate links pointing at the target, gated by
// mock mode, the rate limiter, credentials and the spend budget in that order.
func (p *DataForSEOProvider) FetchBacklinks(ctx context.Context, target string, limit int) ([]domain.CandidateLink, error) {
	if p.runtime.MockMode() {
		p.metrics.Inc(metrics.ProviderCallCounter(dataForSEOName, "mock"))
		return p.sampleBacklinks(target), nil
	}

	if !p.limiter.Allow(ctx) {
		p.metrics.Inc(metrics.RateLimitDropCounter(dataForSEOName))
		p.log.Warnf("rate limit reached, skipping backlink fetch for %s", target)
		return nil, nil
	}

	if !p.hasCredentials() {
		p.log.Warnf("no credentials configured, serving sample backlinks for %s", target)
		return p.sampleBacklinks(target), nil
	}

	if !p.withinBudget() {
		p.log.Warnf("daily spend budget exhausted, serving sample backlinks for %s", target)
		return p.sampleBacklinks(target), nil
	}

	links, err := p.fetchLiveBacklinks(ctx, target, limit)
	if err != nil {
		p.runtime.RecordProviderError(dataForSEOName, err.Error())
		p.log.WithError(err).Warnf("live backlink fetch failed for %s, serving samples", target)
		return p.sampleBacklinks(target), nil
	}
	p.metrics.Inc(metrics.ProviderCallCounter(dataForSEOName, "live"))
	return links, nil
}

func (p *DataForSEOProvider) fetchLiveBacklinks(ctx context.Context, target string, limit int) ([]domain.CandidateLink, error) {
	payload := []map[string]interface{}{{
		"target": target,
		"limit":  limit,
		"mode":   "as_is",
	}}

	var result dataForSEOResponse[dataForSEOBacklinksResult]
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/backlinks/backlinks/live")
	if err != nil {
		return nil, fmt.Errorf("failed to call DataForSEO API: %w", err)
	}
	if resp.StatusCode() != 200 || result.StatusCode != 20000 {
		return nil, fmt.Errorf("DataForSEO API error: status %d (%s)", result.StatusCode, result.StatusMessage)
	}

	var links []domain.CandidateLink
	for _, task := range result.Tasks {
		for _, res := range task.Result {
			for _, item := range res.Items {
				link := domain.CandidateLink{
					SourceURL:    item.URLFrom,
					TargetURL:    item.URLTo,
					Title:        item.PageFromTitle,
					AnchorText:   item.Anchor,
					DomainRating: intPtr(item.Rank),
					Provider:     dataForSEOName,
				}
				if seen, err := parseProviderDate(item.FirstSeen); err == nil {
					link.FirstSeen = seen
				}
				links = append(links, link)
			}
		}
	}
	return links, nil
}

// FetchRankings returns the current top organic results for a keyword.
// The same gates apply as for backlink fetches.
func (p *DataForSEOProvider) FetchRankings(ctx context.Context, keyword string, topN int) ([]domain.SerpRanking, error) {
	if p.runtime.MockMode() {
		p.metrics.Inc(metrics.ProviderCallCounter(dataForSEOName, "mock"))
		return p.sampleRankings(keyword, topN), nil
	}

	if !p.limiter.Allow(ctx) {
		p.metrics.Inc(metrics.RateLimitDropCounter(dataForSEOName))
		p.log.Warnf("rate limit reached, skipping ranking fetch for %q", keyword)
		return nil, nil
	}

	if !p.hasCredentials() {
		p.log.Warnf("no credentials configured, serving sample rankings for %q", keyword)
		return p.sampleRankings(keyword, topN), nil
	}

	if !p.withinBudget() {
		p.log.Warnf("daily spend budget exhausted, serving sample rankings for %q", keyword)
		return p.sampleRankings(keyword, topN), nil
	}

	rankings, err := p.fetchLiveRankings(ctx, keyword, topN)
	if err != nil {
		p.runtime.RecordProviderError(dataForSEOName, err.Error())
		p.log.WithError(err).Warnf("live ranking fetch failed for %q, serving samples", keyword)
		return p.sampleRankings(keyword, topN), nil
	}
	p.metrics.Inc(metrics.ProviderCallCounter(dataForSEOName, "live"))
	return rankings, nil
}

func (p *DataForSEOProvider) fetchLiveRankings(ctx context.Context, keyword string, topN int) ([]domain.SerpRanking, error) {
	payload := []map[string]interface{}{{
		"keyword":       keyword,
		"language_code": "en",
		"location_code": 2826, // United Kingdom
		"depth":         topN,
	}}

	var result dataForSEOResponse[dataForSEOSerpResult]
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/serp/google/organic/live/regular")
	if err != nil {
		return nil, fmt.Errorf("failed to call DataForSEO API: %w", err)
	}
	if resp.StatusCode() != 200 || result.StatusCode != 20000 {
		return nil, fmt.Errorf("DataForSEO API error: status %d (%s)", result.StatusCode, result.StatusMessage)
	}

	checkDate := time.Now().UTC().Truncate(24 * time.Hour)
	var rankings []domain.SerpRanking
	for _, task := range result.Tasks {
		for _, res := range task.Result {
			for _, item := range res.Items {
				if item.Type != "organic" {
					continue
				}
				if topN > 0 && item.RankAbsolute > topN {
					continue
				}
				rankings = append(rankings, domain.SerpRanking{
					Keyword:   keyword,
					URL:       item.URL,
					Position:  item.RankAbsolute,
					PageTitle: item.Title,
					CheckDate: checkDate,
				})
			}
		}
	}
	return rankings, nil
}

func (p *DataForSEOProvider) sampleBacklinks(target string) []domain.CandidateLink {
	return []domain.CandidateLink{
		{
			SourceURL:    "https://news.example.net/story-a",
			TargetURL:    target,
			Title:        "Sample news story",
			AnchorText:   "full report",
			FirstSeen:    sampleDate(2025, 9, 3),
			DomainRating: intPtr(55),
			Provider:     dataForSEOName,
		},
		{
			SourceURL:    "https://blog.sample.io/post-b",
			TargetURL:    target,
			Title:        "Sample blog post",
			AnchorText:   "via",
			FirstSeen:    sampleDate(2025, 9, 4),
			DomainRating: intPtr(12),
			Provider:     dataForSEOName,
		},
	}
}

func (p *DataForSEOProvider) sampleRankings(keyword string, topN int) []domain.SerpRanking {
	checkDate := time.Now().UTC().Truncate(24 * time.Hour)
	samples := []domain.SerpRanking{
		{Keyword: keyword, URL: "https://news.example.net/story-a", Position: 3, PageTitle: "Sample news story", CheckDate: checkDate},
		{Keyword: keyword, URL: "https://blog.sample.io/post-b", Position: 7, PageTitle: "Sample blog post", CheckDate: checkDate},
	}
	if topN > 0 && topN < len(samples) {
		samples = samples[:topN]
	}
	return samples
}
