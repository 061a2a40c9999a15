package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/provider"
)

// AnalysisDepth controls how much optional work an ingestion run does.
type AnalysisDepth string

const (
	DepthQuick    AnalysisDepth = "quick"
	DepthStandard AnalysisDepth = "standard"
	DepthDeep     AnalysisDepth = "deep"
)

// CampaignStore is the campaign persistence surface the coordinator needs.
type CampaignStore interface {
	GetByID(ctx context.Context, id uint) (*domain.Campaign, error)
	UpdateWatermark(ctx context.Context, id uint, at time.Time) error
}

// CoverageStore reconciles classified records into storage.
type CoverageStore interface {
	UpsertBatch(ctx context.Context, campaignID uint, records []domain.CoverageRecord) (int, error)
}

// SerpStore persists keyword ranking observations.
type SerpStore interface {
	AddRankings(ctx context.Context, campaignID uint, rankings []domain.SerpRanking) (int, error)
}

// RelevanceScorer scores page content against campaign keywords.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, pageURL string, keywords []string) (float64, error)
}

// AnalysisResult summarizes one ingestion run. CompletedSteps lists what
// actually ran; a best-effort step that failed is simply absent.
type AnalysisResult struct {
	CampaignID        uint     `json:"campaign_id"`
	Depth             string   `json:"depth"`
	CandidatesFetched int      `json:"candidates_fetched"`
	NewRecords        int      `json:"new_records"`
	VerifiedCount     int      `json:"verified_count"`
	PotentialCount    int      `json:"potential_count"`
	ExcludedCount     int      `json:"excluded_count"`
	RankingsStored    int      `json:"rankings_stored,omitempty"`
	CompletedSteps    []string `json:"completed_steps"`
}

// AnalysisService coordinates one campaign ingestion run: fetch candidates
// from every provider, classify them, filter for quality, optionally
// enrich from page content, merge into storage and advance the
// incremental watermark.
type AnalysisService struct {
	campaigns  CampaignStore
	coverage   CoverageStore
	serps      SerpStore
	backlinks  []provider.BacklinkProvider
	rankings   provider.RankingProvider
	classifier *Classifier
	content    RelevanceScorer
	cfg        *config.AnalysisConfig
	maxContent int
	log        *logger.Logger
}

// NewAnalysisService wires the coordinator.
func NewAnalysisService(
	campaigns CampaignStore,
	coverage CoverageStore,
	serps SerpStore,
	backlinks []provider.BacklinkProvider,
	rankings provider.RankingProvider,
	content RelevanceScorer,
	cfg *config.AnalysisConfig,
	contentCfg *config.ContentConfig,
	log *logger.Logger,
) *AnalysisService {
	maxContent := 20
	if contentCfg != nil && contentCfg.MaxURLs > 0 {
		maxContent = contentCfg.MaxURLs
	}
	return &AnalysisService{
		campaigns:  campaigns,
		coverage:   coverage,
		serps:      serps,
		backlinks:  backlinks,
		rankings:   rankings,
		classifier: NewClassifier(),
		content:    content,
		cfg:        cfg,
		maxContent: maxContent,
		log:        log.WithField(logger.FieldComponent, "analysis"),
	}
}

// RunAnalysis executes one ingestion run for the campaign. The run is
// idempotent: repeating it against unchanged provider data merges into
// existing rows and reports zero new records.
func (s *AnalysisService) RunAnalysis(ctx context.Context, campaignID uint, depth AnalysisDepth) (*AnalysisResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %d: %w", campaignID, err)
	}
	if depth == "" {
		depth = DepthStandard
	}

	log := s.log.WithField(logger.FieldCampaignID, campaignID)
	result := &AnalysisResult{CampaignID: campaignID, Depth: string(depth), CompletedSteps: []string{}}

	// Keyed by (source URL, provider) so a rediscovery within the run
	// cannot produce duplicate rows in one batch. Direct-link records go
	// in first; verified status is sticky through the later merge.
	batch := make([]domain.CoverageRecord, 0)
	seen := make(map[string]struct{})

	if campaign.CampaignURL != "" {
		added := s.collectDirectLinks(ctx, campaign, &batch, seen, result)
		log.WithField(logger.FieldCount, added).Info("collected direct campaign URL backlinks")
		result.CompletedSteps = append(result.CompletedSteps, "campaign_url_backlinks")
	}

	added := s.collectDomainLinks(ctx, campaign, &batch, seen, result)
	log.WithField(logger.FieldCount, added).Info("collected domain-wide backlinks")
	result.CompletedSteps = append(result.CompletedSteps, "domain_backlinks")

	batch = s.applyQualityFilters(batch)
	result.CompletedSteps = append(result.CompletedSteps, "quality_filters")

	if depth != DepthQuick && s.content != nil {
		s.enrichFromContent(ctx, campaign, batch)
		result.CompletedSteps = append(result.CompletedSteps, "content_enrichment")
	}

	// Persistence is best-effort: a merge failure is logged, the
	// classification results are still returned, and the missing step
	// tells callers the batch never reached storage.
	if inserted, err := s.coverage.UpsertBatch(ctx, campaignID, batch); err != nil {
		log.WithError(err).Error("failed to persist coverage records")
	} else {
		result.NewRecords = inserted
		result.CompletedSteps = append(result.CompletedSteps, "persist")
	}

	for _, rec := range batch {
		switch rec.CoverageStatus {
		case domain.CoverageVerified:
			result.VerifiedCount++
		case domain.CoveragePotential:
			result.PotentialCount++
		}
	}

	// The watermark advances even when nothing new was found, so the next
	// incremental run does not refetch this window. Failure here is logged
	// and surfaced only through the missing step.
	if err := s.campaigns.UpdateWatermark(ctx, campaignID, time.Now().UTC()); err != nil {
		log.WithError(err).Warn("failed to advance fetch watermark")
	} else {
		result.CompletedSteps = append(result.CompletedSteps, "watermark_advanced")
	}

	log.WithFields(logger.Fields{
		logger.FieldCount: result.NewRecords,
		"verified":        result.VerifiedCount,
		"potential":       result.PotentialCount,
	}).Info("campaign analysis completed")
	return result, nil
}

// collectDirectLinks fetches backlinks pointing at the campaign URL.
// Candidates surviving the blacklist whose target exactly matches the
// campaign URL are verified coverage at direct-link confidence; anything
// else keeps its classifier verdict. Dedupe here is by source URL: the
// same page reported by two providers counts once.
func (s *AnalysisService) collectDirectLinks(ctx context.Context, campaign *domain.Campaign, batch *[]domain.CoverageRecord, seen map[string]struct{}, result *AnalysisResult) int {
	added := 0
	urls := make(map[string]struct{})
	for _, p := range s.backlinks {
		links, err := p.FetchBacklinks(ctx, campaign.CampaignURL, s.cfg.FetchLimit)
		if err != nil {
			s.log.WithError(err).Warnf("provider %s failed for campaign URL fetch", p.Name())
			continue
		}
		result.CandidatesFetched += len(links)
		for _, link := range links {
			if _, dup := urls[link.SourceURL]; dup {
				continue
			}
			urls[link.SourceURL] = struct{}{}

			record := s.classifier.Classify(campaign, link)
			if record.CoverageStatus == domain.CoverageExcluded {
				result.ExcludedCount++
				continue
			}
			// Prefix-mode providers can return links to other pages under
			// the campaign URL; only an exact target match is promoted.
			if urlsMatch(link.TargetURL, campaign.CampaignURL) {
				record.CoverageStatus = domain.CoverageVerified
				confidence := confidenceDirectLink
				record.ConfidenceScore = &confidence
			}

			*batch = append(*batch, record)
			seen[record.URL+"|"+record.Provider] = struct{}{}
			added++
		}
	}
	return added
}

// collectDomainLinks fetches backlinks for the whole client domain and
// classifies each candidate. Candidates first seen before the incremental
// watermark were already processed by an earlier run and are skipped.
func (s *AnalysisService) collectDomainLinks(ctx context.Context, campaign *domain.Campaign, batch *[]domain.CoverageRecord, seen map[string]struct{}, result *AnalysisResult) int {
	var watermark *time.Time
	if campaign.LastFetchAt != nil {
		w := campaign.LastFetchAt.UTC().Truncate(24 * time.Hour)
		watermark = &w
	}

	added := 0
	for _, p := range s.backlinks {
		links, err := p.FetchBacklinks(ctx, campaign.ClientDomain, s.cfg.FetchLimit)
		if err != nil {
			s.log.WithError(err).Warnf("provider %s failed for domain fetch", p.Name())
			continue
		}
		result.CandidatesFetched += len(links)
		for _, link := range links {
			key := link.SourceURL + "|" + link.Provider
			if _, dup := seen[key]; dup {
				continue
			}
			// Compared at day granularity: a candidate first seen any
			// time on the watermark date counts as already processed.
			if watermark != nil && link.FirstSeen != nil &&
				!link.FirstSeen.UTC().Truncate(24*time.Hour).After(*watermark) {
				continue
			}
			seen[key] = struct{}{}

			record := s.classifier.Classify(campaign, link)
			if record.CoverageStatus == domain.CoverageExcluded {
				result.ExcludedCount++
				continue
			}
			*batch = append(*batch, record)
			added++
		}
	}
	return added
}

// applyQualityFilters drops low-authority candidates and caps each status
// group at the configured size, keeping the highest-quality records.
// Quality favors authority and recency: rating/100 plus a freshness term
// that decays to zero over a year.
func (s *AnalysisService) applyQualityFilters(batch []domain.CoverageRecord) []domain.CoverageRecord {
	minDR := s.cfg.MinDomainRating
	maxPer := s.cfg.MaxPerStatus

	filtered := batch[:0]
	for _, rec := range batch {
		if rec.DomainRating != nil && *rec.DomainRating < minDR {
			continue
		}
		filtered = append(filtered, rec)
	}

	if maxPer <= 0 {
		return filtered
	}

	now := time.Now().UTC()
	quality := func(rec *domain.CoverageRecord) float64 {
		q := 0.0
		if rec.DomainRating != nil {
			q += float64(*rec.DomainRating) / 100.0
		}
		if rec.FirstSeen != nil {
			days := now.Sub(*rec.FirstSeen).Hours() / 24
			if fresh := 1 - days/365; fresh > 0 {
				q += fresh
			}
		}
		return q
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return quality(&filtered[i]) > quality(&filtered[j])
	})

	counts := make(map[domain.CoverageStatus]int)
	capped := make([]domain.CoverageRecord, 0, len(filtered))
	for _, rec := range filtered {
		if counts[rec.CoverageStatus] >= maxPer {
			continue
		}
		counts[rec.CoverageStatus]++
		capped = append(capped, rec)
	}
	return capped
}

// enrichFromContent scores page content for the top records and folds the
// relevance into their confidence. Unreachable pages contribute nothing.
func (s *AnalysisService) enrichFromContent(ctx context.Context, campaign *domain.Campaign, batch []domain.CoverageRecord) {
	keywords := campaign.VerificationKeywords
	if len(keywords) == 0 {
		keywords = domain.StringArray{campaign.CampaignName, campaign.ClientName}
	}

	limit := s.maxContent
	for i := range batch {
		if i >= limit {
			break
		}
		relevance, err := s.content.ScoreRelevance(ctx, batch[i].URL, keywords)
		if err != nil {
			s.log.WithError(err).Debugf("content fetch failed for %s", batch[i].URL)
			continue
		}
		batch[i].RelevanceScore = &relevance
		if batch[i].ConfidenceScore != nil {
			boosted := BoostConfidence(*batch[i].ConfidenceScore, relevance)
			batch[i].ConfidenceScore = &boosted
		}
	}
}

// RunKeywordCheck fetches current search rankings for the campaign's
// keywords and stores them. Ranking URLs also enter the coverage pipeline
// as potential coverage under the "serp" provider, since a page ranking
// for a campaign keyword may be uncredited coverage. Campaigns without
// keywords are a no-op.
func (s *AnalysisService) RunKeywordCheck(ctx context.Context, campaignID uint) (*AnalysisResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %d: %w", campaignID, err)
	}

	result := &AnalysisResult{CampaignID: campaignID, CompletedSteps: []string{}}
	if !campaign.HasKeywords() || s.rankings == nil {
		return result, nil
	}

	var all []domain.SerpRanking
	for _, keyword := range campaign.SerpKeywords {
		rankings, err := s.rankings.FetchRankings(ctx, keyword, s.cfg.SerpTopN)
		if err != nil {
			s.log.WithError(err).Warnf("ranking fetch failed for keyword %q", keyword)
			continue
		}
		all = append(all, rankings...)
	}
	result.CompletedSteps = append(result.CompletedSteps, "keyword_rankings")

	if stored, err := s.serps.AddRankings(ctx, campaignID, all); err != nil {
		s.log.WithError(err).Error("failed to store rankings")
	} else {
		result.RankingsStored = stored
	}

	// Same best-effort contract as RunAnalysis: a persist failure keeps
	// the classification result and drops the step.
	batch := s.coverageFromRankings(campaign, all, result)
	if inserted, err := s.coverage.UpsertBatch(ctx, campaignID, batch); err != nil {
		s.log.WithError(err).Error("failed to persist ranking coverage")
	} else {
		result.NewRecords = inserted
		result.CompletedSteps = append(result.CompletedSteps, "persist")
	}
	return result, nil
}

// coverageFromRankings classifies ranking URLs as coverage candidates,
// deduplicated by URL across keywords.
func (s *AnalysisService) coverageFromRankings(campaign *domain.Campaign, rankings []domain.SerpRanking, result *AnalysisResult) []domain.CoverageRecord {
	seen := make(map[string]struct{})
	batch := make([]domain.CoverageRecord, 0, len(rankings))
	for _, ranking := range rankings {
		if _, dup := seen[ranking.URL]; dup {
			continue
		}
		seen[ranking.URL] = struct{}{}

		checkDate := ranking.CheckDate
		record := s.classifier.Classify(campaign, domain.CandidateLink{
			SourceURL: ranking.URL,
			Title:     ranking.PageTitle,
			FirstSeen: &checkDate,
			Provider:  "serp",
		})
		if record.CoverageStatus == domain.CoverageExcluded {
			result.ExcludedCount++
			continue
		}
		batch = append(batch, record)
	}
	return batch
}
