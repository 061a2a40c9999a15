package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/logger"
)

// ContentService fetches discovered pages and scores how relevant their
// content is to a campaign's keywords. Fetch failures are expected and
// simply mean no relevance signal for that page.
type ContentService struct {
	client *resty.Client
	log    *logger.Logger
}

// NewContentService creates a ContentService from configuration.
func NewContentService(cfg *config.ContentConfig, log *logger.Logger) *ContentService {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "linkdive-coverage-bot/1.0")

	return &ContentService{
		client: client,
		log:    log.WithField(logger.FieldComponent, "content"),
	}
}

// ScoreRelevance fetches a page and returns the fraction of keywords its
// visible text mentions, in [0, 1]. An unreachable or unparsable page
// returns an error and no score.
func (s *ContentService) ScoreRelevance(ctx context.Context, pageURL string, keywords []string) (float64, error) {
	if len(keywords) == 0 {
		return 0, nil
	}

	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("page fetch returned status %d", resp.StatusCode())
	}

	return ScoreText(extractText(resp.String()), keywords), nil
}

// ScoreText returns the fraction of keywords present in the text,
// matched case-insensitively.
func ScoreText(text string, keywords []string) float64 {
	if len(keywords) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// extractText pulls the title, meta description and body text out of an
// HTML document. Script and style content is discarded.
func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	parts = append(parts, doc.Find("title").Text())
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		parts = append(parts, desc)
	}
	doc.Find("script, style, noscript").Remove()
	parts = append(parts, doc.Find("body").Text())

	return strings.Join(parts, " ")
}
