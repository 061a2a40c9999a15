package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
)

// BacklinkProvider fetches pages linking to a target domain or URL.
// Adapters degrade rather than fail: rate limiting yields an empty
// result, and missing credentials or upstream errors yield synthetic
// sample data so the rest of the pipeline keeps working.
type BacklinkProvider interface {
	Name() string
	FetchBacklinks(ctx context.Context, target string, limit int) ([]domain.CandidateLink, error)
}

// RankingProvider fetches current search rankings for a keyword.
type RankingProvider interface {
	FetchRankings(ctx context.Context, keyword string, topN int) ([]domain.SerpRanking, error)
}

func sampleDate(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// parseProviderDate accepts the date formats seen across provider APIs.
func parseProviderDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, fmt.Errorf("empty date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date format: %s", value)
}

func intPtr(v int) *int { return &v }
