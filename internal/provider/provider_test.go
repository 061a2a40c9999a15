package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text"})
}

func newAhrefs(t *testing.T, cfg config.AhrefsConfig, mockMode bool, capacity int) (*AhrefsProvider, *flags.Runtime, *metrics.Registry) {
	t.Helper()
	runtime := flags.NewRuntime(mockMode)
	reg := metrics.NewRegistry()
	limiter := ratelimit.NewLimiter(ahrefsName, 30, capacity, nil, testLogger())
	return NewAhrefsProvider(&cfg, limiter, runtime, reg, testLogger()), runtime, reg
}

func TestAhrefsMockModeServesSamples(t *testing.T) {
	p, _, reg := newAhrefs(t, config.AhrefsConfig{APIKey: "key"}, true, 10)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://example.com/article-1", links[0].SourceURL)
	assert.Equal(t, "client.com", links[0].TargetURL)
	assert.Equal(t, ahrefsName, links[0].Provider)
	assert.Equal(t, int64(1), reg.Counter(metrics.ProviderCallCounter(ahrefsName, "mock")))
}

func TestAhrefsRateLimitDropsToEmpty(t *testing.T) {
	p, _, reg := newAhrefs(t, config.AhrefsConfig{APIKey: "key"}, false, 1)

	// First call consumes the only token via the missing-base-URL failure
	// path; the second is dropped by the limiter.
	_, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Equal(t, int64(1), reg.Counter(metrics.RateLimitDropCounter(ahrefsName)))
}

func TestAhrefsMissingCredentialsFallsBackToSamples(t *testing.T) {
	p, _, _ := newAhrefs(t, config.AhrefsConfig{}, false, 10)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestAhrefsLiveFailureRecordsDiagnostics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p, runtime, _ := newAhrefs(t, config.AhrefsConfig{APIKey: "key", BaseURL: server.URL}, false, 10)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	assert.Len(t, links, 2, "failure should fall back to samples")
	assert.Contains(t, runtime.ProviderDiagnostics()[ahrefsName], "status 500")
}

func TestAhrefsLiveParsesBacklinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/site-explorer/all-backlinks", r.URL.Path)
		assert.Equal(t, "client.com", r.URL.Query().Get("target"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"backlinks":[{"url_from":"https://press.example.org/launch","url_to":"https://client.com/campaign","title":"Launch coverage","anchor":"the campaign","domain_rating_source":61,"first_seen":"2026-02-10T09:30:00Z"}]}`))
	}))
	defer server.Close()

	p, _, reg := newAhrefs(t, config.AhrefsConfig{APIKey: "key", BaseURL: server.URL}, false, 10)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://press.example.org/launch", links[0].SourceURL)
	assert.Equal(t, "https://client.com/campaign", links[0].TargetURL)
	require.NotNil(t, links[0].DomainRating)
	assert.Equal(t, 61, *links[0].DomainRating)
	require.NotNil(t, links[0].FirstSeen)
	assert.Equal(t, 2026, links[0].FirstSeen.Year())
	assert.Equal(t, int64(1), reg.Counter(metrics.ProviderCallCounter(ahrefsName, "live")))
}

func newDataForSEO(t *testing.T, cfg config.DataForSEOConfig, mockMode bool) (*DataForSEOProvider, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	limiter := ratelimit.NewLimiter(dataForSEOName, 30, 10, nil, testLogger())
	return NewDataForSEOProvider(&cfg, limiter, flags.NewRuntime(mockMode), reg, testLogger()), reg
}

func TestDataForSEOMockModeServesSamples(t *testing.T) {
	p, _ := newDataForSEO(t, config.DataForSEOConfig{}, true)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://news.example.net/story-a", links[0].SourceURL)
	assert.Equal(t, dataForSEOName, links[0].Provider)

	rankings, err := p.FetchRankings(context.Background(), "widget study", 10)
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, "widget study", rankings[0].Keyword)
	assert.Equal(t, 3, rankings[0].Position)
}

func TestDataForSEOBudgetExhaustionSkipsLiveCalls(t *testing.T) {
	p, reg := newDataForSEO(t, config.DataForSEOConfig{
		Username:       "user",
		Password:       "pass",
		DailyBudgetUSD: 0.015, // room for one estimated call
	}, false)
	reg.SetGauge(metrics.GaugeEstimatedSpendUSD, 0.01)

	links, err := p.FetchBacklinks(context.Background(), "client.com", 50)
	require.NoError(t, err)
	assert.Len(t, links, 2, "budget skip should fall back to samples")
	assert.Equal(t, int64(1), reg.Counter(metrics.CounterCostBudgetSkips))
	assert.InDelta(t, 0.01, reg.Gauge(metrics.GaugeEstimatedSpendUSD), 0.0001, "skipped call should not add spend")
}

func TestDataForSEOLiveParsesRankings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serp/google/organic/live/regular", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status_code":20000,"status_message":"Ok.","tasks":[{"status_code":20000,"result":[{"items":[
			{"type":"organic","rank_absolute":1,"url":"https://news.example.net/story-a","title":"Story A"},
			{"type":"paid","rank_absolute":2,"url":"https://ads.example.com","title":"Ad"},
			{"type":"organic","rank_absolute":12,"url":"https://deep.example.com","title":"Too deep"}
		]}]}]}`))
	}))
	defer server.Close()

	p, _ := newDataForSEO(t, config.DataForSEOConfig{
		Username: "user", Password: "pass", BaseURL: server.URL, DailyBudgetUSD: 5,
	}, false)

	rankings, err := p.FetchRankings(context.Background(), "widget study", 10)
	require.NoError(t, err)
	require.Len(t, rankings, 1, "paid and below-cutoff results should be filtered")
	assert.Equal(t, "https://news.example.net/story-a", rankings[0].URL)
	assert.Equal(t, 1, rankings[0].Position)
}
