package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme launches the Widget Study</title>
  <meta name="description" content="New research from Acme">
  <script>var tracking = "widget study should not count twice";</script>
</head>
<body>
  <h1>Widget Study results</h1>
  <p>Acme surveyed two thousand people about widgets.</p>
</body>
</html>`

func newContentService(t *testing.T) *ContentService {
	t.Helper()
	log := logger.New(&logger.Config{Level: "error", Format: "text"})
	return NewContentService(&config.ContentConfig{RequestTimeout: 5 * time.Second}, log)
}

func TestScoreRelevanceCountsMatchedKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	s := newContentService(t)
	score, err := s.ScoreRelevance(context.Background(), server.URL, []string{"widget study", "acme", "blockchain", "survey"})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score, 0.001, "three of four keywords appear in the page")
}

func TestScoreRelevanceUnreachablePageReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := newContentService(t)
	_, err := s.ScoreRelevance(context.Background(), server.URL, []string{"acme"})
	assert.Error(t, err)
}

func TestScoreRelevanceNoKeywords(t *testing.T) {
	s := newContentService(t)
	score, err := s.ScoreRelevance(context.Background(), "http://unused.invalid", nil)
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestScoreText(t *testing.T) {
	assert.InDelta(t, 0.5, ScoreText("Acme news roundup", []string{"acme", "widgets"}), 0.001)
	assert.Zero(t, ScoreText("", []string{"acme"}))
	assert.InDelta(t, 1.0, ScoreText("ACME WIDGET", []string{"acme", "widget"}), 0.001)
}
