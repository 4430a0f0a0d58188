package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scriptorium/scriptor/internal/cache"
	"github.com/scriptorium/scriptor/internal/model"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Scrape.RespectRobots = false
	cfg.Scrape.RequestsPerSecond = 1000
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Generation.RetryDelay = 0
	return cfg
}

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Coffee Cultivation</title></head>
<body>
<h1>Coffee Cultivation</h1>
<p>Coffee is grown in over seventy countries, primarily along the equatorial belt.</p>
<p>Arabica accounts for the majority of world production.</p>
</body>
</html>`

func TestExtract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	e := NewExtractor(testConfig(), nil, nil)
	result, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Title != "Coffee Cultivation" {
		t.Errorf("Title = %q", result.Title)
	}
	if !strings.Contains(result.Markdown, "equatorial belt") {
		t.Errorf("markdown missing body text: %q", result.Markdown)
	}
	if result.Summary == "" {
		t.Error("empty summary")
	}
	if result.SummaryWordCount != model.WordCount(result.Summary) {
		t.Errorf("SummaryWordCount = %d, want %d", result.SummaryWordCount, model.WordCount(result.Summary))
	}
	if result.FromCache {
		t.Error("fresh fetch flagged as cached")
	}
}

func TestExtract_SummaryWordBudget(t *testing.T) {
	// Long page, no provider: the summary falls back to truncation at
	// the configured budget.
	var body strings.Builder
	body.WriteString("<html><body><p>")
	for i := 0; i < 500; i++ {
		body.WriteString("lorem ipsum dolor ")
	}
	body.WriteString("</p></body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body.String()))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Scrape.SummaryWords = 40

	e := NewExtractor(cfg, nil, nil)
	result, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.SummaryWordCount > 40 {
		t.Errorf("summary exceeds budget: %d words", result.SummaryWordCount)
	}
}

func TestExtract_SourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	e := NewExtractor(testConfig(), nil, nil)
	_, err := e.Extract(context.Background(), server.URL)

	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *SourceUnavailableError, got %v", err)
	}
	if unavailable.URL != server.URL {
		t.Errorf("error URL = %q", unavailable.URL)
	}
}

func TestExtract_UnreachableHost(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Timeout = 500 * time.Millisecond

	e := NewExtractor(cfg, nil, nil)
	_, err := e.Extract(context.Background(), "http://127.0.0.1:1/unreachable")

	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *SourceUnavailableError, got %v", err)
	}
}

func TestExtract_CacheRoundTrip(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	e := NewExtractor(testConfig(), nil, c)

	first, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	second, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
	if !second.FromCache {
		t.Error("second result should come from cache")
	}
	if first.Summary != second.Summary {
		t.Error("cached summary differs from original")
	}
}

func TestTruncateWords(t *testing.T) {
	if got := truncateWords("one two three four", 2); got != "one two" {
		t.Errorf("truncateWords = %q", got)
	}
	if got := truncateWords("short", 10); got != "short" {
		t.Errorf("truncateWords = %q", got)
	}
}

func TestExtractTitle(t *testing.T) {
	if got := extractTitle(samplePage); got != "Coffee Cultivation" {
		t.Errorf("extractTitle = %q", got)
	}
	if got := extractTitle("<html><body>no title</body></html>"); got != "" {
		t.Errorf("extractTitle = %q, want empty", got)
	}
}
