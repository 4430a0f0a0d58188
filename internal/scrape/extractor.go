package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/scriptorium/scriptor/internal/cache"
	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
	"github.com/scriptorium/scriptor/internal/util"
	"github.com/scriptorium/scriptor/internal/worker"
)

// Result is extracted web content, summarized to a word budget for use
// as grounding material.
type Result struct {
	URL              string    `json:"url"`
	FinalURL         string    `json:"final_url"`
	Title            string    `json:"title,omitempty"`
	Markdown         string    `json:"markdown"`
	Summary          string    `json:"summary"`
	SummaryWordCount int       `json:"summary_word_count"`
	FetchedAt        time.Time `json:"fetched_at"`
	FromCache        bool      `json:"from_cache,omitempty"`
}

// Extractor turns a URL into summarized plain-text grounding material:
// fetch (robots-checked, rate-limited), convert HTML to markdown, then
// summarize down to the configured word budget.
type Extractor struct {
	fetcher      *Fetcher
	robots       *util.RobotsChecker
	limiter      *worker.Limiter
	cache        cache.Cache // nil disables caching
	provider     llm.Provider
	summaryWords int
	retries      int
	retryDelay   time.Duration
	cacheTTL     time.Duration
	verbose      bool
}

// NewExtractor wires an Extractor from configuration. provider may be
// nil; summaries then fall back to word-boundary truncation. c may be
// nil to disable caching.
func NewExtractor(cfg *model.Config, provider llm.Provider, c cache.Cache) *Extractor {
	var robots *util.RobotsChecker
	if cfg.Scrape.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}

	summaryWords := cfg.Scrape.SummaryWords
	if summaryWords <= 0 {
		summaryWords = 150
	}

	return &Extractor{
		fetcher:      NewFetcher(cfg.HTTP),
		robots:       robots,
		limiter:      worker.NewLimiter(cfg.Scrape.RequestsPerSecond, cfg.Scrape.Burst),
		cache:        c,
		provider:     provider,
		summaryWords: summaryWords,
		retries:      cfg.Generation.MaxRetries,
		retryDelay:   cfg.Generation.RetryDelay,
		cacheTTL:     cfg.Cache.DiskTTL,
		verbose:      cfg.Output.Verbose,
	}
}

// Extract fetches and summarizes the page at rawURL. Every failure mode
// is a *SourceUnavailableError so callers can degrade to ungrounded
// generation instead of aborting.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Result, error) {
	if cached, ok := e.fromCache(rawURL); ok {
		return cached, nil
	}

	if e.robots != nil {
		allowed, crawlDelay, err := e.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &SourceUnavailableError{URL: rawURL, Reason: "robots.txt check failed", Err: err}
		}
		if !allowed {
			return nil, &SourceUnavailableError{URL: rawURL, Reason: "disallowed by robots.txt"}
		}
		if crawlDelay > 0 {
			if err := e.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return nil, &SourceUnavailableError{URL: rawURL, Reason: "rate limit wait", Err: err}
			}
		} else if err := e.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &SourceUnavailableError{URL: rawURL, Reason: "rate limit wait", Err: err}
		}
	} else if err := e.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &SourceUnavailableError{URL: rawURL, Reason: "rate limit wait", Err: err}
	}

	fetched, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, &SourceUnavailableError{URL: rawURL, Reason: "fetch failed", Err: err}
	}

	markdown, err := htmltomarkdown.ConvertString(fetched.HTML)
	if err != nil {
		return nil, &SourceUnavailableError{URL: rawURL, Reason: "markdown conversion failed", Err: err}
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, &SourceUnavailableError{URL: rawURL, Reason: "no extractable content"}
	}

	summary := e.summarize(ctx, markdown)

	result := &Result{
		URL:              rawURL,
		FinalURL:         fetched.FinalURL,
		Title:            extractTitle(fetched.HTML),
		Markdown:         markdown,
		Summary:          summary,
		SummaryWordCount: model.WordCount(summary),
		FetchedAt:        time.Now().UTC(),
	}

	e.toCache(rawURL, result)
	return result, nil
}

// summarize condenses markdown to the word budget via the model, or by
// truncation when no provider is configured or the call fails. A failed
// summary never fails the extraction.
func (e *Extractor) summarize(ctx context.Context, markdown string) string {
	if e.provider == nil {
		return truncateWords(markdown, e.summaryWords)
	}

	prompt := fmt.Sprintf(`Summarize the page content below in at most %d words. Focus on key facts and main concepts; keep it factual and informative. Return only the summary text.

CONTENT:
%s`, e.summaryWords, truncateWords(markdown, 3000))

	resp, err := llm.CompleteWithRetry(ctx, e.provider, llm.CompleteRequest{
		System: "You condense web pages into short factual summaries.",
		Prompt: prompt,
	}, e.retries, e.retryDelay)
	if err != nil {
		if e.verbose {
			fmt.Fprintf(os.Stderr, "Warning: summary generation failed, truncating instead: %v\n", err)
		}
		return truncateWords(markdown, e.summaryWords)
	}

	return truncateWords(resp.Text, e.summaryWords)
}

func (e *Extractor) fromCache(rawURL string) (*Result, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, found := e.cache.Get(cache.Key(rawURL))
	if !found {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	result.FromCache = true
	return &result, true
}

func (e *Extractor) toCache(rawURL string, result *Result) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = e.cache.Set(cache.Key(rawURL), data, e.cacheTTL)
}

// extractTitle returns the text of the first <title> element.
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// truncateWords cuts s at a word boundary after limit words.
func truncateWords(s string, limit int) string {
	fields := strings.Fields(s)
	if len(fields) <= limit {
		return strings.TrimSpace(s)
	}
	return strings.Join(fields[:limit], " ")
}
