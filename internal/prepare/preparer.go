package prepare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
	"github.com/scriptorium/scriptor/internal/scrape"
)

// Grounder supplies summarized source material for a URL. Satisfied by
// *scrape.Extractor; nil disables grounding.
type Grounder interface {
	Extract(ctx context.Context, url string) (*scrape.Result, error)
}

// Preparer generates short cited passages, optionally grounded in
// web-extracted source material.
type Preparer struct {
	provider llm.Provider
	grounder Grounder
	cfg      model.GenerationConfig
}

// NewPreparer creates a Preparer. grounder may be nil; requests with a
// SourceURL then degrade to ungrounded generation with a warning.
func NewPreparer(provider llm.Provider, grounder Grounder, cfg model.GenerationConfig) *Preparer {
	return &Preparer{provider: provider, grounder: grounder, cfg: cfg}
}

// PrepareRequest describes one generation request.
type PrepareRequest struct {
	Topic     string
	SourceURL string // Optional grounding source
}

// Prepare generates a passage of ArticleMinWords..ArticleMaxWords words
// with structured citations. Source fetch failures are recovered
// locally: generation proceeds ungrounded and the result says so.
func (p *Preparer) Prepare(ctx context.Context, req PrepareRequest) (*model.PrepareResult, error) {
	if p.provider == nil {
		return nil, fmt.Errorf("prepare: no LLM provider configured")
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("prepare: topic must be non-empty")
	}

	var warnings []string
	var source *scrape.Result

	if req.SourceURL != "" {
		if p.grounder == nil {
			warnings = append(warnings, "no extractor configured; generating without source grounding")
		} else {
			extracted, err := p.grounder.Extract(ctx, req.SourceURL)
			if err != nil {
				// SourceUnavailable: degrade, never abort.
				warnings = append(warnings, fmt.Sprintf("source unavailable (%v); generating from model knowledge", err))
			} else {
				source = extracted
			}
		}
	}

	minWords, maxWords := p.wordBand()
	prompt := buildPreparePrompt(req.Topic, source, req.SourceURL, minWords, maxWords, p.cfg.MinCitations, p.cfg.MaxCitations)

	attempts := p.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var best *model.PrepareResult
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.RetryDelay):
			}
		}

		resp, err := llm.CompleteWithRetry(ctx, p.provider, llm.CompleteRequest{
			System: "You are a research writer. You produce concise, factual passages with accurate citations.",
			Prompt: prompt,
		}, p.cfg.MaxRetries, p.cfg.RetryDelay)
		if err != nil {
			return nil, err
		}

		article, citations := parseStructured(resp.Text)
		if article == "" {
			continue
		}

		result := p.assemble(article, citations, source, req.SourceURL, minWords, maxWords)
		if result.WithinTolerance {
			result.Warnings = append(warnings, result.Warnings...)
			return result, nil
		}
		if best == nil || bandDistance(result.WordCount, minWords, maxWords) < bandDistance(best.WordCount, minWords, maxWords) {
			best = result
		}
	}

	if best == nil {
		return nil, &llm.GenerationError{Provider: p.provider.Name(), Attempts: attempts, Err: llm.ErrEmptyCompletion}
	}
	best.Warnings = append(warnings, append(best.Warnings,
		fmt.Sprintf("passage is %d words, outside the %d-%d target", best.WordCount, minWords, maxWords))...)
	return best, nil
}

func (p *Preparer) wordBand() (int, int) {
	minWords, maxWords := p.cfg.ArticleMinWords, p.cfg.ArticleMaxWords
	if minWords <= 0 {
		minWords = 150
	}
	if maxWords < minWords {
		maxWords = minWords + 50
	}
	return minWords, maxWords
}

// assemble builds a PrepareResult, enforcing the citation rules: the
// grounding source must be cited, indices run 1..n, and the citation
// count is capped at the configured maximum.
func (p *Preparer) assemble(article string, citations []model.Citation, source *scrape.Result, sourceURL string, minWords, maxWords int) *model.PrepareResult {
	var warnings []string

	if source != nil && !containsURL(citations, sourceURL) && !containsURL(citations, source.FinalURL) {
		label := source.Title
		if label == "" {
			label = "Source material"
		}
		citations = append(citations, model.Citation{Label: label, URL: sourceURL})
	}

	if p.cfg.MaxCitations > 0 && len(citations) > p.cfg.MaxCitations {
		citations = citations[:p.cfg.MaxCitations]
	}
	if p.cfg.MinCitations > 0 && len(citations) < p.cfg.MinCitations {
		warnings = append(warnings, fmt.Sprintf("only %d citation(s) produced; %d requested", len(citations), p.cfg.MinCitations))
	}
	citations = renumber(citations)

	words := model.WordCount(article)
	return &model.PrepareResult{
		Text:            article,
		Citations:       citations,
		WordCount:       words,
		WithinTolerance: words >= minWords && words <= maxWords,
		Grounded:        source != nil,
		SourceURL:       sourceURL,
		Warnings:        warnings,
	}
}

func buildPreparePrompt(topic string, source *scrape.Result, sourceURL string, minWords, maxWords, minCitations, maxCitations int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a comprehensive %d-%d word article about: %s\n\n", minWords, maxWords, topic)

	if source != nil {
		b.WriteString("Context provided here\n---\n")
		b.WriteString(source.Summary)
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, `Steps:
1. Use the provided context along with your knowledge to write the article
2. Incorporate relevant information from the context
3. Include %d-%d citations with URLs in the format [1] Description - URL
4. ALWAYS include the source URL (%s) as one of your citations

`, minCitations, maxCitations, sourceURL)
	} else {
		fmt.Fprintf(&b, `Steps:
1. Use your knowledge to write the article with key facts and statistics
2. Include %d-%d citations with URLs in the format [1] Description - URL

`, minCitations, maxCitations)
	}

	fmt.Fprintf(&b, `Format your response as:
ARTICLE: [Your %d-%d word article]

WORD_COUNT: [actual word count of the article]

CITATIONS:
[1] Source description - https://example.com/source1
[2] Source description - https://example.com/source2
`, minWords, maxWords)

	return b.String()
}

// bandDistance measures how far outside [lo, hi] a word count falls.
func bandDistance(words, lo, hi int) int {
	switch {
	case words < lo:
		return lo - words
	case words > hi:
		return words - hi
	default:
		return 0
	}
}
