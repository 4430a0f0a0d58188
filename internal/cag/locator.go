package cag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// Locator finds the character span of a sub-text query inside a document.
// Matching runs in three passes: exact substring, whitespace-normalized,
// then model-assisted. The model is only ever asked for a verbatim
// substring, which is re-located with the literal passes to recover
// offsets; it is never trusted to produce offsets directly.
type Locator struct {
	provider llm.Provider // nil disables the model-assisted pass
	cfg      model.GenerationConfig
}

// NewLocator creates a Locator. provider may be nil, in which case only
// the literal passes run.
func NewLocator(provider llm.Provider, cfg model.GenerationConfig) *Locator {
	return &Locator{provider: provider, cfg: cfg}
}

// LocateOptions tunes match selection when a query occurs more than once.
type LocateOptions struct {
	// Occurrence selects the nth exact match (1-based). 0 means first.
	Occurrence int

	// ContextHint biases selection toward the occurrence whose
	// surrounding text contains the hint.
	ContextHint string
}

// hintWindow is how far around a candidate match the context hint is
// searched for, in bytes.
const hintWindow = 200

// Locate finds the first (or requested) occurrence of query in doc.
// Read-only over the document; no side effects.
func (l *Locator) Locate(ctx context.Context, doc model.Document, query string) (*model.LocateResult, error) {
	return l.LocateWithOptions(ctx, doc, query, LocateOptions{})
}

// LocateWithOptions is Locate with ambiguity controls.
func (l *Locator) LocateWithOptions(ctx context.Context, doc model.Document, query string, opts LocateOptions) (*model.LocateResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("locate: query must be non-empty")
	}

	// Pass 1: exact, case-sensitive substring match.
	if result, err := l.locateLiteral(doc, query, opts, false); result != nil || err != nil {
		return result, err
	}

	// Pass 2: whitespace-normalized match. Queries copied from rendered
	// views often differ from the source only in whitespace runs.
	if span, ok := normalizedMatch(doc.Content, query); ok {
		matched := span.Text(doc)
		// Re-run selection on the literal form so occurrence counting
		// reflects what is actually in the document.
		if result, err := l.locateLiteral(doc, matched, opts, false); result != nil || err != nil {
			return result, err
		}
	}

	// Pass 3: ask the model for the matching substring, verbatim, then
	// confirm it against the document.
	if l.provider == nil {
		return nil, &NotFoundError{Query: query}
	}

	candidate, err := l.suggestSubstring(ctx, doc, query)
	if err != nil {
		return nil, err
	}
	if candidate == "" {
		return nil, &NotFoundError{Query: query, ModelTried: true}
	}

	if result, err := l.locateLiteral(doc, candidate, opts, true); result != nil || err != nil {
		return result, err
	}
	if span, ok := normalizedMatch(doc.Content, candidate); ok {
		matched := span.Text(doc)
		if result, err := l.locateLiteral(doc, matched, opts, true); result != nil || err != nil {
			return result, err
		}
	}

	return nil, &NotFoundError{Query: query, ModelTried: true}
}

// locateLiteral finds all exact occurrences of needle and applies the
// selection policy: explicit occurrence index first, then context hint,
// then first occurrence. Returns (nil, nil) when there is no match.
func (l *Locator) locateLiteral(doc model.Document, needle string, opts LocateOptions, modelAssist bool) (*model.LocateResult, error) {
	offsets := indexAll(doc.Content, needle)
	if len(offsets) == 0 {
		return nil, nil
	}

	idx := 0
	switch {
	case opts.Occurrence > 0:
		if opts.Occurrence > len(offsets) {
			return nil, fmt.Errorf("locate: occurrence %d requested but only %d match(es) exist", opts.Occurrence, len(offsets))
		}
		idx = opts.Occurrence - 1
	case opts.ContextHint != "" && len(offsets) > 1:
		idx = pickByHint(doc.Content, offsets, len(needle), opts.ContextHint)
	}

	span := model.Span{Start: offsets[idx], End: offsets[idx] + len(needle)}
	return &model.LocateResult{
		Span:        span,
		Text:        span.Text(doc),
		Ambiguous:   len(offsets) > 1,
		Occurrences: len(offsets),
		ModelAssist: modelAssist,
	}, nil
}

// suggestSubstring asks the model to quote the best-matching passage.
// The returned text is a suggestion only; the caller must confirm it.
func (l *Locator) suggestSubstring(ctx context.Context, doc model.Document, query string) (string, error) {
	prompt := fmt.Sprintf(`Find the passage in the document below that best matches the query.

QUERY: %s

DOCUMENT:
%s

Respond with the matching passage copied verbatim from the document: same characters, same punctuation, same casing. No quotes, labels, or explanation. If nothing in the document matches the query, respond with exactly NO_MATCH.`, query, doc.Content)

	resp, err := llm.CompleteWithRetry(ctx, l.provider, llm.CompleteRequest{
		System:      "You locate passages inside documents. You only ever answer with text copied verbatim from the document.",
		Prompt:      prompt,
		Temperature: 0.1,
	}, l.cfg.MaxRetries, l.cfg.RetryDelay)
	if err != nil {
		return "", fmt.Errorf("locate: model-assisted pass: %w", err)
	}

	candidate := cleanModelText(resp.Text)
	if candidate == "NO_MATCH" {
		return "", nil
	}
	return candidate, nil
}

// indexAll returns the start offsets of all non-overlapping occurrences
// of needle in s, in document order.
func indexAll(s, needle string) []int {
	if needle == "" {
		return nil
	}
	var offsets []int
	for from := 0; ; {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			break
		}
		offsets = append(offsets, from+i)
		from += i + len(needle)
	}
	return offsets
}

// normalizedMatch matches query against s treating every whitespace run
// as equivalent. Case remains significant.
func normalizedMatch(s, query string) (model.Span, bool) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return model.Span{}, false
	}
	for i, tok := range tokens {
		tokens[i] = regexp.QuoteMeta(tok)
	}
	re, err := regexp.Compile(strings.Join(tokens, `\s+`))
	if err != nil {
		return model.Span{}, false
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return model.Span{}, false
	}
	return model.Span{Start: loc[0], End: loc[1]}, true
}

// pickByHint returns the index of the occurrence closest to the hint,
// provided the hint appears within the occurrence's surrounding window.
// Falls back to the first occurrence when the hint is absent.
func pickByHint(s string, offsets []int, matchLen int, hint string) int {
	hints := indexAll(s, hint)
	if len(hints) == 0 {
		return 0
	}

	best, bestDist := 0, -1
	for i, off := range offsets {
		for _, h := range hints {
			d := h - (off + matchLen)
			if h < off {
				d = off - (h + len(hint))
			}
			if d < 0 {
				d = 0 // Hint overlaps the match
			}
			if d > hintWindow {
				continue
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}

// cleanModelText strips the wrappers models tend to add around quoted
// text: surrounding quotes, backticks, and code fences.
func cleanModelText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			// Drop a language tag on the opening fence
			s = s[i+1:]
		}
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}
