package cag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// Markers delimiting the span inside the prompt. The model sees exactly
// which text to replace; nothing is re-identified after generation.
const (
	segmentOpen  = "<<<BEGIN SEGMENT>>>"
	segmentClose = "<<<END SEGMENT>>>"
)

// Rewriter regenerates a located span via the language model while
// preserving surrounding coherence and an approximate word budget.
// It is a pure function of the located context: it never sees document
// text outside its context window and cannot affect it.
type Rewriter struct {
	provider llm.Provider
	cfg      model.GenerationConfig
}

// NewRewriter creates a Rewriter backed by the given provider.
func NewRewriter(provider llm.Provider, cfg model.GenerationConfig) *Rewriter {
	return &Rewriter{provider: provider, cfg: cfg}
}

// Rewrite produces a drop-in replacement for exactly the given span.
// The word budget is a generation-time instruction with bounded retry;
// a result outside tolerance after retries is accepted with
// WithinTolerance=false rather than failing the operation.
func (r *Rewriter) Rewrite(ctx context.Context, doc model.Document, span model.Span, instr model.EditInstruction) (*model.RewriteResult, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("rewrite: no LLM provider configured")
	}
	if err := span.Validate(doc.Len()); err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}
	if strings.TrimSpace(instr.Text) == "" {
		return nil, fmt.Errorf("rewrite: instruction must be non-empty")
	}

	original := span.Text(doc)
	origWords := model.WordCount(original)
	lo, hi := toleranceBand(origWords, r.tolerance(instr))

	before, after := contextWindow(doc.Content, span, r.cfg.ContextRadius)
	prompt := buildRewritePrompt(before, original, after, instr.Text, lo, hi)

	attempts := r.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var best *model.RewriteResult
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}

		resp, err := llm.CompleteWithRetry(ctx, r.provider, llm.CompleteRequest{
			System: "You are a careful editor. You rewrite only the delimited segment and return nothing but the replacement text.",
			Prompt: prompt,
		}, r.cfg.MaxRetries, r.cfg.RetryDelay)
		if err != nil {
			return nil, err
		}

		replacement := cleanReplacement(resp.Text)
		if replacement == "" {
			continue
		}

		words := model.WordCount(replacement)
		result := &model.RewriteResult{
			Replacement:     replacement,
			WordCount:       words,
			TargetWords:     origWords,
			WithinTolerance: words >= lo && words <= hi,
			Attempts:        attempt,
			Model:           resp.Model,
		}
		if result.WithinTolerance {
			return result, nil
		}
		if best == nil || bandDistance(words, lo, hi) < bandDistance(best.WordCount, lo, hi) {
			best = result
		}
	}

	if best == nil {
		return nil, &llm.GenerationError{Provider: r.provider.Name(), Attempts: attempts, Err: llm.ErrEmptyCompletion}
	}
	best.Attempts = attempts
	return best, nil
}

func (r *Rewriter) tolerance(instr model.EditInstruction) float64 {
	if instr.Tolerance > 0 {
		return instr.Tolerance
	}
	if r.cfg.WordTolerance > 0 {
		return r.cfg.WordTolerance
	}
	return 0.2
}

// toleranceBand returns the inclusive word-count band [lo, hi] for a
// span of origWords words. The band is never empty: tiny spans always
// admit at least one word of slack in each direction.
func toleranceBand(origWords int, tolerance float64) (lo, hi int) {
	lo = int(math.Floor(float64(origWords) * (1 - tolerance)))
	hi = int(math.Ceil(float64(origWords) * (1 + tolerance)))
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
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

// contextWindow returns up to radius bytes of text on each side of the
// span, snapped outward to rune boundaries. radius 0 means the full
// document.
func contextWindow(s string, span model.Span, radius int) (before, after string) {
	if radius <= 0 {
		return s[:span.Start], s[span.End:]
	}

	lo := span.Start - radius
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(s[lo]) {
		lo--
	}

	hi := span.End + radius
	if hi > len(s) {
		hi = len(s)
	}
	for hi < len(s) && !utf8.RuneStart(s[hi]) {
		hi++
	}

	return s[lo:span.Start], s[span.End:hi]
}

func buildRewritePrompt(before, original, after, instruction string, lo, hi int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Rewrite the text between %s and %s according to the instruction.

INSTRUCTION: %s

Rules:
1. Rewrite ONLY the delimited segment; the surrounding text stays untouched.
2. The replacement must contain between %d and %d words.
3. Match the tone and style of the surrounding text so the result reads naturally in place.
4. Return only the replacement text: no markers, no quotes, no commentary.

`, segmentOpen, segmentClose, instruction, lo, hi)
	b.WriteString(before)
	b.WriteString(segmentOpen)
	b.WriteString(original)
	b.WriteString(segmentClose)
	b.WriteString(after)
	return b.String()
}

// cleanReplacement strips markers and wrappers the model may have
// echoed around the replacement.
func cleanReplacement(s string) string {
	s = strings.ReplaceAll(s, segmentOpen, "")
	s = strings.ReplaceAll(s, segmentClose, "")
	return cleanModelText(s)
}
