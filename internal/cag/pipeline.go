package cag

import (
	"context"
	"fmt"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// Pipeline runs one context-aware modification transaction:
// Locate -> Rewrite -> Splice, strictly in sequence. Each transaction
// owns its document copy; concurrent transactions share no state.
type Pipeline struct {
	locator  *Locator
	rewriter *Rewriter
}

// NewPipeline wires the pipeline components against one provider.
func NewPipeline(provider llm.Provider, cfg model.GenerationConfig) *Pipeline {
	return &Pipeline{
		locator:  NewLocator(provider, cfg),
		rewriter: NewRewriter(provider, cfg),
	}
}

// ModifyRequest describes one modification transaction.
type ModifyRequest struct {
	Document    model.Document
	Query       string // Sub-text to locate
	Instruction string // How to rewrite it
	Tolerance   float64
	Occurrence  int    // Optional: pick the nth exact match (1-based)
	ContextHint string // Optional: disambiguate by surrounding text
}

// ModifyResult carries the outcome of every stage, so callers can
// highlight the old and new spans and surface warnings.
type ModifyResult struct {
	Locate   *model.LocateResult
	Rewrite  *model.RewriteResult
	Splice   *model.SpliceResult
	Warnings []string
}

// Modify runs the transaction. Locator output is a precondition for the
// Rewriter and mandatory for the Splicer; the Rewriter never re-locates.
func (p *Pipeline) Modify(ctx context.Context, req ModifyRequest) (*ModifyResult, error) {
	located, err := p.locator.LocateWithOptions(ctx, req.Document, req.Query, LocateOptions{
		Occurrence:  req.Occurrence,
		ContextHint: req.ContextHint,
	})
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}

	rewritten, err := p.rewriter.Rewrite(ctx, req.Document, located.Span, model.EditInstruction{
		Text:      req.Instruction,
		Tolerance: req.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}

	spliced, err := Splice(req.Document, located.Span, rewritten.Replacement)
	if err != nil {
		return nil, err
	}

	result := &ModifyResult{
		Locate:  located,
		Rewrite: rewritten,
		Splice:  spliced,
	}
	if located.Ambiguous && req.Occurrence == 0 && req.ContextHint == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("query matched %d locations; first occurrence was modified", located.Occurrences))
	}
	if !rewritten.WithinTolerance {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("replacement is %d words, outside ±%.0f%% of the original %d",
				rewritten.WordCount, p.rewriter.tolerance(model.EditInstruction{Tolerance: req.Tolerance})*100, rewritten.TargetWords))
	}
	return result, nil
}
