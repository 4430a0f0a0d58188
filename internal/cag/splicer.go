package cag

import (
	"fmt"

	"github.com/scriptorium/scriptor/internal/model"
)

// Splice replaces the span in doc with replacement and returns the new
// document together with the span locating the replacement inside it.
// Pure, deterministic string surgery; the only failure mode is an
// invalid span, which is a programmer error.
func Splice(doc model.Document, span model.Span, replacement string) (*model.SpliceResult, error) {
	if err := span.Validate(doc.Len()); err != nil {
		return nil, fmt.Errorf("splice: %w", err)
	}

	content := doc.Content[:span.Start] + replacement + doc.Content[span.End:]
	return &model.SpliceResult{
		Document: model.NewDocument(content),
		Span:     model.Span{Start: span.Start, End: span.Start + len(replacement)},
	}, nil
}
