package model

import (
	"fmt"
	"strings"
)

// Document is an immutable-at-call-time snapshot of source text.
// Each modification transaction receives its own copy; documents are
// never versioned or shared between transactions.
type Document struct {
	Content string `json:"content"`
}

// NewDocument wraps raw text in a Document snapshot.
func NewDocument(content string) Document {
	return Document{Content: content}
}

// Len returns the length of the document in bytes.
func (d Document) Len() int {
	return len(d.Content)
}

// WordCount returns the number of whitespace-separated words.
func (d Document) WordCount() int {
	return WordCount(d.Content)
}

// Span is a half-open byte-offset interval [Start, End) into the document
// it was computed against. A Span is meaningless outside that document and
// is never persisted independently.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Validate checks the span invariant 0 <= Start <= End <= docLen.
// A violation is a programmer error, not a runtime condition.
func (s Span) Validate(docLen int) error {
	if s.Start < 0 || s.Start > s.End || s.End > docLen {
		return fmt.Errorf("invalid span [%d, %d) for document of length %d", s.Start, s.End, docLen)
	}
	return nil
}

// Text returns the document text covered by the span.
// The span must be valid for the document.
func (s Span) Text(d Document) string {
	return d.Content[s.Start:s.End]
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
