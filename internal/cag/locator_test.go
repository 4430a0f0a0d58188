package cag

import (
	"context"
	"errors"
	"testing"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// scriptedProvider returns canned completions in order, repeating the
// last one once the script runs out.
type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedProvider) Name() string                          { return "scripted" }
func (s *scriptedProvider) IsAvailable(ctx context.Context) bool  { return true }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompleteRequest) (*llm.CompleteResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.replies) == 0 {
		return nil, llm.ErrEmptyCompletion
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return &llm.CompleteResponse{Text: s.replies[i], Model: "scripted-model"}, nil
}

func testGenConfig() model.GenerationConfig {
	cfg := model.DefaultConfig().Generation
	cfg.RetryDelay = 0
	return cfg
}

const catDoc = "The cat sat on the old mat near the window."

func TestLocate_ExactMatch(t *testing.T) {
	loc := NewLocator(nil, testGenConfig())
	doc := model.NewDocument(catDoc)

	result, err := loc.Locate(context.Background(), doc, "old mat")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	if result.Text != "old mat" {
		t.Errorf("Text = %q, want %q", result.Text, "old mat")
	}
	if got := doc.Content[result.Span.Start:result.Span.End]; got != "old mat" {
		t.Errorf("document slice at span = %q, want %q", got, "old mat")
	}
	if result.Span.Start != 19 || result.Span.End != 26 {
		t.Errorf("Span = [%d, %d), want [19, 26)", result.Span.Start, result.Span.End)
	}
	if result.Ambiguous {
		t.Error("single occurrence flagged ambiguous")
	}
	if result.ModelAssist {
		t.Error("exact match flagged as model-assisted")
	}
}

// Property from the contract: for any exact substring Q of D,
// D[S.start:S.end] == Q.
func TestLocate_ExactSubstringProperty(t *testing.T) {
	doc := model.NewDocument("alpha beta gamma delta epsilon. Beta again, beta forever.")
	loc := NewLocator(nil, testGenConfig())

	for _, q := range []string{"alpha", "beta gamma", "delta epsilon.", "Beta again", "r."} {
		result, err := loc.Locate(context.Background(), doc, q)
		if err != nil {
			t.Fatalf("Locate(%q) failed: %v", q, err)
		}
		if got := doc.Content[result.Span.Start:result.Span.End]; got != q {
			t.Errorf("Locate(%q): document slice = %q", q, got)
		}
	}
}

func TestLocate_AmbiguousPicksFirst(t *testing.T) {
	doc := model.NewDocument("the mat and the mat and the mat")
	loc := NewLocator(nil, testGenConfig())

	result, err := loc.Locate(context.Background(), doc, "the mat")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	if !result.Ambiguous {
		t.Error("expected ambiguity flag for repeated query")
	}
	if result.Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", result.Occurrences)
	}
	if result.Span.Start != 0 {
		t.Errorf("expected first occurrence, got start %d", result.Span.Start)
	}
}

func TestLocate_OccurrenceSelection(t *testing.T) {
	doc := model.NewDocument("one fish two fish red fish")
	loc := NewLocator(nil, testGenConfig())

	result, err := loc.LocateWithOptions(context.Background(), doc, "fish", LocateOptions{Occurrence: 2})
	if err != nil {
		t.Fatalf("LocateWithOptions failed: %v", err)
	}
	if result.Span.Start != 13 {
		t.Errorf("second occurrence start = %d, want 13", result.Span.Start)
	}

	if _, err := loc.LocateWithOptions(context.Background(), doc, "fish", LocateOptions{Occurrence: 9}); err == nil {
		t.Error("expected error for out-of-range occurrence")
	}
}

func TestLocate_ContextHint(t *testing.T) {
	doc := model.NewDocument("The old door creaked. Later, the old floor creaked too.")
	loc := NewLocator(nil, testGenConfig())

	result, err := loc.LocateWithOptions(context.Background(), doc, "creaked", LocateOptions{ContextHint: "floor"})
	if err != nil {
		t.Fatalf("LocateWithOptions failed: %v", err)
	}
	if result.Span.Start <= 20 {
		t.Errorf("hint should pick the second occurrence, got start %d", result.Span.Start)
	}
}

func TestLocate_WhitespaceNormalized(t *testing.T) {
	doc := model.NewDocument("The report,\n  drafted in haste,\twas wrong.")
	loc := NewLocator(nil, testGenConfig())

	result, err := loc.Locate(context.Background(), doc, "report, drafted in haste,")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if result.Text != "report,\n  drafted in haste," {
		t.Errorf("normalized match text = %q", result.Text)
	}
	if got := doc.Content[result.Span.Start:result.Span.End]; got != result.Text {
		t.Errorf("span slice %q != matched text %q", got, result.Text)
	}
}

func TestLocate_EmptyQuery(t *testing.T) {
	loc := NewLocator(nil, testGenConfig())
	if _, err := loc.Locate(context.Background(), model.NewDocument(catDoc), "  "); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestLocate_NotFoundWithoutProvider(t *testing.T) {
	loc := NewLocator(nil, testGenConfig())
	_, err := loc.Locate(context.Background(), model.NewDocument(catDoc), "purple elephant")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.ModelTried {
		t.Error("ModelTried should be false with no provider")
	}
}

func TestLocate_ModelAssistedConfirmed(t *testing.T) {
	// Model quotes the real passage; the literal pass must confirm it.
	provider := &scriptedProvider{replies: []string{`"old mat"`}}
	loc := NewLocator(provider, testGenConfig())
	doc := model.NewDocument(catDoc)

	result, err := loc.Locate(context.Background(), doc, "the ancient rug")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !result.ModelAssist {
		t.Error("expected model-assisted flag")
	}
	if got := doc.Content[result.Span.Start:result.Span.End]; got != "old mat" {
		t.Errorf("span slice = %q, want %q", got, "old mat")
	}
}

func TestLocate_ModelFabricationRejected(t *testing.T) {
	// Model invents text not present in the document: no offsets may be
	// fabricated from it.
	provider := &scriptedProvider{replies: []string{"the shiny new carpet"}}
	loc := NewLocator(provider, testGenConfig())

	_, err := loc.Locate(context.Background(), model.NewDocument(catDoc), "the ancient rug")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if !nf.ModelTried {
		t.Error("ModelTried should be true after the model pass ran")
	}
}

func TestLocate_ModelSaysNoMatch(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"NO_MATCH"}}
	loc := NewLocator(provider, testGenConfig())

	_, err := loc.Locate(context.Background(), model.NewDocument(catDoc), "quantum entanglement")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
}

func TestIndexAll(t *testing.T) {
	offsets := indexAll("abcabcabc", "abc")
	want := []int{0, 3, 6}
	if len(offsets) != len(want) {
		t.Fatalf("offsets = %v, want %v", offsets, want)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], want[i])
		}
	}

	if got := indexAll("abc", ""); got != nil {
		t.Errorf("empty needle should yield nil, got %v", got)
	}
}

func TestCleanModelText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"quoted text"`, "quoted text"},
		{"`ticked`", "ticked"},
		{"```\nfenced text\n```", "fenced text"},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := cleanModelText(tt.in); got != tt.want {
			t.Errorf("cleanModelText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
