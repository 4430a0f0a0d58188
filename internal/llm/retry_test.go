package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider returns scripted responses in order, then repeats the last.
type fakeProvider struct {
	responses []fakeReply
	calls     int
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return &CompleteResponse{Text: r.text, Model: "fake-model"}, nil
}

func TestCompleteWithRetry_SucceedsFirstAttempt(t *testing.T) {
	p := &fakeProvider{responses: []fakeReply{{text: "ok"}}}

	resp, err := CompleteWithRetry(context.Background(), p, CompleteRequest{Prompt: "x"}, 2, time.Millisecond)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if p.calls != 1 {
		t.Errorf("Expected 1 call, got %d", p.calls)
	}
}

func TestCompleteWithRetry_RecoversFromTransientFailure(t *testing.T) {
	p := &fakeProvider{responses: []fakeReply{
		{err: &StatusError{Code: 429, Message: "rate limited"}},
		{err: ErrEmptyCompletion},
		{text: "recovered"},
	}}

	resp, err := CompleteWithRetry(context.Background(), p, CompleteRequest{Prompt: "x"}, 2, time.Millisecond)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Text != "recovered" {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if p.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", p.calls)
	}
}

func TestCompleteWithRetry_ExhaustsBudget(t *testing.T) {
	p := &fakeProvider{responses: []fakeReply{
		{err: &StatusError{Code: 500, Message: "boom"}},
	}}

	_, err := CompleteWithRetry(context.Background(), p, CompleteRequest{Prompt: "x"}, 2, time.Millisecond)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected *GenerationError, got %T", err)
	}
	if genErr.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", genErr.Attempts)
	}
	if p.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", p.calls)
	}
}

func TestCompleteWithRetry_StopsOnNonRetryable(t *testing.T) {
	p := &fakeProvider{responses: []fakeReply{
		{err: &StatusError{Code: 401, Message: "bad key"}},
	}}

	_, err := CompleteWithRetry(context.Background(), p, CompleteRequest{Prompt: "x"}, 2, time.Millisecond)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if p.calls != 1 {
		t.Errorf("Expected 1 call for non-retryable failure, got %d", p.calls)
	}
}

func TestCompleteWithRetry_EmptyTextTreatedAsFailure(t *testing.T) {
	p := &fakeProvider{responses: []fakeReply{{text: ""}}}

	_, err := CompleteWithRetry(context.Background(), p, CompleteRequest{Prompt: "x"}, 1, time.Millisecond)
	if err == nil {
		t.Fatal("Expected error for empty completions, got nil")
	}
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Expected ErrEmptyCompletion in chain, got %v", err)
	}
	if p.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", p.calls)
	}
}
