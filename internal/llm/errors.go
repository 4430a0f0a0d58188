package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// GenerationError reports that a model call failed after the bounded
// retry budget was exhausted. It is terminal for the current transaction
// and must be surfaced to the caller, never swallowed.
type GenerationError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ErrEmptyCompletion signals that the model returned no usable text.
// Treated as retryable: a re-request may still succeed.
var ErrEmptyCompletion = errors.New("model returned empty completion")

// retryable reports whether a failed call is worth re-attempting.
// Timeouts, transient network failures, and empty completions are;
// everything else (auth, malformed request) is not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	return false
}

// StatusError carries an HTTP status from a provider API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Code, e.Message)
}
