package llm

import (
	"context"
	"time"
)

// CompleteWithRetry calls the provider, re-attempting retryable failures
// up to retries additional times with a fixed delay between attempts.
// No jitter: these calls are interactive and user-triggered, not
// background jobs. The final failure is wrapped in a *GenerationError.
func CompleteWithRetry(ctx context.Context, p Provider, req CompleteRequest, retries int, delay time.Duration) (*CompleteResponse, error) {
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &GenerationError{Provider: p.Name(), Attempts: attempts, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		attempts++
		resp, err := p.Complete(ctx, req)
		if err == nil {
			if resp.Text == "" {
				lastErr = ErrEmptyCompletion
				continue
			}
			return resp, nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return nil, &GenerationError{Provider: p.Name(), Attempts: attempts, Err: lastErr}
}
