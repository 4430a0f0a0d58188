package scrape

import "fmt"

// SourceUnavailableError reports that a grounding source could not be
// fetched or extracted. Callers recover locally: generation proceeds
// without grounding and the caller is told the result is ungrounded.
type SourceUnavailableError struct {
	URL    string
	Reason string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source unavailable: %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("source unavailable: %s: %s", e.URL, e.Reason)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
