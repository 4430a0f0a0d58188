package cag

import "fmt"

// NotFoundError reports that a sub-text query could not be confirmed as
// a literal substring of the document. Offsets are never fabricated: if
// neither the exact passes nor the model-assisted pass yield text that
// re-locates literally, the transaction fails with this error.
type NotFoundError struct {
	Query      string
	ModelTried bool // Whether the model-assisted pass ran before giving up
}

func (e *NotFoundError) Error() string {
	if e.ModelTried {
		return fmt.Sprintf("no literal match for query %q (exact and model-assisted passes failed)", e.Query)
	}
	return fmt.Sprintf("no literal match for query %q", e.Query)
}
