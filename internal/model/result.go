package model

// LocateResult is the outcome of locating a sub-text query inside a
// document. Produced once per modification transaction and consumed
// immediately by the rewriter; never cached.
type LocateResult struct {
	Span        Span   `json:"span"`                   // Confirmed offsets of the match
	Text        string `json:"text"`                   // The matched text, exactly as it appears in the document
	Ambiguous   bool   `json:"ambiguous"`              // More than one occurrence existed; first (or requested) one was picked
	Occurrences int    `json:"occurrences"`            // Total number of exact occurrences found
	ModelAssist bool   `json:"model_assist,omitempty"` // Match came from the model-assisted pass, confirmed literally
}

// EditInstruction describes how a located span should be rewritten.
type EditInstruction struct {
	Text      string  `json:"text"`      // Free-text user instruction
	Tolerance float64 `json:"tolerance"` // Allowed word-count variation (0.2 = ±20%); 0 means default
}

// RewriteResult is the replacement produced for a located span.
type RewriteResult struct {
	Replacement     string `json:"replacement"`
	WordCount       int    `json:"word_count"`
	TargetWords     int    `json:"target_words"`      // Word count of the original span
	WithinTolerance bool   `json:"within_tolerance"`  // False means the result was accepted with a tolerance warning
	Attempts        int    `json:"attempts"`          // Generation attempts consumed
	Model           string `json:"model,omitempty"`   // Model that produced the accepted replacement
}

// SpliceResult is a document with one span replaced, plus the offsets of
// the replacement inside the new document.
type SpliceResult struct {
	Document Document `json:"document"`
	Span     Span     `json:"span"`
}

// Citation is a single source reference emitted by content preparation.
type Citation struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PrepareResult is a generated passage with its citations.
type PrepareResult struct {
	Text            string     `json:"text"`
	Citations       []Citation `json:"citations"`
	WordCount       int        `json:"word_count"`
	WithinTolerance bool       `json:"within_tolerance"`
	Grounded        bool       `json:"grounded"` // False when the source fetch failed and generation fell back to model knowledge
	SourceURL       string     `json:"source_url,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// DocumentSummary is a stored document as returned by store listings
// and searches.
type DocumentSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary,omitempty"`
	WordCount int     `json:"word_count"`
	Score     float64 `json:"score,omitempty"` // Similarity score for semantic search results
}
