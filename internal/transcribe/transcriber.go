package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// File size limits enforced before the upload. Anything under the
// minimum is silence or a truncated write; anything over the maximum
// exceeds the speech-to-text endpoint's request limit.
const (
	MinFileBytes = 100
	MaxFileBytes = 10 << 20 // 10 MB
)

var supportedExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// SupportedFormats returns the accepted audio extensions, sorted.
func SupportedFormats() []string {
	formats := make([]string, 0, len(supportedExts))
	for ext := range supportedExts {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// ValidationError reports a file rejected before any network call.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid audio file %q: %s", e.Path, e.Reason)
}

// Result holds a completed transcription.
type Result struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// Transcriber validates audio files and converts them to text through a
// speech-to-text backend.
type Transcriber struct {
	backend llm.Transcriber
}

// New creates a Transcriber. backend must not be nil; the OpenAI
// provider satisfies llm.Transcriber.
func New(backend llm.Transcriber) *Transcriber {
	return &Transcriber{backend: backend}
}

// Transcribe validates the file locally, then sends it for
// transcription. Validation failures return *ValidationError without
// touching the network.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (*Result, error) {
	info, err := ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if t.backend == nil {
		return nil, fmt.Errorf("transcribe: no speech-to-text provider configured")
	}

	text, err := t.backend.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)

	return &Result{
		Path:      path,
		Format:    strings.ToLower(filepath.Ext(path)),
		SizeBytes: info.Size(),
		Text:      text,
		WordCount: model.WordCount(text),
	}, nil
}

// ValidateFile checks that path names a regular file in a supported
// audio format within the size limits.
func ValidateFile(path string) (os.FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExts[ext] {
		return nil, &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported format %q (supported: %s)", ext, strings.Join(SupportedFormats(), ", ")),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ValidationError{Path: path, Reason: "file does not exist"}
		}
		return nil, fmt.Errorf("transcribe: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, &ValidationError{Path: path, Reason: "path is a directory"}
	}
	if info.Size() < MinFileBytes {
		return nil, &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("file too small (%d bytes, minimum %d)", info.Size(), MinFileBytes),
		}
	}
	if info.Size() > MaxFileBytes {
		return nil, &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("file too large (%d bytes, maximum %d)", info.Size(), MaxFileBytes),
		}
	}
	return info, nil
}
