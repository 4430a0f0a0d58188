package prepare

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scriptorium/scriptor/internal/model"
)

// citationLine matches "[1] Description - https://example.com/page".
var citationLine = regexp.MustCompile(`^\[(\d+)\]\s*(.*?)\s*-\s*(https?://\S+)\s*$`)

// parseStructured splits a model response in the
// ARTICLE:/WORD_COUNT:/CITATIONS: format into its parts. The parser is
// lenient: models drift from the requested layout, so anything before
// the first section marker is treated as article text.
func parseStructured(response string) (article string, citations []model.Citation) {
	var articleLines []string
	section := "article"

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "ARTICLE:"):
			section = "article"
			if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "ARTICLE:")); rest != "" {
				articleLines = append(articleLines, rest)
			}
		case strings.HasPrefix(trimmed, "WORD_COUNT:"):
			// The model's own count is unreliable; recounted later.
			section = "skip"
		case strings.HasPrefix(trimmed, "CITATIONS:"):
			section = "citations"
		case section == "article" && trimmed != "":
			articleLines = append(articleLines, trimmed)
		case section == "citations":
			if c, ok := parseCitation(trimmed); ok {
				citations = append(citations, c)
			}
		}
	}

	return strings.TrimSpace(strings.Join(articleLines, " ")), citations
}

// parseCitation parses a single "[n] label - url" line.
func parseCitation(line string) (model.Citation, bool) {
	m := citationLine.FindStringSubmatch(line)
	if m == nil {
		return model.Citation{}, false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return model.Citation{}, false
	}
	return model.Citation{
		Index: index,
		Label: strings.TrimSpace(m[2]),
		URL:   strings.TrimRight(m[3], ".,;:!?"),
	}, true
}

// containsURL reports whether any citation references the given URL.
func containsURL(citations []model.Citation, url string) bool {
	for _, c := range citations {
		if c.URL == url {
			return true
		}
	}
	return false
}

// renumber rewrites citation indices to 1..n in order.
func renumber(citations []model.Citation) []model.Citation {
	for i := range citations {
		citations[i].Index = i + 1
	}
	return citations
}
