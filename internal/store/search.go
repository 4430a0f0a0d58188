package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/scriptorium/scriptor/internal/model"
)

// Search returns up to limit documents ranked by relevance to query.
// With an embedder configured it ranks by cosine similarity over stored
// embeddings; without one (or when the query cannot be embedded) it
// falls back to keyword matching on title and content.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("store: query must be non-empty")
	}
	if limit <= 0 {
		limit = 5
	}

	if s.embedder != nil {
		results, err := s.semanticSearch(ctx, query, limit)
		if err == nil {
			return results, nil
		}
		// Embedding endpoint down: degrade to keyword search.
	}
	return s.keywordSearch(ctx, query, limit)
}

func (s *Store) semanticSearch(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("store: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("store: embed query: got %d vectors", len(vectors))
	}
	queryVec := vectors[0]

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, word_count, embedding
		FROM documents WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: load embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentSummary
	for rows.Next() {
		var d model.DocumentSummary
		var content string
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Title, &content, &d.WordCount, &blob); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			continue
		}
		d.Score = cosineSimilarity(queryVec, vec)
		d.Summary = snippet(content, 30)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) keywordSearch(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, word_count
		FROM documents
		WHERE lower(title) LIKE ? OR lower(content) LIKE ?
		ORDER BY updated_at DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentSummary
	for rows.Next() {
		var d model.DocumentSummary
		var content string
		if err := rows.Scan(&d.ID, &d.Title, &content, &d.WordCount); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		d.Summary = snippet(content, 30)
		out = append(out, d)
	}
	return out, rows.Err()
}

// encodeVector packs float32s as little-endian bytes for BLOB storage.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("store: malformed embedding (%d bytes)", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// snippet returns the first n words of s.
func snippet(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ") + "..."
}
