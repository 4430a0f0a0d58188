package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
)

// ErrNotFound is returned when no document matches the given id or title.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL UNIQUE,
	content    TEXT NOT NULL,
	citations  TEXT NOT NULL DEFAULT '[]',
	word_count INTEGER NOT NULL,
	grounded   INTEGER NOT NULL DEFAULT 0,
	source_url TEXT NOT NULL DEFAULT '',
	embedding  BLOB,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Document is a stored passage with its citations and provenance.
type Document struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Citations []model.Citation `json:"citations"`
	WordCount int              `json:"word_count"`
	Grounded  bool             `json:"grounded"`
	SourceURL string           `json:"source_url,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store persists documents in SQLite. When an embedder is configured,
// saved documents carry an embedding vector and Search ranks by cosine
// similarity; otherwise Search falls back to keyword matching.
type Store struct {
	db       *sql.DB
	embedder llm.Embedder
}

// Open opens (creating if needed) the database at path. embedder may be
// nil; semantic search is then unavailable.
func Open(path string, embedder llm.Embedder) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes access itself, but a single
	// connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db, embedder: embedder}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts the document, or updates it if one with the same title
// already exists. Returns the document id.
func (s *Store) Save(ctx context.Context, doc *Document) (string, error) {
	if doc.Title == "" {
		return "", fmt.Errorf("store: title must be non-empty")
	}
	if doc.Content == "" {
		return "", fmt.Errorf("store: content must be non-empty")
	}
	if doc.WordCount == 0 {
		doc.WordCount = model.WordCount(doc.Content)
	}

	citations, err := json.Marshal(doc.Citations)
	if err != nil {
		return "", fmt.Errorf("store: encode citations: %w", err)
	}

	var embedding []byte
	if s.embedder != nil {
		vectors, err := s.embedder.Embed(ctx, []string{doc.Title + "\n" + doc.Content})
		if err != nil {
			return "", fmt.Errorf("store: embed document: %w", err)
		}
		if len(vectors) == 1 {
			embedding = encodeVector(vectors[0])
		}
	}

	now := time.Now().UTC()

	var existing string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE title = ?`, doc.Title).Scan(&existing)
	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx, `
			UPDATE documents
			SET content = ?, citations = ?, word_count = ?, grounded = ?, source_url = ?, embedding = ?, updated_at = ?
			WHERE id = ?`,
			doc.Content, string(citations), doc.WordCount, boolInt(doc.Grounded), doc.SourceURL, embedding, now.Format(time.RFC3339), existing)
		if err != nil {
			return "", fmt.Errorf("store: update document: %w", err)
		}
		doc.ID = existing
		return existing, nil
	case errors.Is(err, sql.ErrNoRows):
		id := uuid.NewString()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, citations, word_count, grounded, source_url, embedding, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, doc.Title, doc.Content, string(citations), doc.WordCount, boolInt(doc.Grounded), doc.SourceURL, embedding,
			now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return "", fmt.Errorf("store: insert document: %w", err)
		}
		doc.ID = id
		return id, nil
	default:
		return "", fmt.Errorf("store: lookup title: %w", err)
	}
}

// Load returns the document with the given id.
func (s *Store) Load(ctx context.Context, id string) (*Document, error) {
	return s.loadWhere(ctx, "id = ?", id)
}

// LoadByTitle returns the document with the given title.
func (s *Store) LoadByTitle(ctx context.Context, title string) (*Document, error) {
	return s.loadWhere(ctx, "title = ?", title)
}

func (s *Store) loadWhere(ctx context.Context, where string, arg any) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, citations, word_count, grounded, source_url, created_at, updated_at
		FROM documents WHERE `+where, arg)

	var doc Document
	var citations string
	var grounded int
	var created, updated string
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &citations, &doc.WordCount, &grounded, &doc.SourceURL, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load document: %w", err)
	}

	if err := json.Unmarshal([]byte(citations), &doc.Citations); err != nil {
		return nil, fmt.Errorf("store: decode citations: %w", err)
	}
	doc.Grounded = grounded != 0
	doc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &doc, nil
}

// List returns summaries of all documents, newest first.
func (s *Store) List(ctx context.Context) ([]model.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, word_count
		FROM documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
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

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
