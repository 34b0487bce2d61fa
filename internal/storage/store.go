// Package storage persists documents and their chunks in SQLite. The
// vector index holds the embeddings; this store is the durable system
// of record used for re-indexing and document listing.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/insurelex/answer-engine/internal/observability"
)

// Common errors.
var (
	ErrNotFound = errors.New("record not found")
)

// Document is one ingested source document.
type Document struct {
	DocID      string
	Title      string
	DocType    string
	ChunkCount int
	WordCount  int
	IngestedAt time.Time
}

// ChunkRow is the persisted form of one chunk.
type ChunkRow struct {
	ChunkID       string
	DocID         string
	Position      int
	SectionAnchor string
	SectionTitle  string
	Method        string
	WordCount     int
	LegalDensity  float64
	Text          string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id      TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	doc_type    TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	word_count  INTEGER NOT NULL,
	ingested_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id       TEXT PRIMARY KEY,
	doc_id         TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	section_anchor TEXT NOT NULL DEFAULT '',
	section_title  TEXT NOT NULL DEFAULT '',
	method         TEXT NOT NULL,
	word_count     INTEGER NOT NULL,
	legal_density  REAL NOT NULL,
	text           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, position);
`

// Store is the SQLite-backed document store. Safe for concurrent use.
type Store struct {
	logger *observability.Logger
	db     *sql.DB
}

// Open opens (and if needed creates) the database at path and applies
// the schema.
func Open(logger *observability.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{logger: logger.WithOperation("storage"), db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument replaces the document and all its chunks in one
// transaction. Readers see either the old chunk set or the new one.
func (s *Store) SaveDocument(ctx context.Context, doc Document, chunks []ChunkRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE doc_id = ?`, doc.DocID); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, title, doc_type, chunk_count, word_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title = excluded.title,
			doc_type = excluded.doc_type,
			chunk_count = excluded.chunk_count,
			word_count = excluded.word_count,
			ingested_at = excluded.ingested_at`,
		doc.DocID, doc.Title, doc.DocType, doc.ChunkCount, doc.WordCount, doc.IngestedAt,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, doc_id, position, section_anchor, section_title,
			method, word_count, legal_density, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ChunkID, chunk.DocID, chunk.Position, chunk.SectionAnchor,
			chunk.SectionTitle, chunk.Method, chunk.WordCount, chunk.LegalDensity,
			chunk.Text,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug().
		Str("doc_id", doc.DocID).
		Int("chunks", len(chunks)).
		Msg("Document saved")

	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, docID string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, title, doc_type, chunk_count, word_count, ingested_at
		FROM documents WHERE doc_id = ?`, docID,
	).Scan(&doc.DocID, &doc.Title, &doc.DocType, &doc.ChunkCount, &doc.WordCount, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, most recently ingested first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, doc_type, chunk_count, word_count, ingested_at
		FROM documents ORDER BY ingested_at DESC, doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DocID, &doc.Title, &doc.DocType, &doc.ChunkCount,
			&doc.WordCount, &doc.IngestedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListChunks returns a document's chunks in source order.
func (s *Store) ListChunks(ctx context.Context, docID string) ([]ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, position, section_anchor, section_title,
			method, word_count, legal_density, text
		FROM chunks WHERE doc_id = ? ORDER BY position`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []ChunkRow
	for rows.Next() {
		var chunk ChunkRow
		if err := rows.Scan(&chunk.ChunkID, &chunk.DocID, &chunk.Position,
			&chunk.SectionAnchor, &chunk.SectionTitle, &chunk.Method,
			&chunk.WordCount, &chunk.LegalDensity, &chunk.Text); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
