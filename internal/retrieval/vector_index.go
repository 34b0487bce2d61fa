// Package retrieval implements the hybrid retrieval pipeline: semantic
// fan-out, keyword scoring, score fusion, adaptive thresholding,
// structural re-ranking, and the keyword-anchoring fallback.
package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// VectorIndex is the contract with the external vector index. The metric
// is cosine; metadata values are limited to strings, numbers, booleans,
// and lists of strings. Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Upsert writes records, overwriting by ID.
	Upsert(ctx context.Context, records []Record) error

	// ReplaceDocument atomically swaps every record of a document for the
	// given set. Readers observe either the old or the new snapshot.
	ReplaceDocument(ctx context.Context, docID string, records []Record) error

	// DeleteByFilter removes all records matching the filter.
	DeleteByFilter(ctx context.Context, filter Filter) error

	// Query returns the topK records nearest to vector.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)

	// Scan returns up to limit records, most recently written first.
	// Used only by the keyword-anchoring fallback.
	Scan(ctx context.Context, filter Filter, limit int) ([]ScanRecord, error)

	// Stats reports index size and shape.
	Stats(ctx context.Context) (Stats, error)

	// Close releases resources.
	Close() error
}

// Record is a vector plus its chunk metadata, keyed by chunk ID.
type Record struct {
	ID       string
	DocID    string
	Vector   []float32
	Metadata map[string]interface{}
}

// Match is a similarity search hit. Score is cosine similarity in [0,1].
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// ScanRecord is a metadata-only record returned by Scan.
type ScanRecord struct {
	ID       string
	Metadata map[string]interface{}
}

// Stats describes the index.
type Stats struct {
	Count     int
	Dimension int
	Metric    string
}

// Filter restricts matches by metadata equality. A filter value matches a
// list-valued metadata entry when the list contains it.
type Filter map[string]string

// Errors shared by index implementations.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrZeroVector        = errors.New("all-zero vector rejected")
)

// ValidateMetadata enforces the scalar-or-list-of-strings rule. The index
// refuses nested structures, so counted terms must arrive flattened.
func ValidateMetadata(meta map[string]interface{}) error {
	for key, value := range meta {
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64, []string:
		default:
			return fmt.Errorf("metadata key %q has unsupported type %T", key, value)
		}
	}
	return nil
}

// MetadataString reads a string field from match metadata.
func MetadataString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// MetadataInt reads a numeric field from match metadata.
func MetadataInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
