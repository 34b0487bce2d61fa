package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory VectorIndex with cosine similarity over
// normalized vectors. Document replacement happens under a single lock,
// so concurrent readers see either the old or the new snapshot of a
// document, never a mixture.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	seq       int64
	records   map[string]storedRecord
}

type storedRecord struct {
	record     Record
	normalized []float32
	seq        int64
}

// MemoryIndexConfig holds index construction settings.
type MemoryIndexConfig struct {
	Dimension int
}

// NewMemoryIndex creates an index with a fixed declared dimension.
func NewMemoryIndex(cfg MemoryIndexConfig) (*MemoryIndex, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", cfg.Dimension)
	}
	return &MemoryIndex{
		dimension: cfg.Dimension,
		records:   make(map[string]storedRecord),
	}, nil
}

// Upsert writes records, overwriting by ID. Vectors must match the
// declared dimension and must not be all-zero.
func (x *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.upsertLocked(records)
}

// ReplaceDocument swaps all records of docID for the given set in one
// critical section.
func (x *MemoryIndex) ReplaceDocument(ctx context.Context, docID string, records []Record) error {
	for _, r := range records {
		if r.DocID != docID {
			return fmt.Errorf("record %s belongs to document %s, not %s", r.ID, r.DocID, docID)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for id, sr := range x.records {
		if sr.record.DocID == docID {
			delete(x.records, id)
		}
	}

	return x.upsertLocked(records)
}

func (x *MemoryIndex) upsertLocked(records []Record) error {
	// Validate the whole batch before touching the map.
	for _, r := range records {
		if len(r.Vector) != x.dimension {
			return fmt.Errorf("%w: expected %d, got %d for id %s",
				ErrDimensionMismatch, x.dimension, len(r.Vector), r.ID)
		}
		if isZeroVector(r.Vector) {
			return fmt.Errorf("%w: id %s", ErrZeroVector, r.ID)
		}
		if err := ValidateMetadata(r.Metadata); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}

	for _, r := range records {
		x.seq++
		x.records[r.ID] = storedRecord{
			record:     r,
			normalized: normalizeVector(r.Vector),
			seq:        x.seq,
		}
	}

	return nil
}

// DeleteByFilter removes all records matching the filter. An empty filter
// clears the index.
func (x *MemoryIndex) DeleteByFilter(ctx context.Context, filter Filter) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id, sr := range x.records {
		if matchesFilter(sr.record.Metadata, filter) {
			delete(x.records, id)
		}
	}
	return nil
}

// Query returns the topK nearest records by cosine similarity. Ties are
// broken by ascending ID for determinism.
func (x *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, x.dimension, len(vector))
	}
	if topK < 1 {
		return nil, nil
	}

	query := normalizeVector(vector)

	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]Match, 0, len(x.records))
	for id, sr := range x.records {
		if !matchesFilter(sr.record.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       id,
			Score:    cosineSimilarity(query, sr.normalized),
			Metadata: sr.record.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Scan returns up to limit records, most recently written first.
func (x *MemoryIndex) Scan(ctx context.Context, filter Filter, limit int) ([]ScanRecord, error) {
	if limit < 1 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type entry struct {
		sr storedRecord
		id string
	}
	entries := make([]entry, 0, len(x.records))
	for id, sr := range x.records {
		if !matchesFilter(sr.record.Metadata, filter) {
			continue
		}
		entries = append(entries, entry{sr: sr, id: id})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].sr.seq > entries[j].sr.seq })

	if limit < len(entries) {
		entries = entries[:limit]
	}

	out := make([]ScanRecord, len(entries))
	for i, e := range entries {
		out[i] = ScanRecord{ID: e.id, Metadata: e.sr.record.Metadata}
	}
	return out, nil
}

// Stats reports the index shape.
func (x *MemoryIndex) Stats(ctx context.Context) (Stats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{
		Count:     len(x.records),
		Dimension: x.dimension,
		Metric:    "cosine",
	}, nil
}

// Close releases resources.
func (x *MemoryIndex) Close() error {
	return nil
}

var _ VectorIndex = (*MemoryIndex)(nil)

// matchesFilter checks metadata equality; list-valued entries match on
// containment.
func matchesFilter(meta map[string]interface{}, filter Filter) bool {
	for key, want := range filter {
		value, ok := meta[key]
		if !ok {
			return false
		}
		switch v := value.(type) {
		case string:
			if v != want {
				return false
			}
		case []string:
			found := false
			for _, item := range v {
				if item == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprint(v) != want {
				return false
			}
		}
	}
	return true
}

// cosineSimilarity is the dot product of two normalized vectors, clamped
// to [0,1].
func cosineSimilarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot > 1 {
		dot = 1
	}
	if dot < 0 {
		dot = 0
	}
	return dot
}

// normalizeVector returns a unit vector.
func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / norm)
	}
	return normalized
}

// isZeroVector reports whether every component is zero.
func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
