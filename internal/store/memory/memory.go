// Package memory provides an in-process embedding store using brute-force
// dot-product search. Suitable for tests and small memories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kioku/internal/models"
)

// Store is an append-only in-memory embedding store.
type Store struct {
	dimensions int
	mu         sync.RWMutex
	records    []models.Record
	byTag      map[string][]int
}

// NewStore creates an in-memory store with the given fixed dimensionality.
func NewStore(dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Store{
		dimensions: dimensions,
		byTag:      make(map[string][]int),
	}, nil
}

// Insert appends a record and returns its insertion index.
func (s *Store) Insert(ctx context.Context, tag, text string, vector []float32) (uint32, error) {
	if len(vector) != s.dimensions {
		return 0, fmt.Errorf("insert: got %d, expected %d: %w", len(vector), s.dimensions, models.ErrDimensionMismatch)
	}
	vec := make([]float32, s.dimensions)
	copy(vec, vector)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uint32(len(s.records))
	s.records = append(s.records, models.Record{ID: id, Tag: tag, Text: text, Vector: vec})
	s.byTag[tag] = append(s.byTag[tag], int(id))
	return id, nil
}

// SearchNearest returns the top-k records by dot product. Equal scores keep
// insertion order (stable sort over records already in insertion order).
func (s *Store) SearchNearest(ctx context.Context, vector []float32, k int) ([]models.Hit, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("search: got %d, expected %d: %w", len(vector), s.dimensions, models.ErrDimensionMismatch)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.records) == 0 {
		return []models.Hit{}, nil
	}
	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(s.records))
	for i, rec := range s.records {
		var dot float64
		for j := 0; j < s.dimensions; j++ {
			dot += float64(vector[j] * rec.Vector[j])
		}
		scores[i] = scored{index: i, score: dot}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]models.Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = models.Hit{Score: scores[i].score, Text: s.records[scores[i].index].Text}
	}
	return hits, nil
}

// FetchByTag returns the tag's vectors in insertion order.
func (s *Store) FetchByTag(ctx context.Context, tag string) ([][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := s.byTag[tag]
	bag := make([][]float32, 0, len(indices))
	for _, i := range indices {
		vec := make([]float32, s.dimensions)
		copy(vec, s.records[i].Vector)
		bag = append(bag, vec)
	}
	return bag, nil
}

// Size returns the number of records in the store.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
