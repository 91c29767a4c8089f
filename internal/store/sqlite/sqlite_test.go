package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "records.db"), 3)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := []float32{0.25, -1.5, 3}
	if _, err := s.Insert(ctx, "doc-1", "payload", v); err != nil {
		t.Fatal(err)
	}
	bag, err := s.FetchByTag(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(bag) != 1 {
		t.Fatalf("bag size=%d", len(bag))
	}
	for i := range v {
		if math.Abs(float64(bag[0][i]-v[i])) > 1e-6 {
			t.Errorf("vector[%d]=%v, want %v", i, bag[0][i], v[i])
		}
	}
}

func TestStore_SearchOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Insert(ctx, "a", "far", []float32{0, 1, 0})
	_, _ = s.Insert(ctx, "b", "near", []float32{1, 0, 0})
	_, _ = s.Insert(ctx, "c", "mid", []float32{0.5, 0.5, 0})

	hits, err := s.SearchNearest(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Text != "near" || hits[1].Text != "mid" || hits[2].Text != "far" {
		t.Errorf("order: %q, %q, %q", hits[0].Text, hits[1].Text, hits[2].Text)
	}
}

func TestStore_SearchTieBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Insert(ctx, "a", "first", []float32{1, 0, 0})
	_, _ = s.Insert(ctx, "b", "second", []float32{1, 0, 0})

	hits, err := s.SearchNearest(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Text != "first" {
		t.Errorf("earlier insertion should win ties, got %q first", hits[0].Text)
	}
}

func TestStore_EmptyAndUnknown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hits, err := s.SearchNearest(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits on empty store, got %d", len(hits))
	}
	bag, err := s.FetchByTag(ctx, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(bag) != 0 {
		t.Errorf("expected empty bag, got %d", len(bag))
	}
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Insert(ctx, "a", "t", []float32{1}); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("insert: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := s.SearchNearest(ctx, []float32{1}, 1); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestStore_FetchByTagInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Insert(ctx, "doc", "a", []float32{1, 0, 0})
	_, _ = s.Insert(ctx, "other", "b", []float32{0, 1, 0})
	_, _ = s.Insert(ctx, "doc", "c", []float32{0, 0, 1})

	bag, err := s.FetchByTag(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if len(bag) != 2 {
		t.Fatalf("bag size=%d", len(bag))
	}
	if bag[0][0] != 1 || bag[1][2] != 1 {
		t.Error("bag not in insertion order")
	}
}
