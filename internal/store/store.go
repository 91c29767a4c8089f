// Package store defines the embedding store contract shared by all backends.
package store

import (
	"context"

	"github.com/hyperjump/kioku/internal/models"
)

// Store is an append-only collection of tagged embedding records supporting
// single-vector nearest-neighbor search and tag-indexed bag fetch. Records
// are never mutated or deleted.
type Store interface {
	// Insert appends a record under tag and returns its insertion index.
	// Returns models.ErrDimensionMismatch when len(vector) differs from the
	// memory's dimensionality. No deduplication: inserting the same
	// (tag, vector) twice creates two records.
	Insert(ctx context.Context, tag, text string, vector []float32) (uint32, error)

	// SearchNearest returns up to k hits ranked by descending dot product
	// against vector. Ties are broken by insertion index (earlier wins).
	// An empty memory yields an empty slice, not an error.
	SearchNearest(ctx context.Context, vector []float32, k int) ([]models.Hit, error)

	// FetchByTag returns the tag's vector bag in insertion order. An unknown
	// tag yields an empty slice, not an error: upstream logic may produce
	// tags speculatively.
	FetchByTag(ctx context.Context, tag string) ([][]float32, error)
}
