package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/store"
)

// DefaultPerVectorLimit is the number of nearest neighbors fetched per query
// vector during candidate generation.
const DefaultPerVectorLimit = 5

// Generator shortlists document tags by running one nearest-neighbor search
// per query vector against the store's approximate index, then deduplicating
// tags in first-seen order. It trades recall for speed ahead of the exact
// MaxSim rerank.
type Generator struct {
	store          store.Store
	perVectorLimit int
}

// NewGenerator creates a candidate generator. perVectorLimit <= 0 uses
// DefaultPerVectorLimit.
func NewGenerator(s store.Store, perVectorLimit int) *Generator {
	if perVectorLimit <= 0 {
		perVectorLimit = DefaultPerVectorLimit
	}
	return &Generator{store: s, perVectorLimit: perVectorLimit}
}

// Generate returns candidate tags without duplicates. The searches run
// concurrently, but hits are merged by query-vector position so the output
// order is identical to sequential execution: query vectors in given order,
// hits within one query vector in descending-score order, first occurrence
// of a tag wins.
//
// A hit whose text is not a payload object carrying a tag is skipped
// silently; that is metadata noise, not a store-integrity failure.
func (g *Generator) Generate(ctx context.Context, queryVectors [][]float32) ([]string, error) {
	if len(queryVectors) == 0 {
		return []string{}, nil
	}

	hitsByVector := make([][]models.Hit, len(queryVectors))
	eg, ctx := errgroup.WithContext(ctx)
	for i, vec := range queryVectors {
		i, vec := i, vec
		eg.Go(func() error {
			hits, err := g.store.SearchNearest(ctx, vec, g.perVectorLimit)
			if err != nil {
				return fmt.Errorf("candidate search for query vector %d: %w", i, err)
			}
			hitsByVector[i] = hits
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	candidates := newOrderedSet()
	for _, hits := range hitsByVector {
		for _, hit := range hits {
			tag, ok := models.ParsePayloadTag(hit.Text)
			if !ok {
				continue
			}
			candidates.Add(tag)
		}
	}
	return candidates.Items(), nil
}
