package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/store"
)

// Reranker computes exact late-interaction scores for candidate tags using
// their full vector bags.
type Reranker struct {
	store store.Store
}

// NewReranker creates a MaxSim reranker over the given store.
func NewReranker(s store.Store) *Reranker {
	return &Reranker{store: s}
}

// Rerank fetches each candidate's bag and scores it as the sum over query
// vectors of the maximum dot product against the bag. Results are sorted by
// descending score; equal scores keep the input candidate order. A candidate
// whose bag is empty scores negative infinity, so any top-K cut excludes it.
//
// Bag fetches run concurrently; scoring and tie-break always use the
// canonical candidate order, never fetch-completion order.
func (r *Reranker) Rerank(ctx context.Context, queryVectors [][]float32, candidateTags []string) ([]models.ScoredResult, error) {
	if len(candidateTags) == 0 || len(queryVectors) == 0 {
		return []models.ScoredResult{}, nil
	}

	bags := make([][][]float32, len(candidateTags))
	eg, ctx := errgroup.WithContext(ctx)
	for i, tag := range candidateTags {
		i, tag := i, tag
		eg.Go(func() error {
			bag, err := r.store.FetchByTag(ctx, tag)
			if err != nil {
				return fmt.Errorf("fetch bag for %q: %w", tag, err)
			}
			bags[i] = bag
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	results := make([]models.ScoredResult, len(candidateTags))
	for i, tag := range candidateTags {
		results[i] = models.ScoredResult{Tag: tag, Score: lateInteractionScore(queryVectors, bags[i])}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// lateInteractionScore sums, over query vectors, the maximum similarity
// against the bag. An empty bag has no defined maximum and scores -Inf.
func lateInteractionScore(queryVectors, bag [][]float32) float64 {
	if len(bag) == 0 {
		return math.Inf(-1)
	}
	var total float64
	for _, q := range queryVectors {
		total += maxSim(q, bag)
	}
	return total
}
