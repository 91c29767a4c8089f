package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/store"
)

// Engine orchestrates the multi-vector pipeline: tagged document insertion
// and two-stage (candidate generation + MaxSim rerank) search.
type Engine struct {
	store     store.Store
	generator *Generator
	reranker  *Reranker
}

// NewEngine creates a pipeline over the given store. perVectorLimit bounds
// the per-query-vector candidate searches; <= 0 uses the default.
func NewEngine(s store.Store, perVectorLimit int) *Engine {
	return &Engine{
		store:     s,
		generator: NewGenerator(s, perVectorLimit),
		reranker:  NewReranker(s),
	}
}

// InsertDocument stores one record per token vector, all under tag. The
// record text is the JSON payload carrying the tag and the sentence, which
// candidate generation later parses as advisory metadata. Returns the number
// of records written. This is the only path that creates multi-record
// documents.
func (e *Engine) InsertDocument(ctx context.Context, tag string, vectors [][]float32, sentences []string) (int, error) {
	if len(vectors) != len(sentences) {
		return 0, fmt.Errorf("vectors and sentences length mismatch: %d != %d", len(vectors), len(sentences))
	}
	for i, vec := range vectors {
		text := models.EncodePayload(tag, sentences[i])
		if _, err := e.store.Insert(ctx, tag, text, vec); err != nil {
			return i, fmt.Errorf("insert record %d of %q: %w", i, tag, err)
		}
	}
	return len(vectors), nil
}

// Search runs candidate generation then MaxSim reranking and returns the
// topK scored documents. topK <= 0 returns all reranked candidates.
func (e *Engine) Search(ctx context.Context, queryVectors [][]float32, topK int) ([]models.ScoredResult, error) {
	candidates, err := e.generator.Generate(ctx, queryVectors)
	if err != nil {
		return nil, err
	}
	results, err := e.reranker.Rerank(ctx, queryVectors, candidates)
	if err != nil {
		return nil, err
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Store exposes the underlying store for single-vector flows.
func (e *Engine) Store() store.Store {
	return e.store
}
