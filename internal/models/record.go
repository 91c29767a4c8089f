// Package models defines core data structures for records, search hits, and scored results.
package models

// Record is an immutable tagged embedding stored in a memory. ID is the
// per-memory insertion index; it is monotonically increasing and determines
// tie-break order for equal-score search hits.
type Record struct {
	ID     uint32    `json:"id"`
	Tag    string    `json:"tag"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Hit is a single nearest-neighbor result: the similarity score and the
// matched record's text payload.
type Hit struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// ScoredResult is a reranked document: the tag and its late-interaction score.
type ScoredResult struct {
	Tag   string  `json:"tag"`
	Score float64 `json:"score"`
}
