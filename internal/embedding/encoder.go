// Package embedding provides token-level text encoders.
package embedding

import "context"

// Chunk is one late-chunked sentence of a document together with its vector.
type Chunk struct {
	Sentence  string    `json:"sentence"`
	Embedding []float32 `json:"embedding"`
}

// Encoder turns text into embedding vectors. Document and query encodings
// differ (late chunking vs. token-level query vectors), so both are explicit.
type Encoder interface {
	// EncodeDocument late-chunks markdown into sentences, one vector each.
	EncodeDocument(ctx context.Context, markdown string) ([]Chunk, error)
	// EncodeQuery returns one vector per query token, in token order.
	EncodeQuery(ctx context.Context, text string) ([][]float32, error)
	// EncodeText returns a single pooled vector for text (ask flow).
	EncodeText(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector dimensionality the encoder produces.
	Dimensions() int
}
