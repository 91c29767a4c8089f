package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/hyperjump/kioku/pkg/utils"
)

// MockEncoder is a deterministic encoder for tests. Vectors are derived from
// a hash of the text so the same input always encodes identically.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic vectors of the
// given dimensionality.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 128
	}
	return &MockEncoder{dimensions: dimensions}
}

// EncodeDocument splits markdown into sentences and encodes each one.
func (e *MockEncoder) EncodeDocument(ctx context.Context, markdown string) ([]Chunk, error) {
	sentences := splitSentences(markdown)
	chunks := make([]Chunk, 0, len(sentences))
	for _, s := range sentences {
		chunks = append(chunks, Chunk{Sentence: s, Embedding: e.vectorFor(s)})
	}
	return chunks, nil
}

// EncodeQuery returns one vector per whitespace-separated token.
func (e *MockEncoder) EncodeQuery(ctx context.Context, text string) ([][]float32, error) {
	tokens := strings.Fields(text)
	vectors := make([][]float32, 0, len(tokens))
	for _, tok := range tokens {
		vectors = append(vectors, e.vectorFor(tok))
	}
	return vectors, nil
}

// EncodeText returns a single vector for the whole text.
func (e *MockEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

// Dimensions returns the vector dimensionality.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

func (e *MockEncoder) vectorFor(text string) []float32 {
	h := hashString(text)
	vec := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(h)*float64(i+1))*0.1 + 0.01)
	}
	// Unit length so dot product behaves like cosine similarity in tests.
	utils.NormalizeL2(vec)
	return vec
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func splitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.Split(line, ". ") {
			part = strings.TrimSpace(strings.TrimSuffix(part, "."))
			if part != "" {
				sentences = append(sentences, part)
			}
		}
	}
	return sentences
}
