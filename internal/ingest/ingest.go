// Package ingest loads markdown and PDF sources into a memory as tagged
// multi-vector documents.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/search"
)

// Ingestor late-chunks source text through the encoder and inserts the
// chunks as one tagged document.
type Ingestor struct {
	engine  *search.Engine
	encoder embedding.Encoder
}

// NewIngestor creates an ingestor over the given pipeline and encoder.
func NewIngestor(engine *search.Engine, encoder embedding.Encoder) *Ingestor {
	return &Ingestor{engine: engine, encoder: encoder}
}

// InsertMarkdown encodes markdown and inserts its chunks under tag. An empty
// tag is replaced with a generated UUID. Returns the tag used and the number
// of records written.
func (g *Ingestor) InsertMarkdown(ctx context.Context, tag, markdown string) (string, int, error) {
	if tag == "" {
		tag = uuid.NewString()
	}
	chunks, err := g.encoder.EncodeDocument(ctx, markdown)
	if err != nil {
		return tag, 0, fmt.Errorf("encode document: %w", err)
	}
	if len(chunks) == 0 {
		return tag, 0, fmt.Errorf("document produced no chunks")
	}
	vectors := make([][]float32, len(chunks))
	sentences := make([]string, len(chunks))
	for i, ch := range chunks {
		vectors[i] = ch.Embedding
		sentences[i] = ch.Sentence
	}
	n, err := g.engine.InsertDocument(ctx, tag, vectors, sentences)
	if err != nil {
		return tag, n, err
	}
	return tag, n, nil
}

// InsertMarkdownFile reads a markdown file from disk and inserts it. An empty
// tag is derived from the file name.
func (g *Ingestor) InsertMarkdownFile(ctx context.Context, tag, path string) (string, int, error) {
	if tag == "" {
		tag = fileTag(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tag, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return g.InsertMarkdown(ctx, tag, string(data))
}

// InsertPDFFile extracts a PDF's text and inserts it. An empty tag is derived
// from the file name.
func (g *Ingestor) InsertPDFFile(ctx context.Context, tag, path string) (string, int, error) {
	if tag == "" {
		tag = fileTag(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tag, 0, fmt.Errorf("read %s: %w", path, err)
	}
	text, err := pdfText(data)
	if err != nil {
		return tag, 0, fmt.Errorf("convert %s: %w", path, err)
	}
	return g.InsertMarkdown(ctx, tag, text)
}

// fileTag derives a tag from a file path: the base name without extension.
func fileTag(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
