package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	// EndpointEnvVar overrides the embedding API base URL.
	EndpointEnvVar = "EMBEDDING_API_ENDPOINT"

	lateChunkingPath    = "/late-chunking"
	queryEmbeddingsPath = "/query-embeddings"
	embeddingPath       = "/embedding"

	defaultTimeout = 60 * time.Second
)

// RemoteEncoder calls an embedding HTTP API.
type RemoteEncoder struct {
	baseURL    string
	dimensions int
	client     *http.Client
}

// RemoteConfig holds connection settings for the embedding API.
type RemoteConfig struct {
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// NewRemoteEncoder creates an encoder against the embedding API. The base URL
// falls back to the EMBEDDING_API_ENDPOINT environment variable.
func NewRemoteEncoder(cfg RemoteConfig) (*RemoteEncoder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv(EndpointEnvVar)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("embedding API base URL is not configured")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &RemoteEncoder{
		baseURL:    baseURL,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type lateChunkingRequest struct {
	Markdown string `json:"markdown"`
}

type lateChunkingResponse struct {
	Chunks []Chunk `json:"chunks"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type queryEmbeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EncodeDocument late-chunks markdown via the API.
func (e *RemoteEncoder) EncodeDocument(ctx context.Context, markdown string) ([]Chunk, error) {
	var resp lateChunkingResponse
	if err := e.post(ctx, "late-chunking", lateChunkingPath, lateChunkingRequest{Markdown: markdown}, &resp); err != nil {
		return nil, err
	}
	return resp.Chunks, nil
}

// EncodeQuery returns token-level query vectors via the API.
func (e *RemoteEncoder) EncodeQuery(ctx context.Context, text string) ([][]float32, error) {
	var resp queryEmbeddingsResponse
	if err := e.post(ctx, "query-embeddings", queryEmbeddingsPath, contentRequest{Content: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// EncodeText returns a single pooled vector via the API.
func (e *RemoteEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	if err := e.post(ctx, "embedding", embeddingPath, contentRequest{Content: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// Dimensions returns the configured dimensionality.
func (e *RemoteEncoder) Dimensions() int {
	return e.dimensions
}

func (e *RemoteEncoder) post(ctx context.Context, op, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return models.NewTransportError("embedding "+op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return models.NewTransportError("embedding "+op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.NewTransportError("embedding "+op,
			fmt.Errorf("status %s: %s", resp.Status, bytes.TrimSpace(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewTransportError("embedding "+op+" decode", err)
	}
	return nil
}
