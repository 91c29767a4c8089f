// Package ledger provides an HTTP client for a remote embedding store. The
// wire API is the same one internal/server exposes, so one kioku node can
// use another as its ledger.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client is a remote embedding store reached over HTTP JSON.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds connection settings for a remote ledger.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a ledger client. A zero timeout uses the default.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type insertRequest struct {
	Tag    string    `json:"tag"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

type insertResponse struct {
	ID uint32 `json:"id"`
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
}

type searchResponse struct {
	Results []models.Hit `json:"results"`
}

type embeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Insert appends a record on the remote store and returns its insertion index.
func (c *Client) Insert(ctx context.Context, tag, text string, vector []float32) (uint32, error) {
	var resp insertResponse
	err := c.postJSON(ctx, "insert", c.baseURL+"/api/v1/records",
		insertRequest{Tag: tag, Text: text, Vector: vector}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// SearchNearest runs a nearest-neighbor search on the remote store. The
// remote orders hits by descending score with insertion-index tie-break.
func (c *Client) SearchNearest(ctx context.Context, vector []float32, k int) ([]models.Hit, error) {
	var resp searchResponse
	err := c.postJSON(ctx, "search", c.baseURL+"/api/v1/search",
		searchRequest{Vector: vector, Limit: k}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []models.Hit{}, nil
	}
	return resp.Results, nil
}

// FetchByTag returns the tag's vector bag from the remote store.
func (c *Client) FetchByTag(ctx context.Context, tag string) ([][]float32, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tags/%s/embeddings", c.baseURL, url.PathEscape(tag))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.NewTransportError("ledger tagged-embeddings", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewTransportError("ledger tagged-embeddings", err)
	}
	defer resp.Body.Close()
	if err := checkStatus("ledger tagged-embeddings", resp); err != nil {
		return nil, err
	}
	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, models.NewTransportError("ledger tagged-embeddings decode", err)
	}
	if out.Embeddings == nil {
		return [][]float32{}, nil
	}
	return out.Embeddings, nil
}

func (c *Client) postJSON(ctx context.Context, op, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ledger %s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return models.NewTransportError("ledger "+op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return models.NewTransportError("ledger "+op, err)
	}
	defer resp.Body.Close()
	if err := checkStatus("ledger "+op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewTransportError("ledger "+op+" decode", err)
	}
	return nil
}

// checkStatus maps remote failures to error kinds. The server answers 400 on
// these routes only for a vector of the wrong dimensionality; everything else
// non-2xx is a transport failure.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%s: %s: %w", op, bytes.TrimSpace(body), models.ErrDimensionMismatch)
	}
	return models.NewTransportError(op, fmt.Errorf("status %s: %s", resp.Status, bytes.TrimSpace(body)))
}
