package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/ask"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/ingest"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/store/memory"
)

type staticChat struct{ reply string }

func (c *staticChat) Complete(ctx context.Context, prompt string) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) (*Server, *memory.Store, *embedding.MockEncoder) {
	t.Helper()
	const dims = 8
	s, err := memory.NewStore(dims)
	if err != nil {
		t.Fatal(err)
	}
	encoder := embedding.NewMockEncoder(dims)
	engine := search.NewEngine(s, 5)
	ingestor := ingest.NewIngestor(engine, encoder)
	asker := ask.NewAsker(s, encoder, &staticChat{reply: "<answer>yes</answer>"})
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewServer(s, engine, encoder, ingestor, asker, cfg, zap.NewNop()), s, encoder
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleInsertRecordAndSearch(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	vec := make([]float32, 8)
	vec[0] = 1
	rec := postJSON(t, router, "/api/v1/records", map[string]any{
		"tag":    "doc-1",
		"text":   models.EncodePayload("doc-1", "hello"),
		"vector": vec,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("insert status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, router, "/api/v1/search", map[string]any{"vector": vec, "limit": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status=%d", rec.Code)
	}
	var resp struct {
		Results []models.Hit `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results=%+v", resp.Results)
	}
}

func TestHandleInsertRecord_DimensionMismatch(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := postJSON(t, srv.Router(), "/api/v1/records", map[string]any{
		"tag": "doc", "text": "t", "vector": []float32{1},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rec.Code)
	}
}

func TestHandleTaggedEmbeddings(t *testing.T) {
	srv, s, _ := newTestServer(t)
	vec := make([]float32, 8)
	vec[1] = 1
	if _, err := s.Insert(context.Background(), "doc-1", "t", vec); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tags/doc-1/embeddings", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Embeddings) != 1 {
		t.Errorf("embeddings=%v", resp.Embeddings)
	}
}

func TestHandleInsertDocumentAndQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	rec := postJSON(t, router, "/api/v1/documents", map[string]any{
		"tag":      "notes",
		"markdown": "apples are red. oranges are orange.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("insert document status=%d body=%s", rec.Code, rec.Body.String())
	}
	var ins struct {
		Tag     string `json:"tag"`
		Records int    `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ins); err != nil {
		t.Fatal(err)
	}
	if ins.Tag != "notes" || ins.Records != 2 {
		t.Errorf("insert response: %+v", ins)
	}

	rec = postJSON(t, router, "/api/v1/query", map[string]any{"query": "apples are red", "top_k": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("query status=%d body=%s", rec.Code, rec.Body.String())
	}
	var q struct {
		Results []models.ScoredResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatal(err)
	}
	if len(q.Results) == 0 || q.Results[0].Tag != "notes" {
		t.Errorf("results=%+v", q.Results)
	}
}

func TestHandleAsk(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	rec := postJSON(t, router, "/api/v1/documents", map[string]any{
		"tag": "doc", "markdown": "the sky is blue.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec = postJSON(t, router, "/api/v1/ask", map[string]any{"query": "what color is the sky"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["answer"] != "yes" {
		t.Errorf("answer=%q", resp["answer"])
	}
	if resp["prompt"] == "" {
		t.Error("prompt missing")
	}
}

func TestHandleAsk_NotConfigured(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.asker = nil
	rec := postJSON(t, srv.Router(), "/api/v1/ask", map[string]any{"query": "q"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status=%d, want 503", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := postJSON(t, srv.Router(), "/api/v1/query", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rec.Code)
	}
}

func TestServerIsLedgerCompatible(t *testing.T) {
	// The server's wire API must satisfy the ledger client, so one node can
	// back another.
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	vec := make([]float32, 8)
	vec[0] = 1
	body, _ := json.Marshal(map[string]any{
		"tag": "doc", "text": models.EncodePayload("doc", "s"), "vector": vec,
	})
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/records", ts.URL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status=%d", resp.StatusCode)
	}
}
