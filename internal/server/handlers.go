package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

type insertRecordRequest struct {
	Tag    string    `json:"tag"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

type searchNearestRequest struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
}

type insertDocumentRequest struct {
	Tag      string `json:"tag"`
	Markdown string `json:"markdown"`
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type askRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	Language string `json:"language"`
}

func (s *Server) handleInsertRecord(w http.ResponseWriter, r *http.Request) {
	var req insertRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.store.Insert(r.Context(), req.Tag, req.Text, req.Vector)
	if err != nil {
		s.respondStoreError(w, "insert record", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]uint32{"id": id})
}

func (s *Server) handleSearchNearest(w http.ResponseWriter, r *http.Request) {
	var req searchNearestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hits, err := s.store.SearchNearest(r.Context(), req.Vector, req.Limit)
	if err != nil {
		s.respondStoreError(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleTaggedEmbeddings(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	bag, err := s.store.FetchByTag(r.Context(), tag)
	if err != nil {
		s.respondStoreError(w, "tagged embeddings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"embeddings": bag})
}

func (s *Server) handleInsertDocument(w http.ResponseWriter, r *http.Request) {
	var req insertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Markdown == "" {
		s.respondError(w, http.StatusBadRequest, "markdown is required")
		return
	}
	tag, n, err := s.ingestor.InsertMarkdown(r.Context(), req.Tag, req.Markdown)
	if err != nil {
		s.respondStoreError(w, "insert document", err)
		return
	}
	s.logger.Debug("document inserted", zap.String("tag", tag), zap.Int("records", n))
	s.respondJSON(w, http.StatusCreated, map[string]any{"tag": tag, "records": n})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.config.Search.TopK
	}
	queryVectors, err := s.encoder.EncodeQuery(r.Context(), req.Query)
	if err != nil {
		s.respondStoreError(w, "encode query", err)
		return
	}
	results, err := s.engine.Search(r.Context(), queryVectors, topK)
	if err != nil {
		s.respondStoreError(w, "query", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.asker == nil {
		s.respondError(w, http.StatusServiceUnavailable, "ask flow is not configured")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	prompt, answer, err := s.asker.Ask(r.Context(), req.Query, req.TopK, req.Language)
	if err != nil {
		s.respondStoreError(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"prompt": prompt, "answer": answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondStoreError maps core error kinds onto HTTP statuses: dimension
// mismatches are the caller's fault, transport failures are upstream.
func (s *Server) respondStoreError(w http.ResponseWriter, op string, err error) {
	var terr *models.TransportError
	switch {
	case errors.Is(err, models.ErrDimensionMismatch):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &terr):
		s.logger.Error(op+" failed upstream", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
