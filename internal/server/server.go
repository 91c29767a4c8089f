// Package server provides the HTTP API for kioku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/ask"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/ingest"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/store"
)

// Server is the HTTP server for the kioku API. It serves both the raw store
// contract (records, search, tagged embeddings) and the pipeline endpoints
// (documents, multi-vector query, ask), so another node can use this one as
// its ledger.
type Server struct {
	store    store.Store
	engine   *search.Engine
	encoder  embedding.Encoder
	ingestor *ingest.Ingestor
	asker    *ask.Asker
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. asker may be nil
// when no chat model is configured; the ask endpoint then answers 503.
func NewServer(
	s store.Store,
	engine *search.Engine,
	encoder embedding.Encoder,
	ingestor *ingest.Ingestor,
	asker *ask.Asker,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:    s,
		engine:   engine,
		encoder:  encoder,
		ingestor: ingestor,
		asker:    asker,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/records", s.handleInsertRecord)
	r.Post("/api/v1/search", s.handleSearchNearest)
	r.Get("/api/v1/tags/{tag}/embeddings", s.handleTaggedEmbeddings)
	r.Post("/api/v1/documents", s.handleInsertDocument)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
