// Package server provides the HTTP API for document ingestion and querying.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint; set by main.
var Version = "dev"

// Querier runs the query flow. *search.Engine implements it.
type Querier interface {
	Query(ctx context.Context, question string, limit int) (*models.QueryResult, error)
}

// Ingester runs the ingestion flow. *indexer.Indexer implements it.
type Ingester interface {
	Ingest(ctx context.Context, sourceURL string) (int, error)
}

// WatchService manages inbox directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the RAG API.
type Server struct {
	engine     Querier
	indexer    Ingester
	store      vector.Store
	config     *config.Config
	configMu   sync.Mutex
	configPath string
	watch      WatchService
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil when no
// inbox is configured; configPath, when set, is where watch directory changes are saved.
func NewServer(
	engine Querier,
	idx Ingester,
	store vector.Store,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	return &Server{
		engine:     engine,
		indexer:    idx,
		store:      store,
		config:     cfg,
		configPath: configPath,
		watch:      watch,
		logger:     utils.OrNop(logger),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	prefix := "/" + strings.Trim(s.config.Server.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	r.Get(prefix+"/status", s.handleStatus)
	r.Post(prefix+"/documents/process-pdf", s.handleProcessPDF)
	r.Post(prefix+"/documents/query", s.handleQuery)
	r.Get(prefix+"/watch/directories", s.handleWatchDirectoriesList)
	r.Post(prefix+"/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete(prefix+"/watch/directories", s.handleWatchDirectoriesRemove)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("api_prefix", s.config.Server.APIPrefix))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
