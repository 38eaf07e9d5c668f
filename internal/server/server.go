// Package server exposes the repository over HTTP.
//
// REST endpoints under /api mutate and read graphs; /ws streams live views
// to subscribed WebSocket clients.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AplusKminus/GraphWalker/internal/config"
	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/repository"
)

// Server serves one repository.
type Server struct {
	repo *repository.Repository
	cfg  config.ServerConfig
	log  *zap.SugaredLogger

	// ctx is cancelled when Run returns; WebSocket pumps watch it.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the component logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server. Call Run to listen or Handler to embed it.
func New(repo *repository.Repository, cfg config.ServerConfig, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		repo:   repo,
		cfg:    cfg,
		log:    logger.Named("server"),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
	})
	return s.withRequestID(s.withAccessLog(c.Handler(mux)))
}

// Close ends every WebSocket session. Run and Serve call it on return;
// callers that only use Handler call it themselves.
func (s *Server) Close() {
	s.cancel()
}

// Run listens on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.cancel()

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Infow("Server listening", logger.FieldAddress, ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.cancel()
		timeout := time.Duration(s.cfg.ShutdownTimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Infow("Server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/views", s.handleViewNames)

	mux.HandleFunc("GET /api/graphs", s.handleListGraphs)
	mux.HandleFunc("POST /api/graphs", s.handleCreateGraph)
	mux.HandleFunc("GET /api/graphs/{id}", s.handleGetGraph)
	mux.HandleFunc("PATCH /api/graphs/{id}", s.handleUpdateGraph)
	mux.HandleFunc("DELETE /api/graphs/{id}", s.handleDeleteGraph)
	mux.HandleFunc("PUT /api/graphs/{id}/start", s.handleSetStart)
	mux.HandleFunc("GET /api/graphs/{id}/nodes", s.handleListNodes)
	mux.HandleFunc("POST /api/graphs/{id}/nodes", s.handleAddNode)
	mux.HandleFunc("GET /api/graphs/{id}/edges", s.handleListEdges)
	mux.HandleFunc("GET /api/graphs/{id}/cliques", s.handleListCliques)
	mux.HandleFunc("POST /api/graphs/{id}/cliques", s.handleCreateClique)
	mux.HandleFunc("GET /api/graphs/{id}/unconnected", s.handleUnconnected)
	mux.HandleFunc("GET /api/graphs/{id}/search", s.handleSearch)
	mux.HandleFunc("GET /api/graphs/{id}/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /api/nodes/{id}", s.handleGetNode)
	mux.HandleFunc("PATCH /api/nodes/{id}", s.handleRenameNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", s.handleDeleteNode)
	mux.HandleFunc("POST /api/nodes/{id}/tags", s.handleAddTag)
	mux.HandleFunc("PUT /api/nodes/{id}/tags/{tag}", s.handleUpdateTag)
	mux.HandleFunc("DELETE /api/nodes/{id}/tags/{tag}", s.handleRemoveTag)
	mux.HandleFunc("GET /api/nodes/{id}/connectors", s.handleNodeConnectors)
	mux.HandleFunc("POST /api/nodes/{id}/connectors", s.handleAddConnector)

	mux.HandleFunc("PATCH /api/connectors/{id}", s.handleRenameConnector)
	mux.HandleFunc("DELETE /api/connectors/{id}", s.handleDeleteConnector)
	mux.HandleFunc("GET /api/connectors/{id}/edges", s.handleConnectorEdges)

	mux.HandleFunc("POST /api/edges", s.handleCreateEdge)
	mux.HandleFunc("POST /api/edges/connect", s.handleConnectNodes)
	mux.HandleFunc("PUT /api/edges/{id}", s.handleUpdateEdge)
	mux.HandleFunc("DELETE /api/edges/{id}", s.handleDeleteEdge)

	mux.HandleFunc("GET /api/cliques/{id}", s.handleGetClique)
	mux.HandleFunc("PATCH /api/cliques/{id}", s.handleUpdateClique)
	mux.HandleFunc("DELETE /api/cliques/{id}", s.handleDeleteClique)
	mux.HandleFunc("PUT /api/cliques/{id}/nodes/{node}", s.handleAddCliqueNode)
	mux.HandleFunc("DELETE /api/cliques/{id}/nodes/{node}", s.handleRemoveCliqueNode)
	mux.HandleFunc("DELETE /api/cliques/{id}/nodes", s.handleClearClique)
}
