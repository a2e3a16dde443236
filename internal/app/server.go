package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelgate/modelgate/internal/config"
)

// Streaming completions can run for minutes; read/write timeouts must
// outlast the slowest expected stream.
const streamTimeout = 300 * time.Second

// Server wraps the HTTP server with its configuration.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	logger     *slog.Logger
}

// NewServer builds the HTTP server around the given handler.
func NewServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ServerPort,
			Handler:      handler,
			ReadTimeout:  streamTimeout,
			WriteTimeout: streamTimeout,
		},
		config: cfg,
		logger: logger,
	}
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.config.ServerPort)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new requests and waits for in-flight ones to
// finish, up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}
