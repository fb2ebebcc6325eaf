// Package api exposes the harmonization pipeline over HTTP: a trigger
// endpoint that runs one harmonization per request (the data-factory web
// activity contract) and a health endpoint.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/pos-harmonizer/internal/config"
	"github.com/ignite/pos-harmonizer/internal/pkg/logger"
)

// Server is the harmonization API server.
type Server struct {
	cfg    config.ServerConfig
	server *http.Server
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg config.ServerConfig, h *Handlers, hc *HealthChecker) *Server {
	router := SetupRoutes(h, hc)
	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.GetPort()),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("api server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
