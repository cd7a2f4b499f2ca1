// Package server implements the telemart HTTP API server: build triggers,
// run history, and read endpoints over the materialized mart.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/internal/engine"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/internal/store"
	"github.com/telemart-systems/telemart/pkg/types"
)

const defaultMaxBody = 1 << 20 // 1 MiB

// Server is the telemart HTTP API server.
type Server struct {
	engine   *engine.Engine
	registry *model.Registry
	db       adapter.Adapter
	store    store.Store
	logger   *slog.Logger
	router   chi.Router
	addr     string
	srv      *http.Server
}

// New creates a new HTTP server.
func New(cfg types.ServerConfig, eng *engine.Engine, reg *model.Registry, db adapter.Adapter, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		engine:   eng,
		registry: reg,
		db:       db,
		store:    st,
		logger:   logger,
		addr:     cfg.Addr,
	}

	maxBody := cfg.MaxRequestBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(APIKeyMiddleware(cfg.APIKey))
	r.Use(MaxBodyMiddleware(maxBody))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router = r
	s.registerRoutes(r)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
