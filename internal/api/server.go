// Package api provides the diagnostics HTTP service: a health check, a
// /resolve endpoint that drives the engine over HTTP instead of the CLI,
// and a /stats endpoint with system and resolution counters.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kvanzuijlen/parq/internal/api/handlers"
	"github.com/kvanzuijlen/parq/internal/api/middleware"
	"github.com/kvanzuijlen/parq/internal/config"
	"github.com/kvanzuijlen/parq/internal/engine"
)

// Server is the parqd HTTP server.
type Server struct {
	logger     *slog.Logger
	router     *gin.Engine
	httpServer *http.Server
}

// New builds a Server that resolves requests using eng against servers.
func New(cfg *config.Config, eng *engine.Engine, servers []engine.Endpoint, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(eng, servers, logger)
	RegisterRoutes(router, h)
	mountStatic(router, logger)

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, router: router, httpServer: httpServer}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
