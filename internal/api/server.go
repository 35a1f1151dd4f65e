// Package api provides the HTTP surface for dohgate: the RFC 8484 DoH
// endpoint and a read-only REST admin API for health, statistics, and
// configuration inspection.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/dohgate/dohgate/internal/api/handlers"
	"github.com/dohgate/dohgate/internal/api/middleware"
	"github.com/dohgate/dohgate/internal/config"
	"github.com/dohgate/dohgate/internal/doh"
)

// Server owns the DoH listener and, when enabled, a second listener for
// the admin REST API. The two are kept on separate engines and separate
// *http.Server instances so the admin surface can be bound to a
// different host/port (or left disabled) without touching DoH traffic.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	dohEngine *gin.Engine
	dohServer *http.Server

	adminEngine *gin.Engine
	adminServer *http.Server
}

// New wires a DoH boundary onto the query listener and, when
// cfg.API.Enabled, a Gin admin engine onto a second listener reusing the
// boundary's stats and plugin timing collectors.
func New(cfg *config.Config, logger *slog.Logger, boundary *doh.Boundary) *Server {
	if cfg == nil {
		panic("api.New: cfg is nil")
	}

	gin.SetMode(gin.ReleaseMode)

	dohEngine := gin.New()
	dohEngine.Use(gin.Recovery())
	dohEngine.Use(middleware.SlogRequestLogger(logger))
	RegisterDoHRoutes(dohEngine, boundary)

	dohServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           dohEngine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       durationOrDefault(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:      durationOrDefault(cfg.Server.WriteTimeout, 15*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	s := &Server{cfg: cfg, logger: logger, dohEngine: dohEngine, dohServer: dohServer}

	if cfg.API.Enabled {
		adminEngine := gin.New()
		adminEngine.Use(gin.Recovery())
		adminEngine.Use(middleware.SlogRequestLogger(logger))

		var stats *doh.QueryStats
		var plugins *doh.PluginTimings
		if boundary != nil {
			stats = boundary.Stats
			plugins = boundary.Plugins
		}
		h := handlers.New(cfg, logger, stats, plugins)
		RegisterAdminRoutes(adminEngine, h, cfg)
		MountSPA(adminEngine, logger)

		s.adminEngine = adminEngine
		s.adminServer = &http.Server{
			Addr:              net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
			Handler:           adminEngine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}

	return s
}

// Addr returns the DoH listener's bound address.
func (s *Server) Addr() string {
	if s.dohServer == nil {
		return ""
	}
	return s.dohServer.Addr
}

// AdminAddr returns the admin API listener's bound address, or "" when
// the admin API is disabled.
func (s *Server) AdminAddr() string {
	if s.adminServer == nil {
		return ""
	}
	return s.adminServer.Addr
}

// Engine returns the admin Gin engine when the admin API is enabled,
// otherwise the DoH engine. Exposed mainly for tests driving requests
// through httptest without a real listener.
func (s *Server) Engine() *gin.Engine {
	if s.adminEngine != nil {
		return s.adminEngine
	}
	return s.dohEngine
}

// DoHEngine returns the engine serving /dns-query.
func (s *Server) DoHEngine() *gin.Engine {
	return s.dohEngine
}

// ListenAndServe starts the DoH listener and, when enabled, the admin
// listener concurrently, returning the first error from either.
func (s *Server) ListenAndServe() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.dohServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if s.adminServer != nil {
		g.Go(func() error {
			if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.dohServer.Shutdown(ctx)
}

func durationOrDefault(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
