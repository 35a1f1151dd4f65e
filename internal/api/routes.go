package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/dohgate/dohgate/internal/api/handlers"
	"github.com/dohgate/dohgate/internal/api/middleware"
	"github.com/dohgate/dohgate/internal/config"
	"github.com/dohgate/dohgate/internal/doh"

	_ "github.com/dohgate/dohgate/internal/api/docs" // swagger docs
)

// RegisterDoHRoutes mounts the RFC 8484 endpoint. The boundary itself
// decides which of the four accepted request forms (GET wire, GET JSON,
// POST wire, POST JSON) a given request matches.
func RegisterDoHRoutes(r *gin.Engine, boundary *doh.Boundary) {
	r.Any("/dns-query", gin.WrapH(boundary))
}

// RegisterAdminRoutes mounts the read-only admin surface: health, stats,
// and a GET-only config endpoint (spec §4.H forbids mutating
// request-processing state mid-request, so there is no PUT/reload path).
func RegisterAdminRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/status is the minimal, unauthenticated status check spec §4.H
	// names directly; /api/v1/health is the same response under the
	// versioned admin API group below.
	r.GET("/api/status", h.Health)

	v1 := r.Group("/api/v1")
	if cfg != nil && cfg.API.APIKey != "" {
		v1.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	v1.GET("/health", h.Health)
	v1.GET("/stats", h.Stats)
	v1.GET("/config", h.GetConfig)
}
