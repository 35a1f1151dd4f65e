// Package handlers implements the REST API endpoint handlers for dohgate.
//
// @title dohgate Admin API
// @version 1.0
// @description Read-only status, statistics, and configuration surface for a running dohgate proxy.
//
// @contact.name dohgate
// @contact.url https://github.com/dohgate/dohgate
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/dohgate/dohgate/internal/config"
	"github.com/dohgate/dohgate/internal/doh"
)

// Version is the dohgate admin API version reported by the status
// endpoint; kept in sync with the @version annotation above.
const Version = "1.0"

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	stats   *doh.QueryStats
	plugins *doh.PluginTimings
}

// New creates a new Handler with the given configuration and the DoH
// boundary's statistics collectors.
func New(cfg *config.Config, logger *slog.Logger, stats *doh.QueryStats, plugins *doh.PluginTimings) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		stats:     stats,
		plugins:   plugins,
	}
}
