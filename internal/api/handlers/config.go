package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dohgate/dohgate/internal/api/models"
)

// GetConfig godoc
// @Summary Get current configuration
// @Description Returns the active, already-normalized configuration (sensitive fields redacted). Read-only — spec §4.H forbids mutating request-processing state mid-request, so there is no corresponding PUT.
// @Tags config
// @Produce json
// @Success 200 {object} models.ConfigResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	if h.cfg == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "config unavailable"})
		return
	}

	resp := models.ConfigResponse{
		Server: models.ServerConfigResponse{
			Host:           h.cfg.Server.Host,
			Port:           h.cfg.Server.Port,
			Workers:        h.cfg.Server.Workers.String(),
			MaxConcurrency: h.cfg.Server.MaxConcurrency,
			ReadTimeout:    h.cfg.Server.ReadTimeout,
			WriteTimeout:   h.cfg.Server.WriteTimeout,
		},
		Upstream: h.cfg.Upstream,
		Logging:  h.cfg.Logging,
		KV:       h.cfg.KV,
		API: models.APIConfigResponse{
			Enabled: h.cfg.API.Enabled,
			Host:    h.cfg.API.Host,
			Port:    h.cfg.API.Port,
		},
		Chain: h.cfg.Chain,
	}

	c.JSON(http.StatusOK, resp)
}
