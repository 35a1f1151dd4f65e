package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dohgate/dohgate/internal/api/models"
)

// Health godoc
// @Summary Health check
// @Description Returns server status, version, and current server time (spec §4.H)
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{
		Status:     "ok",
		Version:    Version,
		ServerTime: time.Now().UnixMilli(),
	})
}

// Stats godoc
// @Summary Server statistics
// @Description Returns runtime statistics including system CPU usage, memory usage, DoH query counts, and per-plugin timings
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	memStats := models.MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := models.CPUStats{
		NumCPU: runtime.NumCPU(),
	}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		Queries:       h.getQueryStats(),
		Plugins:       h.getPluginStats(),
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getQueryStats() models.QueryStatsResponse {
	if h.stats == nil {
		return models.QueryStatsResponse{}
	}
	snap := h.stats.Snapshot()
	return models.QueryStatsResponse{
		QueriesTotal: snap.QueriesTotal,
		QueriesWire:  snap.QueriesWire,
		QueriesJSON:  snap.QueriesJSON,
		ResponsesNX:  snap.ResponsesNX,
		ResponsesErr: snap.ResponsesErr,
		AvgLatencyMs: snap.AvgLatencyMs,
	}
}

func (h *Handler) getPluginStats() []models.PluginTimingStats {
	if h.plugins == nil {
		return nil
	}
	snap := h.plugins.Snapshot()
	out := make([]models.PluginTimingStats, 0, len(snap))
	for _, s := range snap {
		out = append(out, models.PluginTimingStats{
			Tag:          s.Tag,
			Invocations:  s.Invocations,
			AvgLatencyMs: s.AvgLatencyMs,
		})
	}
	return out
}
