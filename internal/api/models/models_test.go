// Package models_test provides behavior tests for the API models package.
package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohgate/dohgate/internal/api/models"
)

func TestErrorResponse_JSON(t *testing.T) {
	resp := models.ErrorResponse{Error: "something went wrong"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.ErrorResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "something went wrong", decoded.Error)
}

func TestStatusResponse_JSON(t *testing.T) {
	resp := models.StatusResponse{Status: "ok"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.StatusResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestServerStatsResponse_JSON(t *testing.T) {
	startTime := time.Now()
	resp := models.ServerStatsResponse{
		Uptime:        "1h30m",
		UptimeSeconds: 5400,
		StartTime:     startTime,
		CPU: models.CPUStats{
			NumCPU:      8,
			UsedPercent: 25.5,
			IdlePercent: 74.5,
		},
		Memory: models.MemoryStats{
			TotalMB:     16384.0,
			FreeMB:      8192.0,
			UsedMB:      8192.0,
			UsedPercent: 50.0,
		},
		Queries: models.QueryStatsResponse{
			QueriesTotal: 1000,
			QueriesWire:  900,
			QueriesJSON:  100,
		},
		Plugins: []models.PluginTimingStats{
			{Tag: "forward", Invocations: 1000, AvgLatencyMs: 2.5},
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.ServerStatsResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "1h30m", decoded.Uptime)
	assert.Equal(t, int64(5400), decoded.UptimeSeconds)
	assert.Equal(t, 8, decoded.CPU.NumCPU)
	assert.InDelta(t, 25.5, decoded.CPU.UsedPercent, 0.001)
	assert.InDelta(t, 50.0, decoded.Memory.UsedPercent, 0.001)
	assert.Equal(t, uint64(1000), decoded.Queries.QueriesTotal)
	require.Len(t, decoded.Plugins, 1)
	assert.Equal(t, "forward", decoded.Plugins[0].Tag)
}

func TestServerStatsResponse_PluginsOmittedWhenNil(t *testing.T) {
	resp := models.ServerStatsResponse{Uptime: "1h"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.NotContains(t, string(data), `"plugins":`)
}

func TestQueryStatsResponse_JSON(t *testing.T) {
	resp := models.QueryStatsResponse{
		QueriesTotal: 10000,
		QueriesWire:  8000,
		QueriesJSON:  2000,
		ResponsesNX:  100,
		ResponsesErr: 50,
		AvgLatencyMs: 1.5,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.QueryStatsResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, uint64(10000), decoded.QueriesTotal)
	assert.InEpsilon(t, 1.5, decoded.AvgLatencyMs, 0.1)
}

func TestConfigResponse_JSON(t *testing.T) {
	resp := models.ConfigResponse{
		Server: models.ServerConfigResponse{Host: "0.0.0.0", Port: 8443, Workers: "auto"},
		API:    models.APIConfigResponse{Enabled: true, Host: "127.0.0.1", Port: 8080},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.ConfigResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", decoded.Server.Host)
	assert.True(t, decoded.API.Enabled)
	assert.NotContains(t, string(data), "api_key")
}
