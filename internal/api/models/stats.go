package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// PluginTimingStats is the aggregate observed execution time for one
// tagged chain step, in the spirit of the teacher's per-resolver stats.
type PluginTimingStats struct {
	Tag          string  `json:"tag"`
	Invocations  uint64  `json:"invocations"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// ServerStatsResponse contains server runtime statistics.
type ServerStatsResponse struct {
	Uptime        string              `json:"uptime"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	StartTime     time.Time           `json:"start_time"`
	CPU           CPUStats            `json:"cpu"`
	Memory        MemoryStats         `json:"memory"`
	Queries       QueryStatsResponse  `json:"queries"`
	Plugins       []PluginTimingStats `json:"plugins,omitempty"`
}

// QueryStatsResponse mirrors doh.QueryStatsSnapshot for the wire.
type QueryStatsResponse struct {
	QueriesTotal uint64  `json:"queries_total"`
	QueriesWire  uint64  `json:"queries_wire"`
	QueriesJSON  uint64  `json:"queries_json"`
	ResponsesNX  uint64  `json:"responses_nxdomain"`
	ResponsesErr uint64  `json:"responses_error"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
