package doh

import "sync/atomic"

// QueryStats collects DoH query statistics, grounded on
// internal/server/stats.go's DNSStats, with the UDP/TCP transport split
// replaced by the wire/JSON form split (spec §4.G's four accepted
// shapes collapse to these two at the statistics layer). All methods
// are safe for concurrent use.
type QueryStats struct {
	queriesTotal   atomic.Uint64
	queriesWire    atomic.Uint64
	queriesJSON    atomic.Uint64
	responsesNX    atomic.Uint64
	responsesErr   atomic.Uint64
	latencyTotalNs atomic.Uint64
}

// NewQueryStats creates an empty collector.
func NewQueryStats() *QueryStats { return &QueryStats{} }

// recordForm records one query for the given decoded form ("wire" or "json").
func (s *QueryStats) recordForm(form string) {
	s.queriesTotal.Add(1)
	switch form {
	case "wire":
		s.queriesWire.Add(1)
	case "json":
		s.queriesJSON.Add(1)
	}
}

func (s *QueryStats) recordOutcome(resp HTTPResponseOutcome) {
	if resp.NXDOMAIN {
		s.responsesNX.Add(1)
	}
	if resp.Error {
		s.responsesErr.Add(1)
	}
}

// recordLatency records query latency in nanoseconds.
func (s *QueryStats) recordLatency(ns int64) {
	if ns > 0 {
		s.latencyTotalNs.Add(uint64(ns))
	}
}

// HTTPResponseOutcome classifies one rendered reply for stats purposes.
type HTTPResponseOutcome struct {
	NXDOMAIN bool
	Error    bool
}

// QueryStatsSnapshot is a point-in-time snapshot of QueryStats.
type QueryStatsSnapshot struct {
	QueriesTotal uint64
	QueriesWire  uint64
	QueriesJSON  uint64
	ResponsesNX  uint64
	ResponsesErr uint64
	AvgLatencyMs float64
}

// Snapshot returns the current statistics.
func (s *QueryStats) Snapshot() QueryStatsSnapshot {
	total := s.queriesTotal.Load()
	latencyNs := s.latencyTotalNs.Load()

	avgLatencyMs := 0.0
	if total > 0 {
		avgLatencyMs = float64(latencyNs) / float64(total) / 1e6
	}

	return QueryStatsSnapshot{
		QueriesTotal: total,
		QueriesWire:  s.queriesWire.Load(),
		QueriesJSON:  s.queriesJSON.Load(),
		ResponsesNX:  s.responsesNX.Load(),
		ResponsesErr: s.responsesErr.Load(),
		AvgLatencyMs: avgLatencyMs,
	}
}
