package doh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryStatsSnapshotAggregates(t *testing.T) {
	s := NewQueryStats()
	s.recordForm("wire")
	s.recordForm("json")
	s.recordForm("wire")
	s.recordLatency(1_000_000)
	s.recordLatency(3_000_000)
	s.recordOutcome(HTTPResponseOutcome{NXDOMAIN: true, Error: true})

	snap := s.Snapshot()
	require.Equal(t, uint64(3), snap.QueriesTotal)
	require.Equal(t, uint64(2), snap.QueriesWire)
	require.Equal(t, uint64(1), snap.QueriesJSON)
	require.Equal(t, uint64(1), snap.ResponsesNX)
	require.Equal(t, uint64(1), snap.ResponsesErr)
	require.InDelta(t, 1.33, snap.AvgLatencyMs, 0.01)
}

func TestQueryStatsSnapshotZeroTotalAvoidsDivideByZero(t *testing.T) {
	s := NewQueryStats()
	snap := s.Snapshot()
	require.Equal(t, uint64(0), snap.QueriesTotal)
	require.Equal(t, 0.0, snap.AvgLatencyMs)
}
