package doh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPluginTimingsAggregatesAcrossRequests(t *testing.T) {
	p := NewPluginTimings()
	p.Record(map[string]int64{"forward": 1_000_000})
	p.Record(map[string]int64{"forward": 3_000_000, "cache": 500_000})

	snap := p.Snapshot()
	byTag := map[string]PluginTimingSnapshot{}
	for _, s := range snap {
		byTag[s.Tag] = s
	}

	require.Equal(t, uint64(2), byTag["forward"].Invocations)
	require.InDelta(t, 2.0, byTag["forward"].AvgLatencyMs, 0.01)
	require.Equal(t, uint64(1), byTag["cache"].Invocations)
	require.InDelta(t, 0.5, byTag["cache"].AvgLatencyMs, 0.01)
}

func TestPluginTimingsEmptySnapshot(t *testing.T) {
	p := NewPluginTimings()
	require.Empty(t, p.Snapshot())
}
