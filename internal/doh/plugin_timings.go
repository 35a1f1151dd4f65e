package doh

import (
	"sort"
	"sync"
)

// PluginTimings aggregates per-tag execution time across requests, for the
// admin API's /api/v1/stats (spec §4.H's expansion: "per-plugin aggregate
// timings pulled from recent reqctx.Context.Metadata"). Safe for concurrent use.
type PluginTimings struct {
	mu    sync.Mutex
	byTag map[string]*pluginTimingAccum
}

type pluginTimingAccum struct {
	invocations uint64
	totalNs     int64
}

// NewPluginTimings creates an empty collector.
func NewPluginTimings() *PluginTimings {
	return &PluginTimings{byTag: map[string]*pluginTimingAccum{}}
}

// Record folds one request's per-tag timings into the running aggregate.
func (p *PluginTimings) Record(timings map[string]int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for tag, ns := range timings {
		acc, ok := p.byTag[tag]
		if !ok {
			acc = &pluginTimingAccum{}
			p.byTag[tag] = acc
		}
		acc.invocations++
		acc.totalNs += ns
	}
}

// PluginTimingSnapshot is one tag's aggregate timing.
type PluginTimingSnapshot struct {
	Tag          string
	Invocations  uint64
	AvgLatencyMs float64
}

// Snapshot returns a stable-ordered copy of the current aggregates.
func (p *PluginTimings) Snapshot() []PluginTimingSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PluginTimingSnapshot, 0, len(p.byTag))
	for tag, acc := range p.byTag {
		avg := 0.0
		if acc.invocations > 0 {
			avg = float64(acc.totalNs) / float64(acc.invocations) / 1e6
		}
		out = append(out, PluginTimingSnapshot{Tag: tag, Invocations: acc.invocations, AvgLatencyMs: avg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
