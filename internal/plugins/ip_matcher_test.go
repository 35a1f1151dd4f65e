package plugins

import (
	"context"
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/stretchr/testify/require"
)

type fakeIPListLoader struct {
	lists map[string][]string
}

func (f *fakeIPListLoader) LoadIPs(_ context.Context, name string) ([]string, error) {
	return f.lists[name], nil
}

func TestIPMatcherNoResponseReturnsFalse(t *testing.T) {
	p := NewIPMatcherPlugin(nil)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"ips": []string{"10.0.0.5"}})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestIPMatcherLiteralMatchRejects(t *testing.T) {
	p := NewIPMatcherPlugin(nil)
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60) // answer IP 1.2.3.4

	matched, err := p.Execute(ctx, map[string]any{
		"ips":    []string{"1.2.3.4"},
		"action": "reject",
	})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.Resolved)
	require.True(t, ctx.HasTag("ip_matcher_rejected"))
	require.Equal(t, dnswire.RCodeNXDomain, *ctx.Error)
}

func TestIPMatcherCIDRMatchAccepts(t *testing.T) {
	p := NewIPMatcherPlugin(nil)
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{"ips": []string{"1.2.3.0/24"}})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.HasTag("ip_matcher_accepted"))
	require.False(t, ctx.Resolved)
}

func TestIPMatcherNoMatchReturnsFalse(t *testing.T) {
	p := NewIPMatcherPlugin(nil)
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{"ips": []string{"9.9.9.9"}})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestIPMatcherLoadsFromFiles(t *testing.T) {
	loader := &fakeIPListLoader{lists: map[string][]string{"blocklist": {"1.2.3.4"}}}
	p := NewIPMatcherPlugin(loader)
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{"files": []string{"blocklist"}})
	require.NoError(t, err)
	require.True(t, matched)
}

func TestIPMatcherInverse(t *testing.T) {
	p := NewIPMatcherPlugin(nil)
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{
		"ips":     []string{"9.9.9.9"},
		"inverse": true,
	})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.HasTag("ip_matcher_accepted"))
}
