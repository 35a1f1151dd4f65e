package plugins

import (
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/stretchr/testify/require"
)

func TestHostsPluginSynthesizesARecord(t *testing.T) {
	p := NewHostsPlugin()
	ctx := newQueryCtx(t) // queries example.com / A

	matched, err := p.Execute(ctx, map[string]any{
		"hosts": map[string]any{"example.com": "10.0.0.5"},
	})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.Resolved)
	require.True(t, ctx.HasTag("hosts_resolved"))

	resp, err := dnswire.ParseResponse(ctx.Response)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	ip, ok := resp.Answers[0].IPv4()
	require.True(t, ok)
	require.Equal(t, "10.0.0.5", ip)
}

func TestHostsPluginIgnoresUnknownDomain(t *testing.T) {
	p := NewHostsPlugin()
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{
		"hosts": map[string]any{"other.com": "10.0.0.5"},
	})
	require.NoError(t, err)
	require.False(t, matched)
	require.False(t, ctx.Resolved)
}

func TestHostsPluginNoMatchingFamilyPassThrough(t *testing.T) {
	p := NewHostsPlugin()
	ctx := newQueryCtx(t) // A query

	matched, err := p.Execute(ctx, map[string]any{
		"hosts":        map[string]any{"example.com": "::1"},
		"pass_through": true,
	})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestHostsPluginNoMatchingFamilyNoDataWhenNotPassThrough(t *testing.T) {
	p := NewHostsPlugin()
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{
		"hosts":        map[string]any{"example.com": "::1"},
		"pass_through": false,
	})
	require.NoError(t, err)
	require.True(t, matched)
	require.NotNil(t, ctx.Error)
	require.Equal(t, dnswire.RCodeNoError, *ctx.Error)
}

func TestHostsPluginIgnoresNonAddressQueryTypes(t *testing.T) {
	p := NewHostsPlugin()
	q, err := dnswire.ParseQueryFromJSON("example.com", "MX")
	require.NoError(t, err)
	ctx := newCtxFromQuery(t, q)

	matched, err := p.Execute(ctx, map[string]any{"hosts": map[string]any{"example.com": "10.0.0.5"}})
	require.NoError(t, err)
	require.False(t, matched)
}
