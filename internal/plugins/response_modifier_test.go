package plugins

import (
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/stretchr/testify/require"
)

func TestResponseModifierRejectSetsErrorAndResolves(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"action": "reject"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.Resolved)
	require.True(t, ctx.HasTag("response_rejected"))
	require.Equal(t, dnswire.RCodeNXDomain, *ctx.Error)
}

func TestResponseModifierAcceptResolvesWithoutSettingError(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"action": "accept"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.Resolved)
	require.True(t, ctx.HasTag("response_accepted"))
	require.Nil(t, ctx.Error)
}

func TestResponseModifierNoResponseReturnsFalse(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"ttl": 30})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestResponseModifierTTLOverrideRewritesAllAnswers(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 600)

	matched, err := p.Execute(ctx, map[string]any{"ttl": 30})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.HasTag("ttl_modified"))

	resp, err := dnswire.ParseResponse(ctx.Response)
	require.NoError(t, err)
	require.Equal(t, uint32(30), resp.Answers[0].TTL)
}

func TestResponseModifierClampsTTLToRange(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 5)

	matched, err := p.Execute(ctx, map[string]any{"min_ttl": 60, "max_ttl": 300})
	require.NoError(t, err)
	require.True(t, matched)

	resp, err := dnswire.ParseResponse(ctx.Response)
	require.NoError(t, err)
	require.Equal(t, uint32(60), resp.Answers[0].TTL)
}

func TestResponseModifierIPReplacement(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{"ip": "10.1.2.3"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.HasTag("ip_replaced"))

	resp, err := dnswire.ParseResponse(ctx.Response)
	require.NoError(t, err)
	ip, ok := resp.Answers[0].IPv4()
	require.True(t, ok)
	require.Equal(t, "10.1.2.3", ip)
}

func TestResponseModifierDomainsGateSkipsNonMatching(t *testing.T) {
	p := NewResponseModifierPlugin()
	ctx := newQueryCtx(t)
	ctx.Response = answerResponse(t, "example.com", 60)

	matched, err := p.Execute(ctx, map[string]any{"ttl": 30, "domains": []string{"other.com"}})
	require.NoError(t, err)
	require.False(t, matched)
}
