package plugins

import (
	"testing"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/stretchr/testify/require"
)

func TestAdblockPluginBlocksMatchingSubstring(t *testing.T) {
	p := NewAdblockPlugin(nil)
	q, err := dnswire.ParseQueryFromJSON("ads.tracker.example.com", "A")
	require.NoError(t, err)
	ctx := newCtxFromQuery(t, q)

	matched, err := p.Execute(ctx, map[string]any{"patterns": []string{"ads."}})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.Resolved)
	require.True(t, ctx.HasTag("adblock_filtered"))
	require.Equal(t, dnswire.RCodeNXDomain, *ctx.Error)
}

func TestAdblockPluginWhitelistSuffixOverridesBlock(t *testing.T) {
	p := NewAdblockPlugin(nil)
	q, err := dnswire.ParseQueryFromJSON("ads.example.com", "A")
	require.NoError(t, err)
	ctx := newCtxFromQuery(t, q)

	matched, err := p.Execute(ctx, map[string]any{
		"patterns":  []string{"ads"},
		"whitelist": []string{"example.com"},
	})
	require.NoError(t, err)
	require.False(t, matched)
	require.False(t, ctx.Resolved)
}

func TestAdblockPluginNoMatchReturnsFalse(t *testing.T) {
	p := NewAdblockPlugin(nil)
	ctx := newQueryCtx(t) // example.com, no "ads" substring

	matched, err := p.Execute(ctx, map[string]any{"patterns": []string{"ads."}})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestAdblockPluginEmptyPatternsReturnsFalse(t *testing.T) {
	p := NewAdblockPlugin(nil)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	require.False(t, matched)
}
