package plugins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/reqctx"
)

type fakeDomainSetLoader struct {
	sets map[string]map[string]struct{}
	err  error
}

func (f *fakeDomainSetLoader) LoadDomains(_ context.Context, name string) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sets[name], nil
}

func TestDomainSetPluginTagsMember(t *testing.T) {
	loader := &fakeDomainSetLoader{sets: map[string]map[string]struct{}{
		"blocked": {"example.com": {}},
	}}
	p := NewDomainSetPlugin(loader)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"set": "blocked", "tag": "in_blocklist"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, ctx.HasTag("in_blocklist"))
	require.False(t, ctx.Resolved)
}

func TestDomainSetPluginDefaultTag(t *testing.T) {
	loader := &fakeDomainSetLoader{sets: map[string]map[string]struct{}{
		"blocked": {"example.com": {}},
	}}
	p := NewDomainSetPlugin(loader)
	ctx := newQueryCtx(t)

	matched, _ := p.Execute(ctx, map[string]any{"set": "blocked"})
	require.True(t, matched)
	require.True(t, ctx.HasTag("domain_set_matched"))
}

func TestDomainSetPluginMatchesSubdomain(t *testing.T) {
	loader := &fakeDomainSetLoader{sets: map[string]map[string]struct{}{
		"blocked": {"example.com": {}},
	}}
	p := NewDomainSetPlugin(loader)

	q, err := dnswire.ParseQueryFromJSON("ads.example.com", "A")
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/dns-query", nil)
	ctx := reqctx.New(r, q.Raw)

	matched, err := p.Execute(ctx, map[string]any{"set": "blocked"})
	require.NoError(t, err)
	require.True(t, matched)
}

func TestDomainSetPluginNonMemberReturnsFalse(t *testing.T) {
	loader := &fakeDomainSetLoader{sets: map[string]map[string]struct{}{
		"blocked": {"other.com": {}},
	}}
	p := NewDomainSetPlugin(loader)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"set": "blocked"})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestDomainSetPluginLoaderErrorReturnsFalse(t *testing.T) {
	loader := &fakeDomainSetLoader{err: errors.New("kv unavailable")}
	p := NewDomainSetPlugin(loader)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{"set": "blocked"})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestDomainSetPluginNoSetArgReturnsFalse(t *testing.T) {
	p := NewDomainSetPlugin(nil)
	ctx := newQueryCtx(t)

	matched, err := p.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	require.False(t, matched)
}
