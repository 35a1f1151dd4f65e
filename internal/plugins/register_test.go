package plugins

import (
	"log/slog"
	"testing"

	"github.com/dohgate/dohgate/internal/chain"
	"github.com/stretchr/testify/require"
)

func TestRegisterWiresAllTenKinds(t *testing.T) {
	registry := chain.NewRegistry(slog.Default())
	Register(registry, Deps{})

	for _, kind := range []string{
		"cache", "forward", "hosts", "matcher", "redirect",
		"response_modifier", "ip_matcher", "load_balancer", "adblock", "domain_set",
	} {
		_, ok := registry.Lookup(kind)
		require.True(t, ok, "expected kind %q to be registered", kind)
	}
}

func TestRegisterUsesProvidedCache(t *testing.T) {
	registry := chain.NewRegistry(nil)
	cache := &fakeResponseCache{}
	Register(registry, Deps{Cache: cache})

	h, ok := registry.Lookup("cache")
	require.True(t, ok)
	cp, ok := h.(*CachePlugin)
	require.True(t, ok)
	require.Same(t, cache, cp.cache)
}

type fakeResponseCache struct{}

func (f *fakeResponseCache) Match(string) ([]byte, bool)        { return nil, false }
func (f *fakeResponseCache) Put(string, []byte, int)            {}
