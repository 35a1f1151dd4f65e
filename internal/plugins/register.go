package plugins

import (
	"log/slog"
	"net/http"

	"github.com/dohgate/dohgate/internal/chain"
	"github.com/dohgate/dohgate/internal/httpcache"
)

// Deps bundles the external collaborators the built-in plugin set needs
// at registration time (spec §6 External Interfaces): the shared
// response cache, an HTTP client for Forward, a domain/IP list loader
// for Domain-Set/IP-Matcher, and a logger for Adblock.
type Deps struct {
	Cache      ResponseCache
	HTTPClient *http.Client
	Domains    DomainSetLoader
	IPs        IPListLoader
	Logger     *slog.Logger
}

// Register wires all ten built-in plugins (spec §4.F) into registry
// under their spec-defined kind names.
func Register(registry *chain.Registry, deps Deps) {
	cache := deps.Cache
	if cache == nil {
		cache = httpcache.NewResponseCache(httpcache.DefaultMaxEntries)
	}

	registry.Register("cache", NewCachePlugin(cache))
	registry.Register("forward", NewForwardPlugin(deps.HTTPClient))
	registry.Register("hosts", NewHostsPlugin())
	registry.Register("matcher", NewMatcherPlugin())
	registry.Register("redirect", NewRedirectPlugin())
	registry.Register("response_modifier", NewResponseModifierPlugin())
	registry.Register("ip_matcher", NewIPMatcherPlugin(deps.IPs))
	registry.Register("load_balancer", NewLoadBalancerPlugin())
	registry.Register("adblock", NewAdblockPlugin(deps.Logger))
	registry.Register("domain_set", NewDomainSetPlugin(deps.Domains))
}
