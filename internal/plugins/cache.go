package plugins

import (
	"fmt"

	"github.com/dohgate/dohgate/internal/reqctx"
)

// ResponseCache is the narrow Cache external collaborator the Cache
// plugin depends on (spec §6): match/put over raw response bytes.
// internal/httpcache.ResponseCache implements it.
type ResponseCache interface {
	Match(key string) ([]byte, bool)
	Put(key string, body []byte, maxAgeSeconds int)
}

// CachePlugin implements the Cache contract (spec §4.F-cache).
type CachePlugin struct {
	cache ResponseCache
}

// NewCachePlugin creates a Cache plugin backed by cache.
func NewCachePlugin(cache ResponseCache) *CachePlugin {
	return &CachePlugin{cache: cache}
}

// Execute implements chain.Handler.
func (p *CachePlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	if ctx.HasTag("bypass_cache") {
		ctx.AddTag("cache_bypassed")
		return false, nil
	}

	ttl := argInt(args, "ttl", 300)
	key := fmt.Sprintf("dns-%s-%d", ctx.QueryDomain(), ctx.QueryType())

	if body, ok := p.cache.Match(key); ok {
		ctx.SetResponse(body)
		ctx.AddTag("cache_hit")
		return true, nil
	}

	ctx.Metadata.CacheKey = key
	ctx.Metadata.CacheTTL = ttl
	ctx.AddTag("cache_miss")

	cache := p.cache
	ctx.RegisterOnResponse(func(resp []byte) {
		cache.Put(key, resp, ttl)
	})

	return false, nil
}
