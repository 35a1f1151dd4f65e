package httpcache

import "time"

// DefaultMaxEntries bounds the response cache when no size is configured.
const DefaultMaxEntries = 10000

// ResponseCache implements the Cache external collaborator (spec §6):
// match(key) / put(key, body, max_age_seconds). It caches raw wire-format
// bytes, independent of DNS semantics; the Forward plugin's negative
// cache (NXDOMAIN/NODATA/SERVFAIL-aware) is a separate TTLCache instance
// layered underneath the resolver, not this one.
type ResponseCache struct {
	cache *TTLCache[string, []byte]
}

// NewResponseCache creates a ResponseCache holding at most maxEntries
// entries. A maxEntries of 0 uses DefaultMaxEntries.
func NewResponseCache(maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache{cache: NewTTLCache[string, []byte](maxEntries)}
}

// Match looks up key and returns the cached body, if present and unexpired.
func (c *ResponseCache) Match(key string) ([]byte, bool) {
	v, ok, _ := c.cache.Get(key)
	return v, ok
}

// Put stores body under key for maxAgeSeconds. A non-positive maxAgeSeconds
// is a no-op (nothing to cache).
func (c *ResponseCache) Put(key string, body []byte, maxAgeSeconds int) {
	if maxAgeSeconds <= 0 {
		return
	}
	c.cache.Set(key, body, time.Duration(maxAgeSeconds)*time.Second, EntryPositive)
}

// Stats reports the underlying cache's hit/miss/size counters.
func (c *ResponseCache) Stats() Stats {
	return c.cache.Stats()
}
