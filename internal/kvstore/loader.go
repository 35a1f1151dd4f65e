package kvstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is the default in-process cache lifetime for a loaded entry
// (spec §4.D): 30 minutes, configurable per family.
const DefaultTTL = 30 * time.Minute

type cacheEntry struct {
	value    any
	expiryAt time.Time
}

// Loader is the Data Loader (spec §4.D): it fronts the external KV with a
// per-family TTL cache and parses the three line-oriented list formats.
type Loader struct {
	kv     KV
	logger *slog.Logger

	ttl map[Family]time.Duration

	mu      sync.Mutex
	entries map[Family]map[string]cacheEntry
}

// NewLoader creates a Loader backed by kv, with DefaultTTL for every
// family unless overridden via WithFamilyTTL.
func NewLoader(kv KV, logger *slog.Logger) *Loader {
	return &Loader{
		kv:     kv,
		logger: logger,
		ttl: map[Family]time.Duration{
			FamilyDomains: DefaultTTL,
			FamilyIPs:     DefaultTTL,
			FamilyHosts:   DefaultTTL,
		},
		entries: map[Family]map[string]cacheEntry{
			FamilyDomains: {},
			FamilyIPs:     {},
			FamilyHosts:   {},
		},
	}
}

// WithFamilyTTL overrides the cache lifetime for one family.
func (l *Loader) WithFamilyTTL(f Family, ttl time.Duration) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl[f] = ttl
	return l
}

// LoadDomains returns the parsed domain set for name, consulting (and
// populating) the cache first.
func (l *Loader) LoadDomains(ctx context.Context, name string) (map[string]struct{}, error) {
	v, err := l.load(ctx, FamilyDomains, name, parseDomainList)
	if err != nil {
		return map[string]struct{}{}, nil //nolint:nilerr // KV failure degrades to empty, never raises (spec §4.D step 3)
	}
	set, _ := v.(map[string]struct{})
	return set, nil
}

// LoadIPs returns the parsed IP/CIDR literal set for name.
func (l *Loader) LoadIPs(ctx context.Context, name string) ([]string, error) {
	v, err := l.load(ctx, FamilyIPs, name, parseIPList)
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	ips, _ := v.([]string)
	return ips, nil
}

// LoadHosts returns the parsed hostname->ip map for name.
func (l *Loader) LoadHosts(ctx context.Context, name string) (map[string]string, error) {
	v, err := l.load(ctx, FamilyHosts, name, parseHostsFile)
	if err != nil {
		return map[string]string{}, nil //nolint:nilerr
	}
	m, _ := v.(map[string]string)
	return m, nil
}

func (l *Loader) load(ctx context.Context, family Family, name string, parse func(string) any) (any, error) {
	now := time.Now()

	l.mu.Lock()
	if e, ok := l.entries[family][name]; ok && now.Before(e.expiryAt) {
		l.mu.Unlock()
		return e.value, nil
	}
	l.mu.Unlock()

	raw, found, err := l.kv.Get(ctx, key(family, name))
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("kv load failed", "family", family, "name", name, "err", err)
		}
		return nil, err
	}
	if !found {
		raw = ""
	}

	parsed := parse(raw)

	l.mu.Lock()
	l.entries[family][name] = cacheEntry{value: parsed, expiryAt: now.Add(l.ttl[family])}
	l.mu.Unlock()

	return parsed, nil
}

// ClearCache drops cached entries for one family, or every family when
// family is "".
func (l *Loader) ClearCache(family Family) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if family == "" {
		for f := range l.entries {
			l.entries[f] = map[string]cacheEntry{}
		}
		return
	}
	l.entries[family] = map[string]cacheEntry{}
}

// Stats reports the number of cached keys per family (spec §4.D stats).
func (l *Loader) Stats() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]int{
		"domains": len(l.entries[FamilyDomains]),
		"ips":     len(l.entries[FamilyIPs]),
		"hosts":   len(l.entries[FamilyHosts]),
	}
}
