package plugins

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/httpcache"
	"github.com/dohgate/dohgate/internal/pool"
	"github.com/dohgate/dohgate/internal/reqctx"
	"golang.org/x/sync/singleflight"
)

// bodyBufPool reuses the scratch buffers upstream response bodies are
// read into; postOne copies out before returning one to the pool.
var bodyBufPool = pool.New(func() *bytes.Buffer { return new(bytes.Buffer) })

// upstreamRecoveryDuration is how long a failed upstream is skipped
// before being retried, grounded on
// internal/resolvers/forwarding_resolver.go's upstreamRecoveryDuration.
const upstreamRecoveryDuration = time.Hour

// ForwardPlugin implements the Forward contract (spec §4.F-forward):
// POST the query to a DoH upstream and set the response. Internally it
// carries the teacher's upstream health tracking, singleflight
// deduplication, and RFC 2308-aware negative caching
// (internal/resolvers/forwarding_resolver.go), with the transport
// swapped from pooled UDP/TCP sockets to HTTPS POST. None of this
// changes the externally observed contract: a 2xx still calls
// ctx.SetResponse and a failure still only records metadata.upstream_error.
type ForwardPlugin struct {
	client *http.Client

	sf    singleflight.Group
	cache *httpcache.TTLCache[string, []byte]

	healthMu sync.Mutex
	failedAt map[string]time.Time
}

// NewForwardPlugin creates a Forward plugin using client for upstream
// HTTP calls. A nil client uses http.DefaultClient's transport with a
// dedicated *http.Client (so per-call deadlines via context don't leak
// into other callers' default client).
func NewForwardPlugin(client *http.Client) *ForwardPlugin {
	if client == nil {
		client = &http.Client{}
	}
	return &ForwardPlugin{
		client:   client,
		cache:    httpcache.NewTTLCache[string, []byte](10000),
		failedAt: map[string]time.Time{},
	}
}

// Execute implements chain.Handler.
func (p *ForwardPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	upstreams := normalizeUpstreams(argStringOrSlice(args, "upstream"))
	if len(upstreams) == 0 {
		ctx.Metadata.UpstreamError = "no upstream configured"
		return false, nil
	}
	timeout := argDuration(args, "timeout_ms", 5*time.Second)
	headers := argStringMap(args, "headers")
	ecs := argBool(args, "edns_client_subnet", false)

	if ecs && ctx.Metadata.ClientInfo != "" {
		// Design-level stub (spec §4.F-forward): ECS splicing would clone
		// dns_message and append an OPT record carrying the client subnet.
		// Not implemented; never mutates ctx.DNSMessage.
	}

	cacheKey := fmt.Sprintf("%s:%d", ctx.QueryDomain(), ctx.QueryType())
	if body, age, ok, _ := p.cache.GetWithAge(cacheKey); ok {
		ctx.SetResponse(adjustTTLs(body, age))
		ctx.Metadata.Upstream = "cache"
		return true, nil
	}

	reqCtx := context.Background()
	if ctx.Request != nil {
		reqCtx = ctx.Request.Context()
	}
	deadline, cancel := context.WithTimeout(reqCtx, timeout)
	defer cancel()

	v, err, _ := p.sf.Do(cacheKey, func() (any, error) {
		return p.queryUpstreams(deadline, upstreams, headers, ctx.DNSMessage)
	})
	if err != nil {
		if deadline.Err() != nil {
			ctx.Metadata.UpstreamError = "timeout"
		} else {
			ctx.Metadata.UpstreamError = err.Error()
		}
		return false, nil
	}

	result := v.(forwardResult)
	p.storeInCache(cacheKey, result.body)

	body := make([]byte, len(result.body))
	copy(body, result.body)
	ctx.SetResponse(body)
	ctx.Metadata.Upstream = result.upstream
	return true, nil
}

type forwardResult struct {
	upstream string
	body     []byte
}

func (p *ForwardPlugin) queryUpstreams(ctx context.Context, upstreams []string, headers map[string]string, query []byte) (forwardResult, error) {
	var lastErr error
	for _, up := range upstreams {
		if ctx.Err() != nil {
			return forwardResult{}, ctx.Err()
		}
		if !p.canTry(up) {
			continue
		}
		body, err := p.postOne(ctx, up, headers, query)
		if err != nil {
			lastErr = err
			p.markFailed(up)
			continue
		}
		p.markHealthy(up)
		return forwardResult{upstream: up, body: body}, nil
	}
	if lastErr != nil {
		return forwardResult{}, lastErr
	}
	return forwardResult{}, fmt.Errorf("no upstream servers available")
}

func (p *ForwardPlugin) postOne(ctx context.Context, upstream string, headers map[string]string, query []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstream, bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/dns-message")
	req.Header.Set("Accept", "application/dns-message")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream %s returned HTTP %d", upstream, resp.StatusCode)
	}

	buf := bodyBufPool.Get()
	buf.Reset()
	defer bodyBufPool.Put(buf)

	if _, err := io.Copy(buf, resp.Body); err != nil {
		return nil, err
	}
	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())
	return body, nil
}

func (p *ForwardPlugin) canTry(up string) bool {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	failedAt, ok := p.failedAt[up]
	if !ok {
		return true
	}
	if time.Since(failedAt) >= upstreamRecoveryDuration {
		delete(p.failedAt, up)
		return true
	}
	return false
}

func (p *ForwardPlugin) markFailed(up string) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	if _, ok := p.failedAt[up]; !ok {
		p.failedAt[up] = time.Now()
	}
}

func (p *ForwardPlugin) markHealthy(up string) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	delete(p.failedAt, up)
}

// storeInCache analyzes a response and caches it with an RFC 2308-aware
// TTL, grounded on forwarding_resolver.go's analyzeCacheDecision.
func (p *ForwardPlugin) storeInCache(key string, resp []byte) {
	ttl, entryType := analyzeCacheDecision(resp)
	if ttl <= 0 {
		return
	}
	p.cache.Set(key, resp, time.Duration(ttl)*time.Second, entryType)
}

func analyzeCacheDecision(respBytes []byte) (ttlSeconds int, entryType httpcache.EntryType) {
	resp, err := dnswire.ParseResponse(respBytes)
	if err != nil {
		return 0, httpcache.EntryPositive
	}

	rcode := dnswire.RCodeFromFlags(resp.Header.Flags)

	if rcode == dnswire.RCodeServFail {
		return 30, httpcache.EntrySERVFAIL
	}
	if rcode == dnswire.RCodeNXDomain {
		if ttl := extractSOAMinimum(resp); ttl > 0 {
			return ttl, httpcache.EntryNXDOMAIN
		}
		return 300, httpcache.EntryNXDOMAIN
	}
	if rcode != dnswire.RCodeNoError {
		return 0, httpcache.EntryPositive
	}
	if len(resp.Answers) == 0 {
		if ttl := extractSOAMinimum(resp); ttl > 0 {
			return ttl, httpcache.EntryNODATA
		}
		return 300, httpcache.EntryNODATA
	}
	return findMinimumTTL(resp.Answers), httpcache.EntryPositive
}

func findMinimumTTL(answers []dnswire.Record) int {
	min := -1
	for _, a := range answers {
		if a.TTL == 0 {
			continue
		}
		if min < 0 || int(a.TTL) < min {
			min = int(a.TTL)
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// extractSOAMinimum reads the MINIMUM field (last 4 bytes of the raw
// SOA RDATA dnswire.ParseRecord stores) used for RFC 2308 negative
// caching. Returns 0 if no SOA record is present.
func extractSOAMinimum(resp dnswire.Packet) int {
	for _, r := range resp.Authorities {
		if dnswire.RecordType(r.Type) != dnswire.TypeSOA {
			continue
		}
		b, ok := r.Data.([]byte)
		if !ok || len(b) < 4 {
			continue
		}
		return int(binary.BigEndian.Uint32(b[len(b)-4:]))
	}
	return 0
}

// adjustTTLs decrements every answer TTL by the cache entry's age,
// flooring at 1 second, grounded on forwarding_resolver.go's adjustTTLs.
// Falls back to returning the bytes unmodified if the message can't be
// re-parsed (never a fatal condition for the caller).
func adjustTTLs(respBytes []byte, age time.Duration) []byte {
	if age <= 0 {
		return respBytes
	}
	ageSeconds := uint32(age.Seconds())
	if ageSeconds == 0 {
		return respBytes
	}

	p, err := dnswire.ParseResponse(respBytes)
	if err != nil {
		return respBytes
	}
	adjust := func(rs []dnswire.Record) {
		for i := range rs {
			if rs[i].TTL <= ageSeconds {
				rs[i].TTL = 1
			} else {
				rs[i].TTL -= ageSeconds
			}
		}
	}
	adjust(p.Answers)
	adjust(p.Authorities)
	adjust(p.Additionals)

	out, err := p.Marshal()
	if err != nil {
		return respBytes
	}
	return out
}

// normalizeUpstreams rewrites bare hostnames to https://<host>/dns-query
// (spec §4.F-forward).
func normalizeUpstreams(upstreams []string) []string {
	out := make([]string, 0, len(upstreams))
	for _, u := range upstreams {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.Contains(u, "://") {
			u = fmt.Sprintf("https://%s/dns-query", u)
		}
		out = append(out, u)
	}
	return out
}
