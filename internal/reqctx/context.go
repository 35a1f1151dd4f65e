// Package reqctx implements the Request Context (spec §3/§4.B): the single
// mutable object that carries a query, response, and metadata through the
// plugin chain for the lifetime of one DoH request.
package reqctx

import (
	"net/http"
	"strings"
	"time"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/google/uuid"
)

// JSONQuery is the `{name, type}` form parsed from a `?name=` GET request.
type JSONQuery struct {
	Name string
	Type string
}

// RedirectInfo is the redirect decision recorded by the Redirect plugin
// (spec §4.F-redirect). The Forward plugin does not read it.
type RedirectInfo struct {
	Original string
	Target   string
}

// PluginError is one entry of metadata.errors: a plugin tag and the
// message its handler failed with.
type PluginError struct {
	PluginTag string
	Message   string
}

// Metadata is the Request Context's policy-facing side channel: tags,
// per-plugin timings, accumulated errors, and the small set of named
// hand-offs individual plugins use to coordinate (spec §3).
type Metadata struct {
	Tags    []string
	tagSet  map[string]struct{}
	Timings map[string]time.Duration
	Errors  []PluginError

	Upstream      string
	UpstreamError string

	Redirect *RedirectInfo

	CacheKey string
	CacheTTL int

	// ClientInfo carries the requesting client's address, consulted by
	// Forward's edns_client_subnet stub.
	ClientInfo string
}

func newMetadata() *Metadata {
	return &Metadata{
		tagSet:  map[string]struct{}{},
		Timings: map[string]time.Duration{},
	}
}

// OnResponseHook is a write-through observer registered by a plugin (the
// Cache plugin, in the built-in set) and invoked whenever SetResponse is
// called, per spec §9's "explicit hook list" design note — this replaces
// the runtime `set_response` monkey-patching the original implementation
// used.
type OnResponseHook func(resp []byte)

// Context is the single mutable object that flows through the plugin
// chain for one request (spec §3 Request Context).
type Context struct {
	RequestID string

	Request *http.Request

	DNSMessage []byte
	JSONQuery  *JSONQuery

	Response []byte
	Error    *dnswire.RCode
	Resolved bool

	Metadata *Metadata

	onResponse []OnResponseHook

	// parsedQuery caches the decode of DNSMessage so QueryDomain/QueryType
	// don't re-parse on every call within a single request.
	parsedQuery   dnswire.Query
	parsedQueryOK bool
}

// New creates a Context for a request carrying raw DNS wire bytes.
func New(r *http.Request, dnsMessage []byte) *Context {
	id := uuid.New().String()
	md := newMetadata()
	md.ClientInfo = clientIPFromRequest(r)
	return &Context{
		RequestID:  id,
		Request:    r,
		DNSMessage: dnsMessage,
		Metadata:   md,
	}
}

// NewJSON creates a Context for a request that carried only a `{name,
// type}` JSON-form query; DNSMessage is synthesized by the DoH boundary
// and attached separately.
func NewJSON(r *http.Request, dnsMessage []byte, jq JSONQuery) *Context {
	ctx := New(r, dnsMessage)
	ctx.JSONQuery = &jq
	return ctx
}

// QueryDomain returns the question name, lowercased with any trailing dot
// stripped (spec §4.B query_domain).
func (c *Context) QueryDomain() string {
	q, ok := c.query()
	if !ok {
		return ""
	}
	return dnswire.NormalizeName(q.Name)
}

// QueryType returns the question's RR type number (spec §4.B query_type).
func (c *Context) QueryType() uint16 {
	q, ok := c.query()
	if !ok {
		return 0
	}
	return q.Type
}

func (c *Context) query() (dnswire.Question, bool) {
	if c.parsedQueryOK {
		return c.parsedQuery.Question0(), true
	}
	if len(c.DNSMessage) == 0 {
		return dnswire.Question{}, false
	}
	q, err := dnswire.ParseQuery(c.DNSMessage)
	if err != nil {
		return dnswire.Question{}, false
	}
	c.parsedQuery = q
	c.parsedQueryOK = true
	return q.Question0(), true
}

// RegisterOnResponse adds a write-through observer. Hooks run in
// registration order whenever SetResponse is called.
func (c *Context) RegisterOnResponse(hook OnResponseHook) {
	c.onResponse = append(c.onResponse, hook)
}

// SetResponse sets the response bytes, marks the context resolved, and
// invokes every registered on-response hook (spec §4.B set_response).
// Per invariant (iii), resp must be a newly-allocated slice — callers
// must never pass back DNSMessage.
func (c *Context) SetResponse(resp []byte) {
	c.Response = resp
	c.Resolved = true
	for _, hook := range c.onResponse {
		hook(resp)
	}
}

// SetError records rcode without implicitly resolving the context (spec
// §4.B set_error) — the caller typically also sets Resolved itself.
func (c *Context) SetError(rcode dnswire.RCode) {
	c.Error = &rcode
}

// AddTag adds a tag idempotently (invariant ii: adding a tag never
// removes another, and re-adding is a no-op).
func (c *Context) AddTag(tag string) {
	if _, ok := c.Metadata.tagSet[tag]; ok {
		return
	}
	c.Metadata.tagSet[tag] = struct{}{}
	c.Metadata.Tags = append(c.Metadata.Tags, tag)
}

// HasTag reports whether tag has been added.
func (c *Context) HasTag(tag string) bool {
	_, ok := c.Metadata.tagSet[tag]
	return ok
}

// RecordTiming writes metadata.timings[tag] exactly once per plugin
// execution (invariant iv); the chain executor is the sole caller.
func (c *Context) RecordTiming(tag string, d time.Duration) {
	c.Metadata.Timings[tag] = d
}

// RecordError appends a plugin error without aborting the chain (spec
// §4.C step f / §7).
func (c *Context) RecordError(tag, message string) {
	c.Metadata.Errors = append(c.Metadata.Errors, PluginError{PluginTag: tag, Message: message})
}

// IsJSONRequest reports whether the boundary rendering should use
// application/dns-json (spec §4.B build_http_response): the request
// carried a `?name=` form or a JSON body.
func (c *Context) IsJSONRequest() bool {
	return c.JSONQuery != nil
}

// Clone creates an independent copy of c for a concurrent sub-invocation
// (spec §4.F-load-balancer "parallel": "each with an independent context
// clone"). The clone shares the read-only Request/DNSMessage/JSONQuery
// but starts with fresh, empty Response/Resolved/Error/Metadata state and
// no on-response hooks — a winning clone's response is merged back into
// the parent via the parent's own SetResponse, so the parent's hooks
// (e.g. the Cache plugin's write-through) fire exactly once.
func (c *Context) Clone() *Context {
	md := newMetadata()
	md.ClientInfo = c.Metadata.ClientInfo
	clone := &Context{
		RequestID:  c.RequestID,
		Request:    c.Request,
		DNSMessage: c.DNSMessage,
		JSONQuery:  c.JSONQuery,
		Metadata:   md,
	}
	if c.parsedQueryOK {
		clone.parsedQuery = c.parsedQuery
		clone.parsedQueryOK = true
	}
	return clone
}

// clientIPFromRequest extracts a best-effort client address for
// metadata.client_info, preferring X-Forwarded-For's first hop.
func clientIPFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.RemoteAddr
}
