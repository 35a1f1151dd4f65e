// Package doh implements the DoH boundary (spec §4.G): decode the four
// accepted request forms into a reqctx.Context, run it through the
// plugin chain, and render the outcome back to an HTTP reply. Grounded
// on internal/server/query_handler.go's parse → process → log pipeline
// shape, with the DNS-over-UDP/TCP transport replaced by RFC 8484 HTTP
// forms and the resolver replaced by a chain.Chain.
package doh

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dohgate/dohgate/internal/chain"
	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// MaxBodyBytes bounds the POST body read, mirroring dnswire's incoming
// message size limit plus JSON framing overhead.
const MaxBodyBytes = dnswire.MaxIncomingMessageSize * 2

// jsonQueryBody is the `{name, type?}` POST JSON form (spec §4.G).
type jsonQueryBody struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ErrUnsupportedForm is returned when a request matches none of the four
// accepted shapes (spec §4.G "Any other shape → HTTP 400").
var ErrUnsupportedForm = errors.New("doh: unsupported request form")

// Boundary decodes HTTP requests into a reqctx.Context, executes them
// against a chain, and renders the HTTP reply.
type Boundary struct {
	Chain   *chain.Chain
	Logger  *slog.Logger
	Stats   *QueryStats
	Plugins *PluginTimings
}

// NewBoundary creates a Boundary running every request through c.
func NewBoundary(c *chain.Chain, logger *slog.Logger) *Boundary {
	return &Boundary{Chain: c, Logger: logger, Stats: NewQueryStats(), Plugins: NewPluginTimings()}
}

// ServeHTTP implements http.Handler for the `/dns-query` route.
func (b *Boundary) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, form, err := decodeWithForm(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.Chain.Execute(ctx)

	if b.Logger != nil && b.Logger.Enabled(r.Context(), slog.LevelDebug) {
		b.Logger.DebugContext(r.Context(), "doh request",
			"request_id", ctx.RequestID,
			"qname", ctx.QueryDomain(),
			"qtype", ctx.QueryType(),
			"tags", ctx.Metadata.Tags,
		)
	}

	resp := ctx.BuildHTTPResponse()
	writeResponse(w, resp)

	if b.Stats != nil {
		b.Stats.recordForm(form)
		b.Stats.recordLatency(time.Since(start).Nanoseconds())
		b.Stats.recordOutcome(classifyOutcome(ctx))
	}

	if b.Plugins != nil {
		timings := make(map[string]int64, len(ctx.Metadata.Timings))
		for tag, d := range ctx.Metadata.Timings {
			timings[tag] = d.Nanoseconds()
		}
		b.Plugins.Record(timings)
	}
}

func classifyOutcome(ctx *reqctx.Context) HTTPResponseOutcome {
	if ctx.Error == nil {
		return HTTPResponseOutcome{}
	}
	return HTTPResponseOutcome{
		NXDOMAIN: *ctx.Error == dnswire.RCodeNXDomain,
		Error:    *ctx.Error != dnswire.RCodeNoError,
	}
}

func writeResponse(w http.ResponseWriter, resp reqctx.HTTPResponse) {
	w.Header().Set("Content-Type", resp.ContentType)
	if resp.CacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(resp.CacheMaxAge))
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// decodeWithForm dispatches r to the accepted form matching its
// method/params (spec §4.G), returning ErrUnsupportedForm for anything
// else. The returned form is "wire" or "json", for statistics.
func decodeWithForm(r *http.Request) (*reqctx.Context, string, error) {
	switch {
	case r.Method == http.MethodGet && r.URL.Query().Has("dns"):
		ctx, err := decodeGETWire(r)
		return ctx, "wire", err
	case r.Method == http.MethodGet && r.URL.Query().Has("name"):
		ctx, err := decodeGETJSON(r)
		return ctx, "json", err
	case r.Method == http.MethodPost && isWireContentType(r.Header.Get("Content-Type")):
		ctx, err := decodePOSTWire(r)
		return ctx, "wire", err
	case r.Method == http.MethodPost && isJSONContentType(r.Header.Get("Content-Type")):
		ctx, err := decodePOSTJSON(r)
		return ctx, "json", err
	default:
		return nil, "", ErrUnsupportedForm
	}
}

func isWireContentType(ct string) bool {
	return ct == "application/dns-message"
}

func isJSONContentType(ct string) bool {
	return ct == "application/json" || ct == "application/dns-json"
}

func decodeGETWire(r *http.Request) (*reqctx.Context, error) {
	raw, err := base64.RawURLEncoding.DecodeString(r.URL.Query().Get("dns"))
	if err != nil {
		return nil, errors.New("doh: invalid base64url dns param")
	}
	return reqctx.New(r, raw), nil
}

func decodeGETJSON(r *http.Request) (*reqctx.Context, error) {
	name := r.URL.Query().Get("name")
	typ := r.URL.Query().Get("type")
	q, err := dnswire.ParseQueryFromJSON(name, typ)
	if err != nil {
		return nil, err
	}
	return reqctx.NewJSON(r, q.Raw, reqctx.JSONQuery{Name: name, Type: typ}), nil
}

func decodePOSTWire(r *http.Request) (*reqctx.Context, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	return reqctx.New(r, raw), nil
}

func decodePOSTJSON(r *http.Request) (*reqctx.Context, error) {
	var body jsonQueryBody
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		return nil, err
	}
	if body.Name == "" {
		return nil, errors.New("doh: missing name in JSON query body")
	}
	q, err := dnswire.ParseQueryFromJSON(body.Name, body.Type)
	if err != nil {
		return nil, err
	}
	return reqctx.NewJSON(r, q.Raw, reqctx.JSONQuery{Name: body.Name, Type: body.Type}), nil
}
