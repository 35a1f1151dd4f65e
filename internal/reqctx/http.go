package reqctx

import (
	"encoding/json"
	"net/http"

	"github.com/dohgate/dohgate/internal/dnswire"
)

// HTTPResponse is the rendered outcome of BuildHTTPResponse: a status
// code, content type, and body ready to be written by the DoH boundary.
type HTTPResponse struct {
	Status      int
	ContentType string
	Body        []byte
	CacheMaxAge int // seconds; 0 means no Cache-Control header
}

// jsonAnswer mirrors the Google/Cloudflare DoH JSON form (RFC 8484 does
// not itself define the JSON shape; this is the de facto convention the
// `?name=` form is expected to honor).
type jsonAnswer struct {
	Status   int            `json:"Status"`
	TC       bool           `json:"TC"`
	RD       bool           `json:"RD"`
	RA       bool           `json:"RA"`
	AD       bool           `json:"AD"`
	CD       bool           `json:"CD"`
	Question []jsonQuestion `json:"Question"`
	Answer   []jsonRR       `json:"Answer,omitempty"`
}

type jsonQuestion struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

type jsonRR struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// BuildHTTPResponse renders the context's outcome to an HTTP reply (spec
// §4.B): an unresolved context with no error is a transport-level bug and
// surfaces as HTTP 500; a resolved context with an error surfaces as
// HTTP 502 for REFUSED and HTTP 500 for any other rcode; otherwise the response bytes are rendered
// as application/dns-message, or as application/dns-json when the
// request used the `?name=`/JSON form.
func (c *Context) BuildHTTPResponse() HTTPResponse {
	if !c.Resolved && c.Error == nil {
		return HTTPResponse{Status: http.StatusInternalServerError, ContentType: "text/plain", Body: []byte("not processed")}
	}

	if c.Resolved && c.Error != nil {
		status := http.StatusInternalServerError
		if *c.Error == dnswire.RCodeRefused {
			status = http.StatusBadGateway
		}
		return HTTPResponse{Status: status, ContentType: "text/plain", Body: []byte("DNS server error")}
	}

	if c.IsJSONRequest() {
		return c.buildJSONResponse()
	}
	return HTTPResponse{
		Status:      http.StatusOK,
		ContentType: "application/dns-message",
		Body:        c.Response,
		CacheMaxAge: 300,
	}
}

func (c *Context) buildJSONResponse() HTTPResponse {
	parsed, err := dnswire.ParseResponse(c.Response)
	if err != nil {
		return HTTPResponse{Status: http.StatusInternalServerError, ContentType: "text/plain", Body: []byte("DNS server error")}
	}

	out := jsonAnswer{
		Status: int(dnswire.RCodeFromFlags(parsed.Header.Flags)),
		TC:     parsed.Header.Flags&dnswire.TCFlag != 0,
		RD:     parsed.Header.Flags&dnswire.RDFlag != 0,
		RA:     parsed.Header.Flags&dnswire.RAFlag != 0,
		AD:     parsed.Header.Flags&dnswire.ADFlag != 0,
		CD:     parsed.Header.Flags&dnswire.CDFlag != 0,
	}
	for _, q := range parsed.Questions {
		out.Question = append(out.Question, jsonQuestion{Name: q.Name, Type: int(q.Type)})
	}
	for _, a := range parsed.Answers {
		out.Answer = append(out.Answer, jsonRR{Name: a.Name, Type: int(a.Type), TTL: int(a.TTL), Data: a.TextValue()})
	}

	body, err := json.Marshal(out)
	if err != nil {
		return HTTPResponse{Status: http.StatusInternalServerError, ContentType: "text/plain", Body: []byte("DNS server error")}
	}
	return HTTPResponse{Status: http.StatusOK, ContentType: "application/dns-json", Body: body, CacheMaxAge: 300}
}
