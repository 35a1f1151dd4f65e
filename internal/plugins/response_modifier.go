package plugins

import (
	"math/rand"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/helpers"
	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// ResponseModifierPlugin implements the Response-Modifier contract (spec
// §4.F-response-modifier).
type ResponseModifierPlugin struct{}

// NewResponseModifierPlugin creates a Response-Modifier plugin.
func NewResponseModifierPlugin() *ResponseModifierPlugin { return &ResponseModifierPlugin{} }

// Execute implements chain.Handler.
func (p *ResponseModifierPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	switch argString(args, "action", "") {
	case "reject":
		ctx.SetError(argRCode(args, "rcode", dnswire.RCodeNXDomain))
		ctx.Resolved = true
		ctx.AddTag("response_rejected")
		return true, nil
	case "accept":
		ctx.Resolved = true
		ctx.AddTag("response_accepted")
		return true, nil
	}

	domains := argStringSlice(args, "domains")
	if len(domains) > 0 {
		matched := false
		for _, d := range domains {
			if match.Exact(ctx.QueryDomain(), d) {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}

	if ctx.Response == nil {
		return false, nil
	}

	resp, err := dnswire.ParseResponse(ctx.Response)
	if err != nil {
		return false, nil
	}

	modified := false
	if rewriteTTLs(&resp, args) {
		ctx.AddTag("ttl_modified")
		modified = true
	}
	if replaceIPs(&resp, args) {
		ctx.AddTag("ip_replaced")
		modified = true
	}
	if !modified {
		return false, nil
	}

	b, err := resp.Marshal()
	if err != nil {
		return false, nil
	}
	ctx.SetResponse(b)
	return true, nil
}

func rewriteTTLs(resp *dnswire.Packet, args map[string]any) bool {
	_, hasMin := args["min_ttl"]
	_, hasMax := args["max_ttl"]
	_, hasTTL := args["ttl"]
	if !hasMin && !hasMax && !hasTTL {
		return false
	}

	if hasTTL {
		ttl := helpers.ClampIntToUint32(argInt(args, "ttl", 0))
		for i := range resp.Answers {
			resp.Answers[i].TTL = ttl
		}
		return len(resp.Answers) > 0
	}

	minTTL := helpers.ClampIntToUint32(argInt(args, "min_ttl", 0))
	maxTTL := helpers.ClampIntToUint32(argInt(args, "max_ttl", int(^uint32(0)>>1)))
	changed := false
	for i := range resp.Answers {
		ttl := resp.Answers[i].TTL
		if ttl < minTTL {
			ttl = minTTL
		}
		if ttl > maxTTL {
			ttl = maxTTL
		}
		if ttl != resp.Answers[i].TTL {
			resp.Answers[i].TTL = ttl
			changed = true
		}
	}
	return changed
}

func replaceIPs(resp *dnswire.Packet, args map[string]any) bool {
	single := argString(args, "ip", "")
	multi := argStringSlice(args, "ips")
	if single != "" {
		multi = append(multi, single)
	}
	if len(multi) == 0 {
		return false
	}

	v4, v6 := splitByFamily(multi)

	changed := false
	for i := range resp.Answers {
		rr := &resp.Answers[i]
		switch dnswire.RecordType(rr.Type) {
		case dnswire.TypeA:
			if len(v4) == 0 {
				continue
			}
			if data, ok := ipToRData(v4[rand.Intn(len(v4))], false); ok {
				rr.Data = data
				changed = true
			}
		case dnswire.TypeAAAA:
			if len(v6) == 0 {
				continue
			}
			if data, ok := ipToRData(v6[rand.Intn(len(v6))], true); ok {
				rr.Data = data
				changed = true
			}
		}
	}
	return changed
}

func splitByFamily(ips []string) (v4, v6 []string) {
	for _, ip := range ips {
		if parsed := parseIPLiteral(ip); parsed != nil {
			if parsed.To4() != nil {
				v4 = append(v4, ip)
			} else {
				v6 = append(v6, ip)
			}
		}
	}
	return v4, v6
}
