package plugins

import (
	"strings"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// HostsPlugin implements the Hosts contract (spec §4.F-hosts), resolving
// the §9 Open Question in the redesigned direction: it synthesizes real
// A/AAAA answer records rather than only flipping QR/ANCOUNT, grounded
// on internal/resolvers/custom_dns_resolver.go's answer-synthesis
// approach.
type HostsPlugin struct{}

// NewHostsPlugin creates a Hosts plugin.
func NewHostsPlugin() *HostsPlugin { return &HostsPlugin{} }

const defaultHostsTTL = 300

// Execute implements chain.Handler.
func (p *HostsPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	qtype := ctx.QueryType()
	if qtype != uint16(dnswire.TypeA) && qtype != uint16(dnswire.TypeAAAA) {
		return false, nil
	}

	hosts := argStringMapOfSlice(args, "hosts")
	ttl := uint32(argInt(args, "ttl", defaultHostsTTL))
	passThrough := argBool(args, "pass_through", true)

	domain := ctx.QueryDomain()
	ips, ok := hosts[domain]
	if !ok {
		return false, nil
	}

	wantV6 := qtype == uint16(dnswire.TypeAAAA)
	var matched []string
	for _, ip := range ips {
		if strings.Contains(ip, ":") == wantV6 {
			matched = append(matched, ip)
		}
	}

	if len(matched) == 0 {
		if passThrough {
			return false, nil
		}
		ctx.SetError(dnswire.RCodeNoError)
		return true, nil
	}

	q, err := dnswire.ParseQuery(ctx.DNSMessage)
	if err != nil {
		return false, nil
	}

	answers := make([]dnswire.Record, 0, len(matched))
	for _, ip := range matched {
		data, ok := ipToRData(ip, wantV6)
		if !ok {
			continue
		}
		answers = append(answers, dnswire.Record{
			Name:  q.Question0().Name,
			Type:  qtype,
			Class: uint16(dnswire.ClassIN),
			TTL:   ttl,
			Data:  data,
		})
	}
	if len(answers) == 0 {
		if passThrough {
			return false, nil
		}
		ctx.SetError(dnswire.RCodeNoError)
		return true, nil
	}

	resp := dnswire.Packet{
		Header: dnswire.Header{
			ID:      q.Header.ID,
			Flags:   (q.Header.Flags & dnswire.RDFlag) | dnswire.QRFlag | dnswire.AAFlag,
			QDCount: 1,
		},
		Questions: q.Questions,
		Answers:   answers,
	}
	b, err := resp.Marshal()
	if err != nil {
		return false, nil
	}

	ctx.AddTag("hosts_resolved")
	ctx.SetResponse(b)
	return true, nil
}

func ipToRData(ip string, v6 bool) ([]byte, bool) {
	parsed := parseIPLiteral(ip)
	if parsed == nil {
		return nil, false
	}
	if v6 {
		v := parsed.To16()
		if v == nil {
			return nil, false
		}
		return v, true
	}
	v := parsed.To4()
	if v == nil {
		return nil, false
	}
	return v, true
}

// argStringMapOfSlice normalizes the Hosts plugin's `hosts:
// map<domain, ip_or_[ip]>` arg, where a value may be a single IP string
// or a list of IPs.
func argStringMapOfSlice(args map[string]any, key string) map[string][]string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for domain, val := range raw {
		domain = dnswire.NormalizeName(domain)
		switch t := val.(type) {
		case string:
			out[domain] = []string{t}
		case []string:
			out[domain] = t
		case []any:
			ips := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok {
					ips = append(ips, s)
				}
			}
			out[domain] = ips
		}
	}
	return out
}
