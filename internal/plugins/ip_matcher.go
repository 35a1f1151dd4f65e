package plugins

import (
	"context"
	"net"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// IPListLoader loads a named IP list (literal/CIDR/range entries), backing
// the IP-Matcher `files[]` arg against internal/kvstore-loaded data.
type IPListLoader interface {
	LoadIPs(ctx context.Context, name string) ([]string, error)
}

// IPMatcherPlugin implements the IP-Matcher contract (spec
// §4.F-ip-matcher). It runs after a response is set: it extracts A/AAAA
// addresses from ctx.response and matches them against a union of
// literal IPs and loaded lists.
type IPMatcherPlugin struct {
	loader IPListLoader
}

// NewIPMatcherPlugin creates an IP-Matcher plugin. loader may be nil if
// no chain step configures `files[]`.
func NewIPMatcherPlugin(loader IPListLoader) *IPMatcherPlugin {
	return &IPMatcherPlugin{loader: loader}
}

// Execute implements chain.Handler.
func (p *IPMatcherPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	if ctx.Response == nil {
		return false, nil
	}

	entries := argStringSlice(args, "ips")
	for _, file := range argStringSlice(args, "files") {
		if p.loader == nil {
			continue
		}
		loaded, err := p.loader.LoadIPs(context.Background(), file)
		if err != nil {
			continue
		}
		entries = append(entries, loaded...)
	}

	responseIPs, err := extractResponseIPs(ctx.Response)
	if err != nil {
		return false, nil
	}

	matched := false
	for _, ip := range responseIPs {
		if match.MatchesAny(entries, ip) {
			matched = true
			break
		}
	}

	if argBool(args, "inverse", false) {
		matched = !matched
	}
	if !matched {
		return false, nil
	}

	if argString(args, "action", "accept") == "reject" {
		ctx.SetError(argRCode(args, "rcode", dnswire.RCodeNXDomain))
		ctx.Resolved = true
		ctx.AddTag("ip_matcher_rejected")
		return true, nil
	}

	ctx.AddTag("ip_matcher_accepted")
	return true, nil
}

func extractResponseIPs(raw []byte) ([]net.IP, error) {
	resp, err := dnswire.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, rr := range resp.Answers {
		switch dnswire.RecordType(rr.Type) {
		case dnswire.TypeA:
			if s, ok := rr.IPv4(); ok {
				if ip := net.ParseIP(s); ip != nil {
					ips = append(ips, ip)
				}
			}
		case dnswire.TypeAAAA:
			if s, ok := rr.IPv6(); ok {
				if ip := net.ParseIP(s); ip != nil {
					ips = append(ips, ip)
				}
			}
		}
	}
	return ips, nil
}
