package plugins

import (
	"strings"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// MatcherPlugin implements the Matcher contract (spec §4.F-matcher).
type MatcherPlugin struct{}

// NewMatcherPlugin creates a Matcher plugin.
func NewMatcherPlugin() *MatcherPlugin { return &MatcherPlugin{} }

// Execute implements chain.Handler.
func (p *MatcherPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	if !typeMatches(ctx, args) {
		return false, nil
	}

	domain := argString(args, "domain", "")
	domains := argStringSlice(args, "domains")
	patterns := argStringSlice(args, "patterns")

	if domain == "" && len(domains) == 0 && len(patterns) == 0 {
		return false, nil
	}

	matched := false
	query := ctx.QueryDomain()

	if domain != "" && match.Exact(query, domain) {
		matched = true
	}
	if !matched {
		for _, d := range domains {
			if match.Exact(query, d) {
				matched = true
				break
			}
		}
	}
	if !matched {
		for _, pat := range patterns {
			if patternMatches(query, pat) {
				matched = true
				break
			}
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
		ctx.AddTag("matcher_rejected")
		return true, nil
	}

	ctx.AddTag("matcher_accepted")
	return true, nil
}

// typeMatches reports whether the configured type/types arg (if any)
// covers the query's type. Absent config always matches.
func typeMatches(ctx *reqctx.Context, args map[string]any) bool {
	single := argString(args, "type", "")
	multi := argStringSlice(args, "types")
	if single == "" && len(multi) == 0 {
		return true
	}
	qtype := ctx.QueryType()
	if single != "" && rrTypeFromName(single) == qtype {
		return true
	}
	for _, t := range multi {
		if rrTypeFromName(t) == qtype {
			return true
		}
	}
	return false
}

var rrTypeByName = map[string]uint16{
	"A":     uint16(dnswire.TypeA),
	"NS":    uint16(dnswire.TypeNS),
	"CNAME": uint16(dnswire.TypeCNAME),
	"SOA":   uint16(dnswire.TypeSOA),
	"PTR":   uint16(dnswire.TypePTR),
	"MX":    uint16(dnswire.TypeMX),
	"TXT":   uint16(dnswire.TypeTXT),
	"AAAA":  uint16(dnswire.TypeAAAA),
}

func rrTypeFromName(name string) uint16 {
	return rrTypeByName[strings.ToUpper(name)]
}

// patternMatches dispatches one Matcher pattern string to the right
// match primitive (spec §4.E): a `~`-prefix is a substring match, a
// `*.`-prefix or bare name is suffix matching (bare names match only
// themselves, per match.Suffix), and anything else is tried as a regex.
func patternMatches(query, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "~"):
		return match.Substring(query, strings.TrimPrefix(pattern, "~"))
	case strings.HasPrefix(pattern, "*."):
		return match.Suffix(query, pattern, false)
	case isLikelyDomain(pattern):
		return match.Suffix(query, pattern, false)
	default:
		return match.Regex(query, pattern)
	}
}

// isLikelyDomain is a light heuristic distinguishing a plain domain
// pattern (dots and hostname characters only) from a regex.
func isLikelyDomain(s string) bool {
	return !strings.ContainsAny(s, `\^$|?*+()[]{}`)
}
