package plugins

import (
	"strings"

	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

type redirectRule struct {
	From string
	To   string
	Type string
}

// RedirectPlugin implements the Redirect contract (spec §4.F-redirect).
// It never mutates dns_message: it only records metadata.redirect and the
// `redirected` tag. No built-in plugin reads metadata.redirect; Forward
// sends the original question unchanged.
type RedirectPlugin struct{}

// NewRedirectPlugin creates a Redirect plugin.
func NewRedirectPlugin() *RedirectPlugin { return &RedirectPlugin{} }

// Execute implements chain.Handler.
func (p *RedirectPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	rules := parseRedirectRules(args)
	if len(rules) == 0 {
		return false, nil
	}

	includeSubdomains := argBool(args, "include_subdomains", true)
	query := ctx.QueryDomain()

	for _, rule := range rules {
		if rule.Type != "" && rrTypeFromName(rule.Type) != ctx.QueryType() {
			continue
		}
		target, ok := redirectTarget(query, rule, includeSubdomains)
		if !ok {
			continue
		}
		ctx.Metadata.Redirect = &reqctx.RedirectInfo{Original: query, Target: target}
		ctx.AddTag("redirected")
		return true, nil
	}
	return false, nil
}

// redirectTarget reports the rewritten target domain for query against
// rule, and whether rule matched at all.
func redirectTarget(query string, rule redirectRule, includeSubdomains bool) (string, bool) {
	from := match.NormalizeDomain(rule.From)
	to := match.NormalizeDomain(rule.To)
	norm := match.NormalizeDomain(query)

	if norm == from {
		return to, true
	}
	if includeSubdomains && strings.HasSuffix(norm, "."+from) {
		sub := strings.TrimSuffix(norm, from)
		return sub + to, true
	}
	return "", false
}

func parseRedirectRules(args map[string]any) []redirectRule {
	raw, ok := args["rules"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	rules := make([]redirectRule, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		from := argString(m, "from", "")
		to := argString(m, "to", "")
		if from == "" || to == "" {
			continue
		}
		rules = append(rules, redirectRule{From: from, To: to, Type: argString(m, "type", "")})
	}
	return rules
}
