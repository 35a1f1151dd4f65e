package plugins

import (
	"context"

	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// DomainSetLoader loads a named domain set, backing the Domain-Set
// plugin's `set` arg against internal/kvstore-loaded data.
type DomainSetLoader interface {
	LoadDomains(ctx context.Context, name string) (map[string]struct{}, error)
}

// DomainSetPlugin is named in spec.md's §2 component table (row F) but
// not separately detailed in §4.F; SPEC_FULL.md resolves it as a thin
// Matcher variant backed by an internal/kvstore-loaded domain list,
// tagging membership without making an accept/reject decision — for
// chains that want to tag-then-branch (via if_matched/if_not_matched on
// later steps) rather than accept/reject in one step, the way Matcher
// does.
type DomainSetPlugin struct {
	loader DomainSetLoader
}

// NewDomainSetPlugin creates a Domain-Set plugin.
func NewDomainSetPlugin(loader DomainSetLoader) *DomainSetPlugin {
	return &DomainSetPlugin{loader: loader}
}

// Execute implements chain.Handler. Args: { set: name, tag: "in_set" }.
// Membership is checked with a match.DomainTrie built from the loaded
// set, so a loaded "example.com" also matches its subdomains rather
// than only an exact hit; an unloadable or empty set is treated as no
// membership (return false).
func (p *DomainSetPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	name := argString(args, "set", "")
	if name == "" || p.loader == nil {
		return false, nil
	}

	domains, err := p.loader.LoadDomains(context.Background(), name)
	if err != nil || len(domains) == 0 {
		return false, nil
	}

	trie := match.NewDomainTrie()
	for d := range domains {
		trie.Add(d)
	}
	if !trie.Contains(ctx.QueryDomain()) {
		return false, nil
	}

	tag := argString(args, "tag", "domain_set_matched")
	ctx.AddTag(tag)
	return true, nil
}
