package plugins

import (
	"log/slog"

	"github.com/dohgate/dohgate/internal/dnswire"
	"github.com/dohgate/dohgate/internal/match"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// AdblockPlugin implements the optional-convenience Adblock contract
// (spec §4.F-adblock).
type AdblockPlugin struct {
	logger *slog.Logger
}

// NewAdblockPlugin creates an Adblock plugin. logger may be nil.
func NewAdblockPlugin(logger *slog.Logger) *AdblockPlugin {
	return &AdblockPlugin{logger: logger}
}

// Execute implements chain.Handler.
func (p *AdblockPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	patterns := argStringSlice(args, "patterns")
	if len(patterns) == 0 {
		return false, nil
	}

	query := ctx.QueryDomain()

	blocked := false
	for _, pat := range patterns {
		if match.Substring(query, pat) {
			blocked = true
			break
		}
	}
	if !blocked {
		return false, nil
	}

	for _, allow := range argStringSlice(args, "whitelist") {
		if match.Suffix(query, allow, true) {
			return false, nil
		}
	}

	if argBool(args, "log", true) && p.logger != nil {
		p.logger.Info("adblock filtered query", "domain", query)
	}

	ctx.SetError(dnswire.RCodeNXDomain)
	ctx.Resolved = true
	ctx.AddTag("adblock_filtered")
	return true, nil
}
