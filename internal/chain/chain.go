// Package chain implements the Plugin Registry and Chain executor (spec
// §4.C): register plugin kinds by name, build an ordered conditional chain
// from configuration, and execute it with per-step timing, error capture,
// and short-circuit on resolution.
package chain

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dohgate/dohgate/internal/reqctx"
)

// Handler is a named, stateless plugin handler (spec §3 Plugin): given a
// context and its configured args, it reports whether the step's tag
// should be added.
type Handler interface {
	Execute(ctx *reqctx.Context, args map[string]any) (bool, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx *reqctx.Context, args map[string]any) (bool, error)

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	return f(ctx, args)
}

// StepConfig is one configured step of a chain (spec §3 Plugin Chain).
type StepConfig struct {
	Kind          string
	Tag           string
	Args          map[string]any
	IfMatched     string
	IfNotMatched  string
}

// step is a StepConfig resolved against the registry at build time.
type step struct {
	kind         string
	tag          string
	args         map[string]any
	ifMatched    string
	ifNotMatched string
	handler      Handler
}

// Chain is an ordered, resolved list of steps ready to execute.
type Chain struct {
	steps  []step
	logger *slog.Logger
}

// Execute runs the chain against ctx per the spec §4.C algorithm:
// conditional skip on if_matched/if_not_matched, timed and
// error-protected invocation, tag-on-true, error-isolated continuation,
// and short-circuit once ctx.Resolved is set.
func (c *Chain) Execute(ctx *reqctx.Context) *reqctx.Context {
	for _, s := range c.steps {
		if s.ifMatched != "" && !ctx.HasTag(s.ifMatched) {
			continue
		}
		if s.ifNotMatched != "" && ctx.HasTag(s.ifNotMatched) {
			continue
		}

		matched, err := c.invoke(s, ctx)

		if err != nil {
			ctx.RecordError(s.tag, err.Error())
			if c.logger != nil {
				c.logger.Warn("plugin execution failed", "plugin_tag", s.tag, "kind", s.kind, "err", err)
			}
			if ctx.Resolved {
				break
			}
			continue
		}

		if matched {
			ctx.AddTag(s.tag)
		}

		if ctx.Resolved {
			break
		}
	}
	return ctx
}

// invoke times and recovers a single step's handler execution. A panic
// inside a plugin is treated the same as a returned error — it must never
// take down the whole request.
func (c *Chain) invoke(s step, ctx *reqctx.Context) (matched bool, err error) {
	start := time.Now()
	defer func() {
		ctx.RecordTiming(s.tag, time.Since(start))
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %q (%s) panicked: %v", s.tag, s.kind, r)
		}
	}()
	matched, err = s.handler.Execute(ctx, s.args)
	return matched, err
}
