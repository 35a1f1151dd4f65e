package chain

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry maps plugin kind names to handlers. Population happens during
// process startup only; after boot it is read-only and safe for
// concurrent reads from many requests (spec §9 "process-wide
// initialized-once table").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{handlers: map[string]Handler{}, logger: logger}
}

// Register binds a plugin kind to a handler. The last registration for a
// given kind wins (spec §4.C register).
func (r *Registry) Register(kind string, h Handler) {
	if h == nil {
		panic(fmt.Sprintf("chain: nil handler registered for kind %q", kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Lookup returns the handler registered for kind. Build uses it to
// resolve each step's kind; Load-Balancer siblings are resolved by tag
// inside Build, not through Lookup.
func (r *Registry) Lookup(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// ResolvedStep is a sibling step resolved at build time for a plugin that
// references other steps by tag (spec §4.F-load-balancer: "References
// other registered plugins by tag"). The Load-Balancer plugin reads these
// out of its own args under the reserved key "_resolved_upstreams".
type ResolvedStep struct {
	Tag     string
	Handler Handler
	Args    map[string]any
}

// loadBalancerKind is the plugin kind whose "upstreams" arg (a list of
// sibling tags) gets resolved into ResolvedStep values at build time. It
// is a plain string, not an import of internal/plugins, to keep chain
// free of a dependency on the built-in plugin set.
const loadBalancerKind = "load_balancer"

// Build resolves a configured step list into an executable Chain. Steps
// referencing an unregistered kind are skipped with a warning, not
// treated as fatal (spec §4.C build / §7 "configuration reference not
// found"). A step with no configured tag gets a default `plugin_<index>`.
func (r *Registry) Build(cfg []StepConfig) *Chain {
	steps := make([]step, 0, len(cfg))
	byTag := map[string]step{}

	for i, sc := range cfg {
		h, ok := r.Lookup(sc.Kind)
		if !ok {
			if r.logger != nil {
				r.logger.Warn("skipping chain step: unknown plugin kind", "kind", sc.Kind, "index", i)
			}
			continue
		}
		tag := sc.Tag
		if tag == "" {
			tag = fmt.Sprintf("plugin_%d", i)
		}
		s := step{
			kind:         sc.Kind,
			tag:          tag,
			args:         sc.Args,
			ifMatched:    sc.IfMatched,
			ifNotMatched: sc.IfNotMatched,
			handler:      h,
		}
		steps = append(steps, s)
		byTag[tag] = s
	}

	for i, s := range steps {
		if s.kind != loadBalancerKind {
			continue
		}
		tags := stringSliceArg(s.args["upstreams"])
		resolved := make([]ResolvedStep, 0, len(tags))
		for _, t := range tags {
			sibling, ok := byTag[t]
			if !ok {
				if r.logger != nil {
					r.logger.Warn("load balancer references unknown sibling tag", "tag", t)
				}
				continue
			}
			resolved = append(resolved, ResolvedStep{Tag: sibling.tag, Handler: sibling.handler, Args: sibling.args})
		}
		args := make(map[string]any, len(s.args)+1)
		for k, v := range s.args {
			args[k] = v
		}
		args["_resolved_upstreams"] = resolved
		steps[i].args = args
	}

	return &Chain{steps: steps, logger: r.logger}
}

// stringSliceArg normalizes a config-decoded list arg, which may surface as
// either []string (Go-literal config) or []any (decoded from YAML/JSON via
// viper), to a []string.
func stringSliceArg(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
