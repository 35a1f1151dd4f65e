package plugins

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dohgate/dohgate/internal/chain"
	"github.com/dohgate/dohgate/internal/reqctx"
)

// LoadBalancerPlugin implements the Load-Balancer contract (spec
// §4.F-load-balancer): it dispatches to other registered plugins,
// resolved by tag at chain-build time into args["_resolved_upstreams"].
type LoadBalancerPlugin struct{}

// NewLoadBalancerPlugin creates a Load-Balancer plugin.
func NewLoadBalancerPlugin() *LoadBalancerPlugin { return &LoadBalancerPlugin{} }

// Execute implements chain.Handler.
func (p *LoadBalancerPlugin) Execute(ctx *reqctx.Context, args map[string]any) (bool, error) {
	upstreams, _ := args["_resolved_upstreams"].([]chain.ResolvedStep)
	if len(upstreams) == 0 {
		return false, nil
	}

	switch argString(args, "strategy", "random") {
	case "parallel":
		return p.runParallel(ctx, upstreams, argDuration(args, "parallel_timeout_ms", 2*time.Second))
	case "fallback":
		return p.runFallback(ctx, upstreams)
	default:
		return p.runRandom(ctx, upstreams)
	}
}

func (p *LoadBalancerPlugin) runRandom(ctx *reqctx.Context, upstreams []chain.ResolvedStep) (bool, error) {
	choice := upstreams[rand.Intn(len(upstreams))]
	return choice.Handler.Execute(ctx, choice.Args)
}

func (p *LoadBalancerPlugin) runFallback(ctx *reqctx.Context, upstreams []chain.ResolvedStep) (bool, error) {
	for _, u := range upstreams {
		matched, err := u.Handler.Execute(ctx, u.Args)
		if err != nil {
			continue
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

type parallelResult struct {
	clone   *reqctx.Context
	matched bool
}

// runParallel executes every upstream concurrently against an
// independent context clone with its own timeout. The first successful
// (matched && clone.Resolved) result wins; its response and
// metadata.upstream are merged back into ctx via ctx.SetResponse so the
// parent's own hooks (e.g. the Cache plugin's write-through) fire
// exactly once. Still-pending siblings are left to finish in the
// background — cancellation is best-effort and must never delay the
// reply.
func (p *LoadBalancerPlugin) runParallel(ctx *reqctx.Context, upstreams []chain.ResolvedStep, timeout time.Duration) (bool, error) {
	winner := make(chan parallelResult, len(upstreams))
	var wg sync.WaitGroup

	parent := context.Background()
	if ctx.Request != nil {
		parent = ctx.Request.Context()
	}
	deadline, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	for _, u := range upstreams {
		u := u
		clone := ctx.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			matched, err := u.Handler.Execute(clone, u.Args)
			if err != nil || !matched || !clone.Resolved {
				return
			}
			select {
			case winner <- parallelResult{clone: clone, matched: true}:
			case <-deadline.Done():
			}
		}()
	}

	go func() {
		wg.Wait()
		close(winner)
	}()

	select {
	case result, ok := <-winner:
		if !ok || !result.matched {
			return false, nil
		}
		ctx.SetResponse(result.clone.Response)
		if result.clone.Metadata != nil {
			ctx.Metadata.Upstream = result.clone.Metadata.Upstream
		}
		return true, nil
	case <-deadline.Done():
		return false, nil
	}
}
