package orchestrator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// prefetchPromise is a speculative tool call result that can be awaited
// at most once and reused by the later tool-execution step (spec §9's
// "Prefetch futures coordinated with later tool calls"). Cancellation of
// the parent request must not mutate conversation state, so a prefetch
// whose result is never consumed simply completes and is discarded.
type prefetchPromise struct {
	toolName string
	result   chan toolruntime.Result
}

// prefetchSet indexes in-flight prefetch promises by "<kind>:<value>".
type prefetchSet struct {
	mu     sync.Mutex
	byKey  map[string]*prefetchPromise
}

func newPrefetchSet() *prefetchSet {
	return &prefetchSet{byKey: make(map[string]*prefetchPromise)}
}

func (p *prefetchSet) add(key, toolName string) *prefetchPromise {
	promise := &prefetchPromise{toolName: toolName, result: make(chan toolruntime.Result, 1)}
	p.mu.Lock()
	p.byKey[key] = promise
	p.mu.Unlock()
	return promise
}

// match returns the promise for key if it was registered for toolName,
// so a later tool call only reuses a prefetch issued for the same tool.
func (p *prefetchSet) match(key, toolName string) (*prefetchPromise, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	promise, ok := p.byKey[key]
	if !ok || promise.toolName != toolName {
		return nil, false
	}
	return promise, true
}

// startPrefetch launches a tool call for every high-confidence phone/
// order_number entity (spec §4.12 step 9), keyed "order_no:<v>" or
// "phone:<v>".
func (o *Orchestrator) startPrefetch(ctx context.Context, msg InboundMessage, voc models.VOCResult) *prefetchSet {
	set := newPrefetchSet()
	if o.cfg.ToolRuntime == nil {
		return set
	}
	call := toolruntime.CallContext{
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		Channel:        msg.Channel,
	}
	for _, entity := range voc.Entities {
		if entity.Confidence < o.cfg.PrefetchConfidenceThreshold {
			continue
		}
		var key, toolName, argKey string
		switch entity.Type {
		case models.EntityOrderNumber:
			key, toolName, argKey = "order_no:"+entity.Value, o.cfg.OrderLookupTool, "order_no"
		case models.EntityPhone:
			key, toolName, argKey = "phone:"+entity.Value, o.cfg.PhoneLookupTool, "phone"
		default:
			continue
		}
		promise := set.add(key, toolName)
		args, _ := json.Marshal(map[string]string{argKey: entity.Value})
		go func() {
			promise.result <- o.cfg.ToolRuntime.Execute(ctx, call, toolName, args)
		}()
	}
	return set
}
