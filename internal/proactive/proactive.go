// Package proactive implements the Proactive Checker (C13): a pre-LLM
// inspection pass that looks up known orders/shipments referenced in
// the turn and surfaces anything noteworthy (delayed shipment, pending
// refund) as context for the Agent Core, before the LLM is ever called.
package proactive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// Finding is one proactive check's result.
type Finding struct {
	ToolName string
	Entity   models.Entity
	Summary  string
}

// Check pairs an entity type with the tool that inspects it and a
// summarizer that decides whether (and how) a successful outcome is
// worth surfacing.
type Check struct {
	ToolName   string
	EntityType models.EntityType
	BuildArgs  func(entityValue string) json.RawMessage
	Summarize  func(data json.RawMessage) (summary string, notable bool)
}

// Checker runs a fixed set of Checks against extracted entities,
// invoking the Tool Runtime (C7) exactly the way the orchestrator's own
// tool-execution step would, just earlier in the pipeline and
// best-effort — a Checker failure never blocks the turn.
type Checker struct {
	runtime *toolruntime.Runtime
	checks  []Check
	logger  *slog.Logger
}

// New builds a Checker backed by the Tool Runtime and a fixed check
// list (grounded on internal/agent/executor.go's concurrent,
// semaphore-bounded tool-call pattern, here applied to a small, fixed
// pre-LLM check set instead of LLM-requested calls).
func New(runtime *toolruntime.Runtime, checks []Check, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{runtime: runtime, checks: checks, logger: logger}
}

// Run matches entities against the registered checks, invokes each
// match's tool in parallel, and returns a rendered context block plus
// the individual findings. known is the set of order numbers already
// present in structured memory — entities matching one of them still
// run (the data may have changed), but this lets a caller cheaply skip
// duplicates across turns. Returns "" with no findings if nothing
// notable turns up or every check errors.
func (c *Checker) Run(ctx context.Context, call toolruntime.CallContext, entities []models.Entity) (string, []Finding) {
	var (
		mu       sync.Mutex
		findings []Finding
		wg       sync.WaitGroup
	)

	for _, entity := range entities {
		for _, check := range c.checks {
			if entity.Type != check.EntityType {
				continue
			}
			entity, check := entity, check
			wg.Add(1)
			go func() {
				defer wg.Done()
				f, ok := c.runOne(ctx, call, entity, check)
				if !ok {
					return
				}
				mu.Lock()
				findings = append(findings, f)
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	if len(findings) == 0 {
		return "", nil
	}
	return renderContext(findings), findings
}

func (c *Checker) runOne(ctx context.Context, call toolruntime.CallContext, entity models.Entity, check Check) (Finding, bool) {
	args := check.BuildArgs(entity.Value)
	result := c.runtime.Execute(ctx, call, check.ToolName, args)
	if !result.Outcome.Success {
		if result.Failure != nil {
			c.logger.Warn("proactive check failed", "tool", check.ToolName, "entity", entity.Value, "class", result.Failure.Class)
		}
		return Finding{}, false
	}

	summary, notable := check.Summarize(result.Outcome.Data)
	if !notable {
		return Finding{}, false
	}
	return Finding{ToolName: check.ToolName, Entity: entity, Summary: summary}, true
}

// renderContext joins findings into the proactive-context text block
// the orchestrator passes into Agent Core's Process call. Order is
// determined by the caller-supplied entity/check order, not a map
// iteration, so output is reproducible for the same inputs.
func renderContext(findings []Finding) string {
	var sb strings.Builder
	sb.WriteString("Proactive findings:\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s\n", f.Summary)
	}
	return sb.String()
}
