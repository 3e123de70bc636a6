// Package orchestrator is the Orchestrator (C14): the per-message
// pipeline that composes every other component into one turn (spec
// §4.12). Step sequencing and the phase-by-phase error handling are
// generalized from internal/agent/loop.go's AgenticLoop.Run state
// machine (Init -> Stream -> Execute Tools -> Continue/Complete); the
// per-conversation ordering guarantee (spec §5) is generalized from
// internal/agent/tool_registry.go's sessionLock keyed-mutex pattern.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/resolvr/internal/agentcore"
	"github.com/haasonsaas/resolvr/internal/audit"
	"github.com/haasonsaas/resolvr/internal/auditchain"
	"github.com/haasonsaas/resolvr/internal/bgqueue"
	"github.com/haasonsaas/resolvr/internal/collab"
	"github.com/haasonsaas/resolvr/internal/confidence"
	"github.com/haasonsaas/resolvr/internal/convstore"
	"github.com/haasonsaas/resolvr/internal/customerlink"
	"github.com/haasonsaas/resolvr/internal/experiments"
	"github.com/haasonsaas/resolvr/internal/observability"
	"github.com/haasonsaas/resolvr/internal/proactive"
	"github.com/haasonsaas/resolvr/internal/sla"
	"github.com/haasonsaas/resolvr/internal/statemachine"
	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/internal/voc"
	"github.com/haasonsaas/resolvr/internal/vocstore"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// CustomerProfileProvider loads an optional Customer-360 profile (spec
// §4.12 step 8). It is external to the core (no pack example models a
// CRM client) so it is a narrow, orchestrator-owned interface rather
// than a full collaborator package.
type CustomerProfileProvider interface {
	Profile(ctx context.Context, customerID string) (string, bool, error)
}

// SkillRouter routes an escalated conversation to a human agent by
// skill/language (spec §4.12 step 23). Out of core scope; nil skips the
// step entirely.
type SkillRouter interface {
	Route(ctx context.Context, conversationID string, skills []string, language string) error
}

// Config bundles every collaborator the Orchestrator composes. Only
// ConvStore, ToolRuntime, AgentCore, and Outbound are required; the rest
// degrade gracefully to no-ops when nil, matching spec §7's "never
// throws to the caller" propagation policy.
type Config struct {
	ConvStore       convstore.Store
	CustomerLinker  *customerlink.Linker
	SLAEngine       *sla.Engine
	VOCProcessor    *voc.Processor
	VOCStore        vocstore.Store
	ProactiveChecker *proactive.Checker
	ToolRuntime     *toolruntime.Runtime
	AgentCore       *agentcore.Core
	AuditChain      *auditchain.Chain
	// AuditLogger records tool invocation/completion events for
	// operational debugging; distinct from AuditChain's tamper-evident
	// customer-action trail. Optional — nil disables this logging.
	AuditLogger     *audit.Logger
	Outbound        collab.ChannelOutbound
	Ticketing       collab.Ticketing
	Experiments     *experiments.Manager
	Background      *bgqueue.Queue
	CustomerProfile CustomerProfileProvider
	SkillRouter     SkillRouter
	Tenants         TenantConfigs
	Logger          *slog.Logger
	Tracer          *observability.Tracer

	// FastPathAllowlist overrides defaultFastPathAllowlist when set.
	FastPathAllowlist []string

	// Tool names used by the pre-fetch step (spec §4.12 step 9) and the
	// handoff short-circuit (step 13). Default to the retail domain's
	// conventional names when empty.
	OrderLookupTool string
	PhoneLookupTool string
	HandoffTool     string

	// PrefetchConfidenceThreshold is the minimum entity confidence that
	// qualifies for step 9's speculative prefetch. Spec calls this
	// "high-confidence" without a number; 0.7 is the chosen default.
	PrefetchConfidenceThreshold float64

	// RichCapableChannels lists channels step 20 is willing to send a
	// RichPayload to; others always get plain text.
	RichCapableChannels []models.Channel

	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "resolvr-orchestrator"})
	}
	if len(c.FastPathAllowlist) == 0 {
		c.FastPathAllowlist = defaultFastPathAllowlist()
	}
	if c.OrderLookupTool == "" {
		c.OrderLookupTool = "lookup_customer_orders"
	}
	if c.PhoneLookupTool == "" {
		c.PhoneLookupTool = "lookup_customer_by_phone"
	}
	if c.HandoffTool == "" {
		c.HandoffTool = "handoff_to_human"
	}
	if c.PrefetchConfidenceThreshold <= 0 {
		c.PrefetchConfidenceThreshold = 0.7
	}
	if c.RichCapableChannels == nil {
		c.RichCapableChannels = []models.Channel{models.ChannelWeb, models.ChannelBusinessChat}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Background == nil {
		c.Background = bgqueue.New(256, 2, c.Logger)
	}
}

// Orchestrator runs the per-message pipeline of spec §4.12.
type Orchestrator struct {
	cfg        Config
	metrics    *metrics
	dispatcher *dispatcher
}

// New builds an Orchestrator. ConvStore, ToolRuntime, and AgentCore must
// be non-nil.
func New(cfg Config) *Orchestrator {
	cfg.setDefaults()
	return &Orchestrator{cfg: cfg, metrics: newMetrics(), dispatcher: newDispatcher()}
}

// ProcessMessage runs one inbound turn through the full pipeline. Per
// spec §5, calls for the same conversationId are serialized; calls for
// different conversations run fully concurrently.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg InboundMessage) (*models.Conversation, error) {
	release := o.dispatcher.acquire(msg.ConversationID)
	defer release()

	ctx, rootSpan := o.cfg.Tracer.Start(ctx, "orchestrator.process_message")
	defer rootSpan.End()

	logger := o.cfg.Logger.With("conversation_id", msg.ConversationID, "tenant_id", msg.TenantID)
	now := o.cfg.Now()
	tenant := o.cfg.Tenants.For(msg.TenantID)

	// Step 1: load or create, with omnichannel linking on create.
	conv, isNew, err := o.loadOrCreate(ctx, msg, now, logger)
	if err != nil {
		o.cfg.Tracer.RecordError(rootSpan, err)
		return nil, fmt.Errorf("load or create conversation: %w", err)
	}

	// Step 2: ticket creation on a brand-new conversation.
	if isNew && tenant.AutoCreateOnNew && conv.State == models.StateNew {
		o.step(ctx, "create_ticket", func(ctx context.Context) error {
			return o.createTicket(ctx, conv, msg)
		}, logger)
	}

	// Step 3: SLA tier assignment + record start.
	o.step(ctx, "sla_assign", func(ctx context.Context) error {
		return o.assignSLA(ctx, conv, msg, now)
	}, logger)

	// Step 4: append user turn, merge inbound profile.
	conv.AppendTurn(models.Turn{Role: models.RoleUser, Content: msg.Text, Timestamp: now})
	mergeInboundProfile(&conv.StructuredMemory, msg.UserProfile)

	// Step 5: typing indicator, best-effort, backgrounded.
	o.bestEffort("send_typing", func(ctx context.Context) error {
		if o.cfg.Outbound == nil {
			return nil
		}
		return o.cfg.Outbound.SendTyping(ctx, msg.ConversationID, msg.Channel)
	})

	// Step 6: VOC Pre-Processor.
	vocResult := o.runVOC(ctx, msg, conv, now)

	// Step 7: Proactive Checker.
	proactiveContext := o.runProactive(ctx, msg, vocResult)

	// Step 8: Customer-360 profile + A/B promptVersion.
	customerContext := o.loadCustomerProfile(ctx, conv)
	promptVersion := o.resolvePromptVersion(msg.ConversationID)

	// Step 9: speculative prefetch for high-confidence phone/order entities.
	prefetch := o.startPrefetch(ctx, msg, vocResult)

	// Step 10: Agent Core first call.
	resp, err := o.invokeAgent(ctx, conv, msg, promptVersion, proactiveContext, customerContext)
	if err != nil {
		o.cfg.Tracer.RecordError(rootSpan, err)
		logger.Error("agent core failed with no static fallback", "error", err)
		return nil, fmt.Errorf("agent core: %w", err)
	}

	// Step 11: Confidence Router.
	decision := confidence.Route(resp, conv.ClarificationCount)
	applyConfidenceDecision(resp, decision)

	// Step 12: Escalation Policy + state transition.
	escalation := evaluateEscalation(tenant, resp, msg.Text, vocResult, conv.ClarificationCount, conv.TurnCount, msg.Channel)
	if escalation.Escalate {
		o.metrics.recordEscalation(escalation.Reason)
	}
	target := statemachine.ResolveTargetState(conv.State, resp.Intent, escalation.Escalate)
	conv.State = statemachine.Apply(logger, conv.State, target)

	// Step 13: execute tool calls, reusing prefetch, handling handoff.
	toolResults, escalatedByHandoff, handoffSummary := o.executeTools(ctx, msg, conv, resp.ToolCalls, prefetch, vocResult, resp)
	if escalatedByHandoff {
		conv.State = models.StateEscalated
		resp.EscalationReason = "handoff_to_human"
	}

	// Step 14: update order memory from successful lookups.
	o.updateOrderMemory(conv, resp.ToolCalls, toolResults, now)

	// Step 15: fast-path or refinement call.
	finalText := o.resolveReply(ctx, conv, msg, resp, toolResults, promptVersion, proactiveContext, customerContext)

	// Step 16: merge extracted fields.
	mergeExtractedFields(&conv.StructuredMemory, resp.ExtractedFields)

	// Step 17: ticket update, best-effort.
	o.bestEffort("update_ticket", func(ctx context.Context) error {
		return o.updateTicket(ctx, conv, resp)
	})

	// Step 18: append assistant turn, bump clarificationCount.
	conv.AppendTurn(models.Turn{Role: models.RoleAssistant, Content: finalText, Timestamp: now})
	if resp.ClarificationNeeded != nil && *resp.ClarificationNeeded {
		conv.ClarificationCount++
	}

	// Step 19: save; hand off to learning collection on terminal state.
	if err := o.cfg.ConvStore.Save(ctx, conv); err != nil {
		logger.Warn("conversation save failed", "error", err)
	}
	if conv.IsTerminal() {
		o.bestEffort("learning_collection", func(ctx context.Context) error {
			logger.Info("conversation eligible for learning collection", "state", conv.State)
			return nil
		})
	}

	// Step 20: send outbound.
	o.sendOutbound(ctx, msg, conv, resp, finalText, handoffSummary)

	// Step 21: SLA first-response + breach check.
	o.recordSLAOutcome(ctx, conv, now, logger)

	// Step 22: audit event.
	o.bestEffort("audit_message_processed", func(ctx context.Context) error {
		if o.cfg.AuditChain == nil {
			return nil
		}
		o.cfg.AuditChain.Append(ctx, models.CategoryConversation, "orchestrator", "message_processed", conv.ConversationID, msg.TenantID, map[string]any{
			"state": string(conv.State),
			"intent": resp.Intent,
		})
		return nil
	})

	// Step 23: skill routing on escalation.
	if conv.State == models.StateEscalated && o.cfg.SkillRouter != nil {
		o.bestEffort("skill_routing", func(ctx context.Context) error {
			language := primaryLanguage(vocResult)
			return o.cfg.SkillRouter.Route(ctx, conv.ConversationID, skillsForIntent(resp.Intent), language)
		})
	}

	o.metrics.recordMessageProcessed(string(conv.State))
	return conv, nil
}

// step runs fn as a named, traced pipeline stage. Errors are logged and
// swallowed — spec §7's propagation policy is "the pipeline never
// throws to the caller" for every step except Agent Core's first call.
func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error, logger *slog.Logger) {
	ctx, span := o.cfg.Tracer.Start(ctx, "orchestrator."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		o.cfg.Tracer.RecordError(span, err)
		logger.Warn("pipeline step failed", "step", name, "error", err)
	}
}

// bestEffort enqueues fn on the background queue (spec §5's named
// best-effort operations: typing indicator, audit logging, learning
// collection, SLA alerting, skill routing). A nil Background (should
// not happen after setDefaults) runs fn inline instead of dropping it.
func (o *Orchestrator) bestEffort(name string, fn bgqueue.Job) {
	if o.cfg.Background == nil {
		_ = fn(context.Background())
		return
	}
	o.cfg.Background.Enqueue(func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

func mergeInboundProfile(mem *models.StructuredMemory, profile UserProfile) {
	if mem.Name == "" && profile.Name != "" {
		mem.Name = profile.Name
	}
	if mem.Email == "" && profile.Email != "" {
		mem.Email = profile.Email
	}
	if mem.Phone == "" && profile.Phone != "" {
		mem.Phone = profile.Phone
	}
}

func mergeExtractedFields(mem *models.StructuredMemory, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "name":
			if s, ok := v.(string); ok && s != "" && mem.Name == "" {
				mem.Name = s
			}
		case "email":
			if s, ok := v.(string); ok && s != "" && mem.Email == "" {
				mem.Email = s
			}
		case "phone":
			if s, ok := v.(string); ok && s != "" && mem.Phone == "" {
				mem.Phone = s
			}
		case "company":
			if s, ok := v.(string); ok && s != "" && mem.Company == "" {
				mem.Company = s
			}
		case "intent":
			if s, ok := v.(string); ok && s != "" {
				mem.Intent = s
			}
		default:
			if mem.CustomFields == nil {
				mem.CustomFields = make(map[string]any)
			}
			mem.CustomFields[k] = v
		}
	}
}

// applyConfidenceDecision overwrites the reply with the router's decision
// (which already carries the full message — a soft-disclaimer-prefixed
// copy or the original, depending on disposition) rather than appending
// it, since Decision.Message is a replacement, not a suffix.
func applyConfidenceDecision(resp *models.AgentResponse, decision confidence.Decision) {
	resp.UserFacingMessage = decision.Message
	if decision.Escalate {
		resp.ShouldEscalate = true
		resp.EscalationReason = decision.Reason
	}
}

func primaryLanguage(voc models.VOCResult) string {
	if len(voc.DetectedLanguages) == 0 {
		return ""
	}
	return voc.DetectedLanguages[0].Language
}

func skillsForIntent(intent string) []string {
	if intent == "" {
		return nil
	}
	return []string{intent}
}

func buildEscalationSummary(voc models.VOCResult, resp *models.AgentResponse, turnCount int) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Urgency: %s", voc.Urgency.Level))
	if len(voc.RiskFlags) > 0 {
		names := make([]string, len(voc.RiskFlags))
		for i, f := range voc.RiskFlags {
			names[i] = string(f)
		}
		parts = append(parts, fmt.Sprintf("Risk Flags: %s", strings.Join(names, ", ")))
	}
	if lang := primaryLanguage(voc); lang != "" && lang != "en" {
		parts = append(parts, fmt.Sprintf("Language: %s", lang))
	}
	if resp.Sentiment != nil {
		parts = append(parts, fmt.Sprintf("Sentiment: %s (%.2f)", resp.Sentiment.Label, resp.Sentiment.Score))
	}
	if resp.CustomerStage != nil {
		parts = append(parts, fmt.Sprintf("Customer Stage: %s", *resp.CustomerStage))
	}
	parts = append(parts, fmt.Sprintf("Turn Count: %d", turnCount))
	return strings.Join(parts, " | ")
}
