package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/resolvr/internal/agentcore"
	"github.com/haasonsaas/resolvr/internal/collab"
	"github.com/haasonsaas/resolvr/internal/customerlink"
	"github.com/haasonsaas/resolvr/internal/sla"
	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// loadOrCreate implements spec §4.12 step 1: load the existing record,
// or create a fresh one and run omnichannel linking.
func (o *Orchestrator) loadOrCreate(ctx context.Context, msg InboundMessage, now time.Time, logger *slog.Logger) (*models.Conversation, bool, error) {
	existing, found, err := o.cfg.ConvStore.Get(ctx, msg.ConversationID)
	if err != nil {
		logger.Warn("conversation load failed, creating fresh record", "error", err)
	}
	if found && existing != nil {
		return existing, false, nil
	}

	conv := models.NewConversation(msg.ConversationID, msg.VisitorID, msg.Channel, now)

	if o.cfg.CustomerLinker != nil {
		profile := customerlink.UserProfile{
			Name:  msg.UserProfile.Name,
			Email: msg.UserProfile.Email,
			Phone: msg.UserProfile.Phone,
		}
		if linkErr := o.cfg.CustomerLinker.LinkNewConversation(ctx, conv, profile, now); linkErr != nil {
			logger.Warn("omnichannel linking failed", "error", linkErr)
		}
	}

	return conv, true, nil
}

// createTicket implements spec §4.12 step 2.
func (o *Orchestrator) createTicket(ctx context.Context, conv *models.Conversation, msg InboundMessage) error {
	if o.cfg.Ticketing == nil {
		return nil
	}
	ref, err := o.cfg.Ticketing.CreateTicket(ctx, collab.CreateTicketParams{
		ConversationID: conv.ConversationID,
		TenantID:       msg.TenantID,
		Subject:        "New conversation on " + string(msg.Channel),
		Channel:        msg.Channel,
	})
	if err != nil {
		return err
	}
	conv.TicketID = ref.ID
	return nil
}

// assignSLA implements spec §4.12 step 3. The inbound contract (spec §6)
// carries no billing/plan attributes, so tier assignment runs against
// the zero-value sla.CustomerAttributes (defaults to Standard) until a
// richer Customer-360 lookup is wired in.
func (o *Orchestrator) assignSLA(ctx context.Context, conv *models.Conversation, msg InboundMessage, now time.Time) error {
	if o.cfg.SLAEngine == nil {
		return nil
	}
	_, err := o.cfg.SLAEngine.StartRecord(ctx, conv.ConversationID, msg.TenantID, sla.CustomerAttributes{}, now)
	return err
}

// runVOC implements spec §4.12 step 6, including the best-effort,
// 90-day-retention VOC record save spec §5 lists among the named
// best-effort operations.
func (o *Orchestrator) runVOC(ctx context.Context, msg InboundMessage, conv *models.Conversation, now time.Time) models.VOCResult {
	if o.cfg.VOCProcessor == nil {
		return models.VOCResult{}
	}
	previousIntents := []string{conv.StructuredMemory.Intent}
	result := o.cfg.VOCProcessor.Process(msg.Text, models.VOCContext{
		TurnCount:          conv.TurnCount,
		ClarificationCount: conv.ClarificationCount,
		PreviousIntents:    previousIntents,
	})
	o.metrics.vocProcessed.Inc()

	if o.cfg.VOCStore != nil {
		record := models.VOCRecord{
			MessageID:      fmt.Sprintf("%s-%d", conv.ConversationID, conv.TurnCount+1),
			ConversationID: conv.ConversationID,
			Text:           msg.Text,
			Result:         result,
			CreatedAt:      now,
		}
		o.bestEffort("voc_record_save", func(ctx context.Context) error {
			return o.cfg.VOCStore.Save(ctx, record)
		})
	}

	return result
}

// runProactive implements spec §4.12 step 7.
func (o *Orchestrator) runProactive(ctx context.Context, msg InboundMessage, voc models.VOCResult) string {
	if o.cfg.ProactiveChecker == nil {
		return ""
	}
	call := toolruntime.CallContext{
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		Channel:        msg.Channel,
	}
	summary, _ := o.cfg.ProactiveChecker.Run(ctx, call, voc.Entities)
	return summary
}

// loadCustomerProfile implements spec §4.12 step 8's Customer-360 load.
func (o *Orchestrator) loadCustomerProfile(ctx context.Context, conv *models.Conversation) string {
	if o.cfg.CustomerProfile == nil || conv.CustomerID == "" {
		return ""
	}
	profile, ok, err := o.cfg.CustomerProfile.Profile(ctx, conv.CustomerID)
	if err != nil || !ok {
		return ""
	}
	return profile
}

// resolvePromptVersion implements spec §4.12 step 8's A/B resolution.
func (o *Orchestrator) resolvePromptVersion(subject string) string {
	if o.cfg.Experiments == nil {
		return ""
	}
	overrides := o.cfg.Experiments.Resolve(subject)
	for _, assignment := range overrides.Assignments {
		if assignment.VariantID != "" {
			return assignment.VariantID
		}
	}
	return ""
}

// invokeAgent implements spec §4.12 step 10.
func (o *Orchestrator) invokeAgent(ctx context.Context, conv *models.Conversation, msg InboundMessage, promptVersion, proactiveContext, customerContext string) (*models.AgentResponse, error) {
	in := agentcore.Input{
		UserText:         msg.Text,
		History:          conv.Turns,
		Memory:           conv.StructuredMemory,
		Channel:          msg.Channel,
		PromptVersion:    promptVersion,
		RequestID:        uuid.NewString(),
		ProactiveContext: proactiveContext,
		CustomerContext:  customerContext,
	}
	return o.cfg.AgentCore.Process(ctx, in)
}

// executeTools implements spec §4.12 step 13: run every LLM-requested
// tool call in parallel, reusing a matching prefetch promise when one
// exists, and short-circuiting to ESCALATED when a handoff succeeds.
func (o *Orchestrator) executeTools(ctx context.Context, msg InboundMessage, conv *models.Conversation, calls []models.ToolCall, prefetch *prefetchSet, voc models.VOCResult, resp *models.AgentResponse) ([]models.ToolResult, bool, string) {
	if len(calls) == 0 || o.cfg.ToolRuntime == nil {
		return nil, false, ""
	}

	call := toolruntime.CallContext{
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		Channel:        msg.Channel,
	}

	sessionKey := msg.TenantID + ":" + msg.ConversationID
	results := make([]models.ToolResult, len(calls))
	outcomes := make([]toolruntime.Result, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, tc := range calls {
		go func(i int, tc models.ToolCall) {
			defer wg.Done()
			toolCallID := fmt.Sprintf("%s-%d", conv.ConversationID, i)
			if o.cfg.AuditLogger != nil {
				o.cfg.AuditLogger.LogToolInvocation(ctx, tc.Name, toolCallID, tc.Args, sessionKey)
			}
			start := time.Now()
			outcomes[i] = o.resolveToolCall(ctx, call, tc, prefetch)
			results[i] = toToolResult(tc, outcomes[i])
			if o.cfg.AuditLogger != nil {
				o.cfg.AuditLogger.LogToolCompletion(ctx, tc.Name, toolCallID, outcomes[i].Outcome.Success, results[i].Content, time.Since(start), sessionKey)
			}
		}(i, tc)
	}
	wg.Wait()

	escalated := false
	for i, tc := range calls {
		if tc.Name == o.cfg.HandoffTool && outcomes[i].Outcome.Success {
			escalated = true
		}
	}
	summary := ""
	if escalated {
		summary = buildEscalationSummary(voc, resp, conv.TurnCount)
	}
	return results, escalated, summary
}

func (o *Orchestrator) resolveToolCall(ctx context.Context, call toolruntime.CallContext, tc models.ToolCall, prefetch *prefetchSet) toolruntime.Result {
	if key, ok := prefetchKeyFor(tc); ok {
		if promise, matched := prefetch.match(key, tc.Name); matched {
			select {
			case res := <-promise.result:
				return res
			case <-ctx.Done():
				return toolruntime.Result{Outcome: models.ToolOutcome{Success: false, Error: "context canceled"}}
			}
		}
	}
	return o.cfg.ToolRuntime.Execute(ctx, call, tc.Name, tc.Args)
}

// prefetchKeyFor inspects a tool call's args for the order_no/phone
// field the prefetch step keys on.
func prefetchKeyFor(tc models.ToolCall) (string, bool) {
	var args map[string]any
	if err := json.Unmarshal(tc.Args, &args); err != nil {
		return "", false
	}
	if v, ok := args["order_no"].(string); ok && v != "" {
		return "order_no:" + v, true
	}
	if v, ok := args["phone"].(string); ok && v != "" {
		return "phone:" + v, true
	}
	return "", false
}

func toToolResult(tc models.ToolCall, res toolruntime.Result) models.ToolResult {
	if res.Outcome.Success {
		return models.ToolResult{ToolCallID: tc.Name, Content: string(res.Outcome.Data), IsError: false}
	}
	return models.ToolResult{ToolCallID: tc.Name, Content: res.Outcome.Error, IsError: true}
}

// updateOrderMemory implements spec §4.12 step 14.
func (o *Orchestrator) updateOrderMemory(conv *models.Conversation, calls []models.ToolCall, results []models.ToolResult, now time.Time) {
	for i, tc := range calls {
		if tc.Name != o.cfg.OrderLookupTool || i >= len(results) || results[i].IsError {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(results[i].Content), &data); err != nil {
			continue
		}
		orderNo, _ := data["order_no"].(string)
		if orderNo == "" {
			continue
		}
		conv.StructuredMemory.MergeOrderNumber(orderNo)
		sourcePhone, _ := data["_source_phone"].(string)
		conv.StructuredMemory.CacheOrder(orderNo, data, sourcePhone, now)
	}
}

// resolveReply implements spec §4.12 step 15: fast-path template vs.
// refinement LLM call.
func (o *Orchestrator) resolveReply(ctx context.Context, conv *models.Conversation, msg InboundMessage, resp *models.AgentResponse, toolResults []models.ToolResult, promptVersion, proactiveContext, customerContext string) string {
	if len(toolResults) == 0 {
		return resp.UserFacingMessage
	}

	executedNames := make([]string, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		executedNames = append(executedNames, tc.Name)
	}
	allSucceeded := true
	for _, r := range toolResults {
		if r.IsError {
			allSucceeded = false
			break
		}
	}

	if allSucceeded && allInFastPathAllowlist(executedNames, o.cfg.FastPathAllowlist) {
		return agentcore.BuildToolResultsFallback(toolResults)
	}

	in := agentcore.Input{
		UserText:         msg.Text,
		History:          conv.Turns,
		Memory:           conv.StructuredMemory,
		Channel:          msg.Channel,
		PromptVersion:    promptVersion,
		ProactiveContext: proactiveContext,
		CustomerContext:  customerContext,
	}
	refined, err := o.cfg.AgentCore.ProcessWithToolResults(ctx, in, resp.UserFacingMessage, toolResults)
	if err != nil {
		return agentcore.BuildToolResultsFallback(toolResults)
	}
	return refined.UserFacingMessage
}

// updateTicket implements spec §4.12 step 17.
func (o *Orchestrator) updateTicket(ctx context.Context, conv *models.Conversation, resp *models.AgentResponse) error {
	if o.cfg.Ticketing == nil || conv.TicketID == "" {
		return nil
	}
	return o.cfg.Ticketing.UpdateTicket(ctx, collab.UpdateTicketParams{
		TicketID: conv.TicketID,
		Summary:  resp.TicketUpdatePayload.Summary,
		Tags:     resp.TicketUpdatePayload.Tags,
		Status:   resp.TicketUpdatePayload.Status,
	})
}

// sendOutbound implements spec §4.12 step 20. handoffSummary is the
// enriched escalation summary built in executeTools when a
// handoff_to_human tool call succeeded (spec §4.12 step 13); it takes
// priority over the plain final reply text when escalating.
func (o *Orchestrator) sendOutbound(ctx context.Context, msg InboundMessage, conv *models.Conversation, resp *models.AgentResponse, finalText, handoffSummary string) {
	if o.cfg.Outbound == nil {
		return
	}
	o.bestEffort("send_outbound", func(ctx context.Context) error {
		if conv.State == models.StateEscalated {
			reason := resp.EscalationReason
			if reason == "" {
				reason = "escalation_policy"
			}
			summary := finalText
			if handoffSummary != "" {
				summary = handoffSummary
			}
			return o.cfg.Outbound.EscalateToHuman(ctx, conv.ConversationID, reason, summary, msg.Channel)
		}
		if payload, ok := richPayloadFor(resp, msg.Channel, o.cfg.RichCapableChannels); ok {
			return o.cfg.Outbound.SendRichMessage(ctx, conv.ConversationID, payload, msg.Channel)
		}
		return o.cfg.Outbound.SendMessage(ctx, conv.ConversationID, finalText, msg.Channel)
	})
}

func richPayloadFor(resp *models.AgentResponse, channel models.Channel, capable []models.Channel) (collab.RichPayload, bool) {
	raw, ok := resp.ExtractedFields["rich_payload"]
	if !ok {
		return collab.RichPayload{}, false
	}
	supported := false
	for _, c := range capable {
		if c == channel {
			supported = true
			break
		}
	}
	if !supported {
		return collab.RichPayload{}, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return collab.RichPayload{}, false
	}
	var payload collab.RichPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return collab.RichPayload{}, false
	}
	return payload, true
}

// recordSLAOutcome implements spec §4.12 step 21.
func (o *Orchestrator) recordSLAOutcome(ctx context.Context, conv *models.Conversation, now time.Time, logger *slog.Logger) {
	if o.cfg.SLAEngine == nil {
		return
	}
	// TurnCount is 2 on the first response: step 4 appended the user turn
	// (1), step 18 appended the assistant's reply (2). TurnCount==1 would
	// never fire here — this method runs after both turns are appended.
	if conv.TurnCount == 2 {
		if err := o.cfg.SLAEngine.RecordFirstResponse(ctx, conv.ConversationID, now); err != nil {
			logger.Warn("sla first response record failed", "error", err)
		}
	}
	if conv.IsTerminal() {
		if err := o.cfg.SLAEngine.RecordResolution(ctx, conv.ConversationID, now); err != nil {
			logger.Warn("sla resolution record failed", "error", err)
		}
	}
	alerts, err := o.cfg.SLAEngine.CheckBreaches(ctx, conv.ConversationID, now)
	if err != nil {
		logger.Warn("sla breach check failed", "error", err)
		return
	}
	for _, alert := range alerts {
		logger.Warn("sla breach", "conversation_id", alert.ConversationID, "tier", alert.Tier, "kind", alert.Kind)
	}
}
