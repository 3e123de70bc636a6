package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/haasonsaas/resolvr/internal/agentcore"
	"github.com/haasonsaas/resolvr/internal/auditchain"
	"github.com/haasonsaas/resolvr/internal/collab"
	"github.com/haasonsaas/resolvr/internal/convstore"
	"github.com/haasonsaas/resolvr/internal/customerlink"
	"github.com/haasonsaas/resolvr/internal/sla"
	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/internal/voc"
	"github.com/haasonsaas/resolvr/internal/vocstore"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// fixedPrompts is a minimal agentcore.PromptProvider for tests.
type fixedPrompts struct{ prompt string }

func (f fixedPrompts) SystemPrompt(models.Channel, string) string { return f.prompt }

func newTestOrchestrator(t *testing.T, responseJSON string, outbound *collab.NullChannelOutbound) *Orchestrator {
	t.Helper()

	provider := collab.NewFixtureLLMProvider(responseJSON)
	core := agentcore.New(provider, fixedPrompts{prompt: "be helpful"}, "test-model")

	convStore := convstore.NewMemoryStore()
	linker := customerlink.New(customerlink.NewMemoryStore(), convStore, nil)
	slaEngine := sla.New(sla.NewMemoryStore(), nil)
	vocProc := voc.NewProcessor(voc.DefaultEntityPrefixes())

	registry := toolruntime.NewRegistry()
	registry.Register(toolruntime.Definition{
		Name:            "lookup_customer_orders",
		Version:         "v1",
		AllowedChannels: []models.Channel{models.ChannelWeb, models.ChannelWhatsApp, models.ChannelBusinessChat},
		Handler: func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
			data, _ := json.Marshal(map[string]any{"order_no": "ORD-1", "status": "shipped"})
			return models.ToolOutcome{Success: true, Data: data}, nil
		},
	})
	registry.Register(toolruntime.Definition{
		Name:            "handoff_to_human",
		Version:         "v1",
		AllowedChannels: []models.Channel{models.ChannelWeb, models.ChannelWhatsApp, models.ChannelBusinessChat},
		Handler: func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
			return models.ToolOutcome{Success: true}, nil
		},
	})
	runtime := toolruntime.New(toolruntime.Config{Registry: registry})

	chain := auditchain.New(auditchain.NewMemoryStore(), auditchain.DefaultConfig(), nil)

	if outbound == nil {
		outbound = collab.NewNullChannelOutbound()
	}

	fixedNow := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	return New(Config{
		ConvStore:      convStore,
		CustomerLinker: linker,
		SLAEngine:      slaEngine,
		VOCProcessor:   vocProc,
		VOCStore:       vocstore.NewMemoryStore(),
		ToolRuntime:    runtime,
		AgentCore:      core,
		AuditChain:     chain,
		Outbound:       outbound,
		Ticketing:      collab.NewMemoryTicketing(),
		Tenants:        TenantConfigs{Default: DefaultTenantConfig()},
		Now:            func() time.Time { return fixedNow },
	})
}

func TestProcessMessage_GreetingNewConversation(t *testing.T) {
	resp := `{"user_facing_message":"Hi there! How can I help?","intent":"greeting","confidence_score":0.95,"extracted_fields":{},"tool_calls":[],"ticket_update_payload":{"summary":"","tags":null,"status":""}}`
	o := newTestOrchestrator(t, resp, nil)

	conv, err := o.ProcessMessage(context.Background(), InboundMessage{
		Channel:        models.ChannelWeb,
		ConversationID: "conv-1",
		VisitorID:      "visitor-1",
		TenantID:       "tenant-a",
		Text:           "hello",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if conv.TurnCount != 2 {
		t.Fatalf("expected 2 turns (user+assistant), got %d", conv.TurnCount)
	}
	if conv.Turns[len(conv.Turns)-1].Content != "Hi there! How can I help?" {
		t.Fatalf("unexpected final assistant turn: %q", conv.Turns[len(conv.Turns)-1].Content)
	}
}

func TestProcessMessage_RecordsFirstResponseSLA(t *testing.T) {
	resp := `{"user_facing_message":"Hi there! How can I help?","intent":"greeting","confidence_score":0.95,"extracted_fields":{},"tool_calls":[],"ticket_update_payload":{"summary":"","tags":null,"status":""}}`

	provider := collab.NewFixtureLLMProvider(resp)
	core := agentcore.New(provider, fixedPrompts{prompt: "be helpful"}, "test-model")
	convStore := convstore.NewMemoryStore()
	linker := customerlink.New(customerlink.NewMemoryStore(), convStore, nil)
	slaStore := sla.NewMemoryStore()
	slaEngine := sla.New(slaStore, nil)
	runtime := toolruntime.New(toolruntime.Config{Registry: toolruntime.NewRegistry()})
	chain := auditchain.New(auditchain.NewMemoryStore(), auditchain.DefaultConfig(), nil)
	fixedNow := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	o := New(Config{
		ConvStore:      convStore,
		CustomerLinker: linker,
		SLAEngine:      slaEngine,
		VOCProcessor:   voc.NewProcessor(voc.DefaultEntityPrefixes()),
		VOCStore:       vocstore.NewMemoryStore(),
		ToolRuntime:    runtime,
		AgentCore:      core,
		AuditChain:     chain,
		Outbound:       collab.NewNullChannelOutbound(),
		Ticketing:      collab.NewMemoryTicketing(),
		Tenants:        TenantConfigs{Default: DefaultTenantConfig()},
		Now:            func() time.Time { return fixedNow },
	})

	_, err := o.ProcessMessage(context.Background(), InboundMessage{
		Channel:        models.ChannelWeb,
		ConversationID: "conv-ttfr",
		VisitorID:      "visitor-1",
		TenantID:       "tenant-a",
		Text:           "hello",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	record, ok, err := slaStore.Get(context.Background(), "conv-ttfr")
	if err != nil || !ok {
		t.Fatalf("sla record lookup: ok=%v err=%v", ok, err)
	}
	if record.FirstResponseAt == nil {
		t.Fatal("expected FirstResponseAt to be set after the first assistant reply")
	}
}

func TestProcessMessage_OrderLookupFastPath(t *testing.T) {
	resp := `{"user_facing_message":"Let me check that order for you.","intent":"order_status","extracted_fields":{},"tool_calls":[{"name":"lookup_customer_orders","args":{"order_no":"ORD-1"}}],"ticket_update_payload":{"summary":"","tags":null,"status":""}}`
	outbound := collab.NewNullChannelOutbound()
	o := newTestOrchestrator(t, resp, outbound)

	conv, err := o.ProcessMessage(context.Background(), InboundMessage{
		Channel:        models.ChannelWeb,
		ConversationID: "conv-2",
		VisitorID:      "visitor-2",
		TenantID:       "tenant-a",
		Text:           "where is my order ORD-1",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if len(conv.StructuredMemory.OrderNumbers) != 1 || conv.StructuredMemory.OrderNumbers[0] != "ORD-1" {
		t.Fatalf("expected order number merged into memory, got %v", conv.StructuredMemory.OrderNumbers)
	}
	if len(outbound.Sent) != 1 {
		t.Fatalf("expected exactly one outbound message, got %d", len(outbound.Sent))
	}
}

func TestProcessMessage_LegalThreatEscalates(t *testing.T) {
	resp := `{"user_facing_message":"I understand your concern.","intent":"complaint","extracted_fields":{},"tool_calls":[],"ticket_update_payload":{"summary":"","tags":null,"status":""}}`
	outbound := collab.NewNullChannelOutbound()
	o := newTestOrchestrator(t, resp, outbound)

	conv, err := o.ProcessMessage(context.Background(), InboundMessage{
		Channel:        models.ChannelWeb,
		ConversationID: "conv-3",
		VisitorID:      "visitor-3",
		TenantID:       "tenant-a",
		Text:           "I am going to sue you and my lawyer will be in touch",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if conv.State != models.StateEscalated {
		t.Fatalf("expected ESCALATED state, got %s", conv.State)
	}
	if len(outbound.Escalated) != 1 {
		t.Fatalf("expected exactly one escalation handoff sent, got %d", len(outbound.Escalated))
	}
}

func TestProcessMessage_ConcurrentDifferentConversationsDoNotBlock(t *testing.T) {
	resp := `{"user_facing_message":"ok","intent":"other","extracted_fields":{},"tool_calls":[],"ticket_update_payload":{"summary":"","tags":null,"status":""}}`
	o := newTestOrchestrator(t, resp, nil)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		convID := fmt.Sprintf("conv-parallel-%d", i)
		go func() {
			_, err := o.ProcessMessage(context.Background(), InboundMessage{
				Channel:        models.ChannelWeb,
				ConversationID: convID,
				VisitorID:      "visitor",
				TenantID:       "tenant-a",
				Text:           "hi",
			})
			done <- err
		}()
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	}
}
