package collab

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/resolvr/internal/agent"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// FixtureLLMProvider is a canned agent.LLMProvider for tests: it ignores
// the request and replies with a fixed response-contract JSON body
// (or returns Err, if set).
type FixtureLLMProvider struct {
	ResponseJSON string
	Err          error
}

// NewFixtureLLMProvider creates a fixture that always replies with
// responseJSON.
func NewFixtureLLMProvider(responseJSON string) *FixtureLLMProvider {
	return &FixtureLLMProvider{ResponseJSON: responseJSON}
}

func (f *FixtureLLMProvider) Complete(_ context.Context, _ *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	ch := make(chan *agent.CompletionChunk, 1)
	ch <- &agent.CompletionChunk{Text: f.ResponseJSON, Done: true}
	close(ch)
	return ch, nil
}

func (f *FixtureLLMProvider) Name() string          { return "fixture" }
func (f *FixtureLLMProvider) Models() []agent.Model { return nil }
func (f *FixtureLLMProvider) SupportsTools() bool   { return true }

// NullChannelOutbound discards every outbound call, recording them for
// assertions. It backs tests that don't care about transport behavior.
type NullChannelOutbound struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Typed    []string
	Escalated []EscalatedMessage
	Rich     []SentRichMessage
}

type SentMessage struct {
	ConversationID string
	Text           string
	Channel        models.Channel
}

type EscalatedMessage struct {
	ConversationID string
	Reason         string
	Summary        string
	Channel        models.Channel
}

type SentRichMessage struct {
	ConversationID string
	Payload        RichPayload
	Channel        models.Channel
}

// NewNullChannelOutbound creates an empty recording outbound fixture.
func NewNullChannelOutbound() *NullChannelOutbound {
	return &NullChannelOutbound{}
}

func (n *NullChannelOutbound) SendMessage(_ context.Context, conversationID, text string, channel models.Channel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentMessage{conversationID, text, channel})
	return nil
}

func (n *NullChannelOutbound) SendTyping(_ context.Context, conversationID string, channel models.Channel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Typed = append(n.Typed, conversationID)
	return nil
}

func (n *NullChannelOutbound) EscalateToHuman(_ context.Context, conversationID, reason, summary string, channel models.Channel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Escalated = append(n.Escalated, EscalatedMessage{conversationID, reason, summary, channel})
	return nil
}

func (n *NullChannelOutbound) SendRichMessage(_ context.Context, conversationID string, payload RichPayload, channel models.Channel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Rich = append(n.Rich, SentRichMessage{conversationID, payload, channel})
	return nil
}

// MemoryTicketing is an in-memory Ticketing fixture.
type MemoryTicketing struct {
	mu      sync.Mutex
	tickets map[string]UpdateTicketParams
}

// NewMemoryTicketing creates an empty in-memory ticketing fixture.
func NewMemoryTicketing() *MemoryTicketing {
	return &MemoryTicketing{tickets: make(map[string]UpdateTicketParams)}
}

func (m *MemoryTicketing) CreateTicket(_ context.Context, params CreateTicketParams) (TicketRef, error) {
	id := "tkt_" + uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[id] = UpdateTicketParams{TicketID: id, Summary: params.Subject}
	return TicketRef{ID: id}, nil
}

func (m *MemoryTicketing) UpdateTicket(_ context.Context, params UpdateTicketParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[params.TicketID] = params
	return nil
}

// Get returns a ticket's last known state, for test assertions.
func (m *MemoryTicketing) Get(ticketID string) (UpdateTicketParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	return t, ok
}
