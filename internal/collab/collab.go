// Package collab models the external collaborators named in spec §6 as
// Go interfaces: the outbound channel transport, the ticketing system,
// and the LLM provider. Production wiring supplies concrete adapters;
// tests use the fixtures in this package.
package collab

import (
	"context"

	"github.com/haasonsaas/resolvr/internal/agent"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// LLMProvider is the chat-completion collaborator spec §6 names. Agent
// Core (C8) already consumes agent.LLMProvider's richer streaming
// contract (providers/anthropic.go implements it), so this is a type
// alias rather than a second, competing interface definition — the one
// concrete adapter satisfies both names.
type LLMProvider = agent.LLMProvider

// RichPayload is a neutral rich-media envelope a channel may render
// specially (e.g. a card, a quick-reply set) — spec's "Non-goals"
// exclude a rendering engine per channel, so this stays a generic
// payload the channel adapter is free to ignore.
type RichPayload struct {
	Kind    string         `json:"kind"`
	Title   string         `json:"title,omitempty"`
	Body    string         `json:"body,omitempty"`
	Actions []RichAction   `json:"actions,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// RichAction is one button/quick-reply option within a RichPayload.
type RichAction struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChannelOutbound sends messages and signals out to whatever transport
// the inbound message arrived on.
type ChannelOutbound interface {
	SendMessage(ctx context.Context, conversationID, text string, channel models.Channel) error
	SendTyping(ctx context.Context, conversationID string, channel models.Channel) error
	EscalateToHuman(ctx context.Context, conversationID, reason, summary string, channel models.Channel) error
	SendRichMessage(ctx context.Context, conversationID string, payload RichPayload, channel models.Channel) error
}

// CreateTicketParams is the input to Ticketing.CreateTicket.
type CreateTicketParams struct {
	ConversationID string
	TenantID       string
	Subject        string
	Channel        models.Channel
}

// UpdateTicketParams is the input to Ticketing.UpdateTicket.
type UpdateTicketParams struct {
	TicketID string
	Summary  string
	Tags     []string
	Status   string
}

// TicketRef identifies a created ticket.
type TicketRef struct {
	ID string
}

// Ticketing creates and updates the backing support ticket.
type Ticketing interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (TicketRef, error)
	UpdateTicket(ctx context.Context, params UpdateTicketParams) error
}
