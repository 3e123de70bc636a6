// Package agentcore is the Agent Core (C8): the single call boundary
// between the Orchestrator and the LLM. It builds the system prompt +
// history + memory summary into a completion request, drains the
// provider's streaming response, and parses the result against the
// closed response contract spec §4.8 defines — tolerantly, since an LLM
// is never a fully trusted JSON producer.
package agentcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/resolvr/internal/agent"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// maxHistoryTurns bounds how many prior turns are sent to the LLM per
// call; the Conversation Store already trims to convstore.MaxTurns, this
// is a second, request-local safety bound.
const maxHistoryTurns = 20

// PromptProvider resolves the channel- and version-selected system
// prompt text (spec §4.8: "a system prompt (channel- and
// version-selected)").
type PromptProvider interface {
	SystemPrompt(channel models.Channel, promptVersion string) string
}

// Core wraps an LLMProvider with the response-contract call shape.
type Core struct {
	provider agent.LLMProvider
	prompts  PromptProvider
	model    string
}

// New builds a Core. model is passed through to every CompletionRequest;
// an empty model lets the provider pick its own default.
func New(provider agent.LLMProvider, prompts PromptProvider, model string) *Core {
	return &Core{provider: provider, prompts: prompts, model: model}
}

// ProactiveContext and CustomerContext are pre-formatted text blocks the
// Orchestrator assembles (Proactive Checker / Customer Linker output)
// and that Process/ProcessWithToolResults fold into the prompt verbatim
// when non-empty.
type Input struct {
	UserText         string
	History          []models.Turn
	Memory           models.StructuredMemory
	Channel          models.Channel
	PromptVersion    string
	RequestID        string
	ProactiveContext string
	CustomerContext  string
}

// Process implements the first LLM call of spec §4.8's Agent Core.
func (c *Core) Process(ctx context.Context, in Input) (*models.AgentResponse, error) {
	messages := c.buildHistoryMessages(in.History)
	messages = append(messages, agent.CompletionMessage{Role: "user", Content: in.UserText})
	return c.complete(ctx, in, messages)
}

// ProcessWithToolResults implements the second, tool-result-refinement
// call: the user's last message, the prior (pre-refinement) reply, and
// a structured summary of each tool result.
func (c *Core) ProcessWithToolResults(ctx context.Context, in Input, previousReply string, toolResults []models.ToolResult) (*models.AgentResponse, error) {
	messages := c.buildHistoryMessages(in.History)
	messages = append(messages,
		agent.CompletionMessage{Role: "user", Content: in.UserText},
		agent.CompletionMessage{Role: "assistant", Content: previousReply},
		agent.CompletionMessage{Role: "user", Content: summarizeToolResults(toolResults)},
	)
	return c.complete(ctx, in, messages)
}

func (c *Core) complete(ctx context.Context, in Input, messages []agent.CompletionMessage) (*models.AgentResponse, error) {
	system := c.systemPrompt(in)

	req := &agent.CompletionRequest{
		Model:    c.model,
		System:   system,
		Messages: messages,
	}

	chunks, err := c.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, fmt.Errorf("llm completion stream: %w", chunk.Error)
		}
		sb.WriteString(chunk.Text)
		if chunk.Done {
			break
		}
	}

	return ParseAgentResponse(sb.String())
}

func (c *Core) systemPrompt(in Input) string {
	var base string
	if c.prompts != nil {
		base = c.prompts.SystemPrompt(in.Channel, in.PromptVersion)
	}

	var extras []string
	if mem := summarizeMemory(in.Memory); mem != "" {
		extras = append(extras, "Known customer context:\n"+mem)
	}
	if in.ProactiveContext != "" {
		extras = append(extras, "Proactive findings:\n"+in.ProactiveContext)
	}
	if in.CustomerContext != "" {
		extras = append(extras, "Customer profile:\n"+in.CustomerContext)
	}
	if len(extras) == 0 {
		return base
	}
	return base + "\n\n" + strings.Join(extras, "\n\n")
}

func (c *Core) buildHistoryMessages(history []models.Turn) []agent.CompletionMessage {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	out := make([]agent.CompletionMessage, 0, len(history))
	for _, turn := range history {
		role := "user"
		switch turn.Role {
		case models.RoleAssistant:
			role = "assistant"
		case models.RoleSystem:
			continue // system turns belong in the system prompt, not the message list
		}
		out = append(out, agent.CompletionMessage{Role: role, Content: turn.Content})
	}
	return out
}

func summarizeMemory(mem models.StructuredMemory) string {
	var parts []string
	if mem.Name != "" {
		parts = append(parts, "name: "+mem.Name)
	}
	if mem.Email != "" {
		parts = append(parts, "email: "+mem.Email)
	}
	if mem.Phone != "" {
		parts = append(parts, "phone: "+mem.Phone)
	}
	if mem.Company != "" {
		parts = append(parts, "company: "+mem.Company)
	}
	if mem.Intent != "" {
		parts = append(parts, "last intent: "+mem.Intent)
	}
	if len(mem.OrderNumbers) > 0 {
		parts = append(parts, "order numbers: "+strings.Join(mem.OrderNumbers, ", "))
	}
	return strings.Join(parts, "\n")
}
