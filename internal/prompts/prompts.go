// Package prompts builds the channel- and version-selected system
// prompt the Agent Core (internal/agentcore) sends with every LLM
// call. Structured the way the teacher's internal/gateway/system_prompt.go
// assembles a prompt from named sections, just with resolvr's own
// sections (response contract, channel tone, version) instead of
// identity/workspace/skill sections.
package prompts

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// basePrompt describes the JSON response contract every completion
// must follow, regardless of channel or version. Field names mirror
// pkg/models.AgentResponse's json tags exactly so the LLM's output
// round-trips through agentcore.ParseAgentResponse without translation.
const basePrompt = `You are a customer support agent. Reply with a single JSON object and nothing else, matching this shape:

{
  "user_facing_message": string,
  "intent": string,
  "extracted_fields": object,
  "should_escalate": bool,
  "escalation_reason": string (optional, only when should_escalate is true),
  "ticket_update_payload": object,
  "tool_calls": array,
  "detected_language": string (optional, BCP-47 tag),
  "intent_confidence": number 0-1 (optional),
  "secondary_intents": array of strings (optional),
  "sentiment": object (optional),
  "extracted_entities": array (optional),
  "confidence_score": number 0-1 (optional, default 0.75 if omitted),
  "clarification_needed": bool (optional),
  "customer_stage": string (optional)
}

Set should_escalate=true and fill escalation_reason whenever the customer
threatens legal action, threatens to post on social media, asks for a
policy exception, or repeats a complaint you already addressed. Never
fabricate order, shipment, or account data — call a tool instead.`

// channelNotes adds a short, channel-appropriate tone note. Voice/media
// channels are out of scope; only the three supported channels get an
// entry, matching the spec's own channel set.
var channelNotes = map[models.Channel]string{
	models.ChannelWeb:          "Channel: web chat widget. Replies may use short paragraphs and markdown links.",
	models.ChannelWhatsApp:     "Channel: WhatsApp. Keep replies short — a few sentences, no markdown tables.",
	models.ChannelBusinessChat: "Channel: business chat integration. Match the brand's existing support tone.",
}

// Provider implements agentcore.PromptProvider.
type Provider struct {
	// Versions maps a prompt version tag to an additional instruction
	// block appended after the base contract and channel note — e.g. a
	// v2 prompt trialled by the A/B experiment manager. A nil or
	// unrecognized version falls back to the base prompt only.
	Versions map[string]string
}

// New builds a Provider. versions may be nil.
func New(versions map[string]string) *Provider {
	return &Provider{Versions: versions}
}

// SystemPrompt implements agentcore.PromptProvider.
func (p *Provider) SystemPrompt(channel models.Channel, promptVersion string) string {
	parts := []string{basePrompt}
	if note, ok := channelNotes[channel]; ok {
		parts = append(parts, note)
	}
	if p != nil && promptVersion != "" {
		if extra, ok := p.Versions[promptVersion]; ok && strings.TrimSpace(extra) != "" {
			parts = append(parts, fmt.Sprintf("Prompt version %s addendum:\n%s", promptVersion, extra))
		}
	}
	return strings.Join(parts, "\n\n")
}
