package agentcore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// ParseAgentResponse strips code fences, parses raw as the response
// contract, and coerces missing required fields to safe defaults
// (spec §4.8). It never panics on malformed input — a genuinely
// unparsable body is the only case it returns an error for, since the
// Orchestrator's step 10 needs to fall back to a static reply when even
// tolerant parsing fails.
func ParseAgentResponse(raw string) (*models.AgentResponse, error) {
	cleaned := stripCodeFences(raw)

	var resp models.AgentResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("parse agent response: %w", err)
	}

	applyDefaults(&resp)
	stripFunctionsPrefix(&resp)

	return &resp, nil
}

// stripCodeFences removes a leading/trailing ```json or ``` fence, which
// LLMs commonly wrap structured output in despite instructions not to.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// applyDefaults coerces missing/zero-value required fields to the
// contract's documented safe defaults.
func applyDefaults(resp *models.AgentResponse) {
	if resp.Intent == "" {
		resp.Intent = "other"
	}
	if resp.ExtractedFields == nil {
		resp.ExtractedFields = map[string]any{}
	}
	if resp.TicketUpdatePayload.Tags == nil {
		resp.TicketUpdatePayload.Tags = []string{}
	}
	if resp.ToolCalls == nil {
		resp.ToolCalls = []models.ToolCall{}
	}
}

// stripFunctionsPrefix removes a "functions." prefix some providers add
// to tool-call names when they're exposed to the model as a function
// namespace.
func stripFunctionsPrefix(resp *models.AgentResponse) {
	for i, tc := range resp.ToolCalls {
		resp.ToolCalls[i].Name = strings.TrimPrefix(tc.Name, "functions.")
	}
}
