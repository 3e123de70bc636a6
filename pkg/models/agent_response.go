package models

// TicketUpdatePayload is the ticketing system update the LLM proposes
// alongside its reply.
type TicketUpdatePayload struct {
	Summary             string   `json:"summary"`
	Tags                []string `json:"tags"`
	Status              string   `json:"status"`
	LeadFields          map[string]any `json:"lead_fields,omitempty"`
	IntentClassification string `json:"intent_classification,omitempty"`
}

// Sentiment is the optional VOC-enrichment sentiment block.
type Sentiment struct {
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Emotion string  `json:"emotion,omitempty"`
}

// ResolutionReceipt documents what the agent did when it believes the
// conversation is resolved in one turn (FCR).
type ResolutionReceipt struct {
	ActionTaken      string `json:"action_taken"`
	ReferenceID      string `json:"reference_id,omitempty"`
	ExpectedTimeline string `json:"expected_timeline,omitempty"`
	NextSteps        string `json:"next_steps,omitempty"`
}

// AgentResponse is the parsed, defaulted form of the LLM's structured-JSON
// reply (the "response contract", spec §4.8). Optional VOC-enrichment
// fields use pointers so a pipeline stage can tell "absent" from
// "zero value" rather than having them default-filled.
type AgentResponse struct {
	UserFacingMessage   string              `json:"user_facing_message"`
	Intent              string              `json:"intent"`
	ExtractedFields     map[string]any      `json:"extracted_fields"`
	ShouldEscalate      bool                `json:"should_escalate"`
	EscalationReason    string              `json:"escalation_reason,omitempty"`
	TicketUpdatePayload TicketUpdatePayload `json:"ticket_update_payload"`
	ToolCalls           []ToolCall          `json:"tool_calls"`

	DetectedLanguage   *string            `json:"detected_language,omitempty"`
	IntentConfidence   *float64           `json:"intent_confidence,omitempty"`
	SecondaryIntents   []string           `json:"secondary_intents,omitempty"`
	Sentiment          *Sentiment         `json:"sentiment,omitempty"`
	ExtractedEntities  []Entity           `json:"extracted_entities,omitempty"`
	ConfidenceScore    *float64           `json:"confidence_score,omitempty"`
	ClarificationNeeded *bool             `json:"clarification_needed,omitempty"`
	CustomerStage      *string            `json:"customer_stage,omitempty"`
	ResolutionReceipt  *ResolutionReceipt `json:"resolution_receipt,omitempty"`
	FCRAchieved        *bool              `json:"fcr_achieved,omitempty"`
}

// EffectiveConfidenceScore returns ConfidenceScore if present, else the
// spec's documented default of 0.75.
func (r *AgentResponse) EffectiveConfidenceScore() float64 {
	if r.ConfidenceScore != nil {
		return *r.ConfidenceScore
	}
	return 0.75
}
