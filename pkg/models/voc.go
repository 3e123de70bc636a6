package models

import "time"

// UrgencyLevel classifies how fast a turn needs a response.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// RiskFlag names an independently evaluated risk signal (spec §4.6).
type RiskFlag string

const (
	RiskLegalThreat          RiskFlag = "legal_threat"
	RiskSocialMediaThreat    RiskFlag = "social_media_threat"
	RiskPolicyException      RiskFlag = "policy_exception_requested"
	RiskRepeatComplaint      RiskFlag = "repeat_complaint"
)

// EntityType names the kind of entity a VOC extraction rule produced.
type EntityType string

const (
	EntityOrderNumber EntityType = "order_number"
	EntityPhone       EntityType = "phone"
	EntityEmail       EntityType = "email"
	EntityAmount      EntityType = "amount"
	EntityReturnID    EntityType = "return_id"
	EntityPaymentID   EntityType = "payment_id"
	EntityAWB         EntityType = "awb"
)

// Entity is one deterministic extraction result.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	RawText    string     `json:"raw_text"`
	Confidence float64    `json:"confidence"`
}

// DetectedLanguage is one entry in the ranked language-detection result.
type DetectedLanguage struct {
	Language   string  `json:"language"` // hi, hinglish, en
	Confidence float64 `json:"confidence"`
	Script     string  `json:"script,omitempty"` // devanagari, latin
}

// Urgency is the VOC urgency verdict with the signals that produced it.
type Urgency struct {
	Level   UrgencyLevel `json:"level"`
	Signals []string     `json:"signals"`
}

// VOCResult is the synchronous, deterministic output of the VOC
// Pre-Processor (C6) for one inbound turn.
type VOCResult struct {
	DetectedLanguages []DetectedLanguage `json:"detected_languages"`
	Entities          []Entity           `json:"entities"`
	Urgency           Urgency            `json:"urgency"`
	RiskFlags         []RiskFlag         `json:"risk_flags"`
}

// VOCContext carries the per-conversation state the pre-processor needs to
// elevate urgency or detect repeat complaints.
type VOCContext struct {
	TurnCount          int
	ClarificationCount int
	PreviousIntents    []string
}

// VOCRecord is the one-per-inbound-turn persisted record (spec §3), with a
// 90-day retention window enforced by whichever store backs it.
type VOCRecord struct {
	MessageID      string    `json:"message_id"` // conversationId + "-" + turnCount
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Result         VOCResult `json:"result"`
	CreatedAt      time.Time `json:"created_at"`
}
