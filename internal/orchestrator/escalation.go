package orchestrator

import (
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// EscalationResult is the outcome of evaluating the ten ordered checks
// in spec §4.11. Reason names the first check that tripped; later
// checks are not evaluated once one has (the policy only needs to know
// that escalation is warranted, not every reason it is).
type EscalationResult struct {
	Escalate bool
	Reason   string
}

// evaluateEscalation runs spec §4.11's ten ordered checks against the
// current turn, stopping at the first that trips.
func evaluateEscalation(
	tenant TenantConfig,
	resp *models.AgentResponse,
	userText string,
	voc models.VOCResult,
	clarificationCount int,
	turnCount int,
	channel models.Channel,
) EscalationResult {
	// 1. response.shouldEscalate
	if resp.ShouldEscalate {
		return EscalationResult{true, "response_should_escalate"}
	}

	// 2. intent in tenant's escalationIntents
	if containsFold(tenant.EscalationIntents, resp.Intent) {
		return EscalationResult{true, "escalation_intent"}
	}

	// 3. urgency in urgencyAutoEscalate
	if containsUrgency(tenant.UrgencyAutoEscalate, voc.Urgency.Level) {
		return EscalationResult{true, "urgency_auto_escalate"}
	}

	// 4-7. any risk flag in riskFlagAutoEscalate
	for _, flag := range voc.RiskFlags {
		if containsRiskFlag(tenant.RiskFlagAutoEscalate, flag) {
			return EscalationResult{true, "risk_flag:" + string(flag)}
		}
	}

	// 8. sentiment.score < sentimentEscalationThreshold
	if resp.Sentiment != nil && resp.Sentiment.Score < tenant.SentimentThreshold {
		return EscalationResult{true, "sentiment_threshold"}
	}

	// 9. message contains any frustrationKeywords
	if containsAnyKeyword(userText, tenant.FrustrationKeywords) {
		return EscalationResult{true, "frustration_keyword"}
	}

	// 10. clarificationCount >= maxClarifications OR turnCount >= channel max
	if tenant.MaxClarifications > 0 && clarificationCount >= tenant.MaxClarifications {
		return EscalationResult{true, "max_clarifications"}
	}
	policy := tenant.channelPolicy(channel)
	if policy.MaxTurnsBeforeEscalation > 0 && turnCount >= policy.MaxTurnsBeforeEscalation {
		return EscalationResult{true, "max_turns_before_escalation"}
	}

	return EscalationResult{false, ""}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func containsUrgency(levels []models.UrgencyLevel, level models.UrgencyLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func containsRiskFlag(flags []models.RiskFlag, flag models.RiskFlag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
