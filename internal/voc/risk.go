package voc

import (
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

var legalThreatPhrases = []string{
	"legal action", "lawyer", "sue", "suing", "lawsuit", "consumer court",
	"consumer forum", "legal notice",
}

var socialMediaThreatPhrases = []string{
	"twitter", "instagram", "facebook", "viral", "post about this",
	"social media", "review online", "1 star", "one star",
}

var policyExceptionPhrases = []string{
	"make an exception", "just this once", "special case", "waive the",
	"bend the rules", "ignore the policy", "outside the policy",
}

// minRepeatComplaintCount is how many times the same non-trivial intent
// must recur before it's flagged as a repeat complaint.
const minRepeatComplaintCount = 2

// trivialIntents never count toward repeat-complaint detection — they
// recur naturally in a healthy conversation and aren't a complaint signal.
var trivialIntents = map[string]struct{}{
	"greeting": {}, "smalltalk": {}, "other": {}, "": {},
}

// ComputeRiskFlags evaluates each risk flag independently against the
// current turn's text and the conversation's accumulated intent history
// (spec §4.6) — a turn can carry any combination, including none.
func ComputeRiskFlags(text string, ctx models.VOCContext) []models.RiskFlag {
	lower := strings.ToLower(text)

	var flags []models.RiskFlag
	if containsAny(lower, legalThreatPhrases) {
		flags = append(flags, models.RiskLegalThreat)
	}
	if containsAny(lower, socialMediaThreatPhrases) {
		flags = append(flags, models.RiskSocialMediaThreat)
	}
	if containsAny(lower, policyExceptionPhrases) {
		flags = append(flags, models.RiskPolicyException)
	}
	if hasRepeatComplaint(ctx.PreviousIntents) {
		flags = append(flags, models.RiskRepeatComplaint)
	}
	return flags
}

// hasRepeatComplaint reports whether any non-trivial intent occurs at
// least minRepeatComplaintCount times in the conversation's intent history.
func hasRepeatComplaint(previousIntents []string) bool {
	counts := make(map[string]int)
	for _, intent := range previousIntents {
		key := strings.ToLower(strings.TrimSpace(intent))
		if _, trivial := trivialIntents[key]; trivial {
			continue
		}
		counts[key]++
		if counts[key] >= minRepeatComplaintCount {
			return true
		}
	}
	return false
}
