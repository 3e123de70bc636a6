package voc

import (
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// urgencyKeywords is the keyword-class ladder, checked in order
// (critical before high before medium before low): first class whose
// keywords all — any — match wins.
var urgencyKeywords = []struct {
	level    models.UrgencyLevel
	signal   string
	keywords []string
}{
	{
		level:  models.UrgencyCritical,
		signal: "legal_threat_keywords",
		keywords: []string{
			"legal action", "lawyer", "sue", "suing", "lawsuit", "consumer court",
			"consumer forum", "legal notice", "police complaint", "fir",
		},
	},
	{
		level:  models.UrgencyHigh,
		signal: "escalation_keywords",
		keywords: []string{
			"urgent", "immediately", "asap", "right now", "emergency",
			"escalate", "manager", "supervisor", "furious", "unacceptable",
			"scam", "fraud", "cheated",
		},
	},
	{
		level:  models.UrgencyMedium,
		signal: "concern_keywords",
		keywords: []string{
			"not happy", "disappointed", "frustrated", "still waiting",
			"delay", "delayed", "late", "when will", "refund", "cancel",
		},
	},
}

// ComputeUrgency applies the keyword-class ladder and the turn-count /
// clarification-count elevations (spec §4.6).
func ComputeUrgency(text string, ctx models.VOCContext) models.Urgency {
	lower := strings.ToLower(text)

	level := models.UrgencyLow
	var signals []string

	matched := false
	for _, class := range urgencyKeywords {
		if containsAny(lower, class.keywords) {
			level = class.level
			signals = append(signals, class.signal)
			matched = true
			break
		}
	}
	if !matched {
		signals = append(signals, "no_urgency_keywords")
	}

	if ctx.TurnCount > 10 && level == models.UrgencyLow {
		level = models.UrgencyMedium
		signals = append(signals, "long_conversation")
	}

	if ctx.ClarificationCount > 1 {
		elevated := elevate(level)
		if elevated != level {
			level = elevated
			signals = append(signals, "repeated_clarification")
		}
	}

	return models.Urgency{Level: level, Signals: signals}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// elevate bumps a level one step up the ladder; critical stays critical.
func elevate(level models.UrgencyLevel) models.UrgencyLevel {
	switch level {
	case models.UrgencyLow:
		return models.UrgencyMedium
	case models.UrgencyMedium:
		return models.UrgencyHigh
	case models.UrgencyHigh:
		return models.UrgencyCritical
	default:
		return level
	}
}
