// Package confidence implements the Confidence Router (C10): a pure,
// stateless decision function that turns the agent's confidence score
// (plus clarification history) into a disposition for the turn — answer
// as-is, answer with a disclaimer, let a clarifying question through, or
// escalate.
package confidence

import (
	"fmt"

	"github.com/haasonsaas/resolvr/pkg/models"
)

const (
	highThreshold   = 0.8
	mediumThreshold = 0.5

	softDisclaimer = "I'm not fully certain about this, but here's what I found:\n\n"
)

// Disposition is the routed decision for a turn's reply.
type Disposition string

const (
	// DispositionRespond sends the agent's message unchanged.
	DispositionRespond Disposition = "respond"
	// DispositionRespondWithDisclaimer prepends a soft-disclaimer prefix.
	DispositionRespondWithDisclaimer Disposition = "respond_with_disclaimer"
	// DispositionClarify lets a single low-confidence turn through
	// unescalated, trusting the agent's own clarifying question.
	DispositionClarify Disposition = "clarify"
	// DispositionEscalate overrides the agent's reply with an escalation.
	DispositionEscalate Disposition = "escalate"
)

// Decision is the Confidence Router's output for one turn.
type Decision struct {
	Disposition Disposition
	Message     string
	Escalate    bool
	Reason      string
}

// Route applies spec §4.10's confidence ladder:
//
//	score >= 0.8                                  -> respond as-is
//	0.5 <= score < 0.8                             -> respond, soft disclaimer
//	score < 0.5, clarificationCount == 0           -> let through once (clarify)
//	score < 0.5, clarificationCount >= 1           -> escalate
//
// resp.EffectiveConfidenceScore's pointer-default-to-0.75 behavior means
// an agent reply that omits confidence_score always lands in the
// high-confidence band here.
func Route(resp *models.AgentResponse, clarificationCount int) Decision {
	score := resp.EffectiveConfidenceScore()

	switch {
	case score >= highThreshold:
		return Decision{Disposition: DispositionRespond, Message: resp.UserFacingMessage}

	case score >= mediumThreshold:
		return Decision{
			Disposition: DispositionRespondWithDisclaimer,
			Message:     softDisclaimer + resp.UserFacingMessage,
		}

	case clarificationCount == 0:
		return Decision{Disposition: DispositionClarify, Message: resp.UserFacingMessage}

	default:
		return Decision{
			Disposition: DispositionEscalate,
			Message:     resp.UserFacingMessage,
			Escalate:    true,
			Reason:      fmt.Sprintf("Low confidence (%.2f) after clarification attempt", score),
		}
	}
}
