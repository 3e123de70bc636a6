// Package statemachine is the Conversation State Machine (C9): a fixed
// transition table keyed on (State, Intent), in the same
// first-match-wins rule-table spirit as internal/agent/routing.Router's
// rule list, just applied to conversation states instead of LLM
// provider selection.
package statemachine

import (
	"log/slog"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// intentTargetState is the fixed intent→state mapping spec §4.9 names.
// Intents absent from this map don't move the conversation off its
// current state.
var intentTargetState = map[string]models.ConversationState{
	"order_status":        models.StateOrderInquiry,
	"order_inquiry":       models.StateOrderInquiry,
	"shipment_tracking":   models.StateShipmentTracking,
	"tracking_request":    models.StateShipmentTracking,
	"return_request":      models.StateReturnRefund,
	"refund_request":      models.StateReturnRefund,
	"product_question":    models.StateProductInquiry,
	"product_inquiry":     models.StateProductInquiry,
	"lead_qualification":  models.StateLeadQualification,
	"meeting_request":     models.StateMeetingBooking,
	"meeting_booking":     models.StateMeetingBooking,
	"support_issue":       models.StateSupportTriage,
	"complaint":           models.StateSupportTriage,
	"greeting":            models.StateActiveQA,
	"smalltalk":           models.StateActiveQA,
	"other":               models.StateActiveQA,
	"resolved":            models.StateResolved,
}

// allowedTransitions is the legal from→to edge set. RESOLVED and
// ESCALATED have no outgoing edges — they're terminal.
var allowedTransitions = map[models.ConversationState]map[models.ConversationState]struct{}{
	models.StateNew: set(
		models.StateActiveQA, models.StateOrderInquiry, models.StateShipmentTracking,
		models.StateReturnRefund, models.StateProductInquiry, models.StateLeadQualification,
		models.StateMeetingBooking, models.StateSupportTriage, models.StateEscalated,
	),
	models.StateActiveQA: set(
		models.StateOrderInquiry, models.StateShipmentTracking, models.StateReturnRefund,
		models.StateProductInquiry, models.StateLeadQualification, models.StateMeetingBooking,
		models.StateSupportTriage, models.StateResolved, models.StateEscalated,
	),
	models.StateOrderInquiry: set(
		models.StateActiveQA, models.StateShipmentTracking, models.StateReturnRefund,
		models.StateResolved, models.StateEscalated,
	),
	models.StateShipmentTracking: set(
		models.StateActiveQA, models.StateOrderInquiry, models.StateReturnRefund,
		models.StateResolved, models.StateEscalated,
	),
	models.StateReturnRefund: set(
		models.StateActiveQA, models.StateOrderInquiry, models.StateResolved, models.StateEscalated,
	),
	models.StateProductInquiry: set(
		models.StateActiveQA, models.StateLeadQualification, models.StateResolved, models.StateEscalated,
	),
	models.StateLeadQualification: set(
		models.StateActiveQA, models.StateMeetingBooking, models.StateProductInquiry,
		models.StateResolved, models.StateEscalated,
	),
	models.StateMeetingBooking: set(
		models.StateActiveQA, models.StateResolved, models.StateEscalated,
	),
	models.StateSupportTriage: set(
		models.StateActiveQA, models.StateOrderInquiry, models.StateShipmentTracking,
		models.StateReturnRefund, models.StateResolved, models.StateEscalated,
	),
	models.StateResolved:   {},
	models.StateEscalated:  {},
}

func set(states ...models.ConversationState) map[models.ConversationState]struct{} {
	out := make(map[models.ConversationState]struct{}, len(states))
	for _, s := range states {
		out[s] = struct{}{}
	}
	return out
}

// ResolveTargetState computes the state an intent (and escalation
// decision) would move the conversation to, before the transition
// table's legality check is applied (spec §4.9).
func ResolveTargetState(current models.ConversationState, intent string, shouldEscalate bool) models.ConversationState {
	if shouldEscalate {
		return models.StateEscalated
	}
	if target, ok := intentTargetState[intent]; ok {
		return target
	}
	if current == models.StateNew {
		return models.StateActiveQA
	}
	return current
}

// Apply moves current to target if the edge is legal (or target ==
// current, a no-op that's always legal); otherwise it logs and returns
// current unchanged, matching spec §4.9's "an attempt to a non-allowed
// target is a no-op (logged)".
func Apply(logger *slog.Logger, current, target models.ConversationState) models.ConversationState {
	if current == target {
		return current
	}
	if _, ok := allowedTransitions[current][target]; ok {
		return target
	}
	if logger != nil {
		logger.Warn("state machine: illegal transition attempted, ignoring",
			"from", current, "to", target)
	}
	return current
}
