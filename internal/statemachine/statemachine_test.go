package statemachine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/haasonsaas/resolvr/pkg/models"
)

func TestResolveTargetState_EscalationAlwaysWins(t *testing.T) {
	got := ResolveTargetState(models.StateOrderInquiry, "order_status", true)
	if got != models.StateEscalated {
		t.Errorf("got %q, want ESCALATED", got)
	}
}

func TestResolveTargetState_FixedIntentMapping(t *testing.T) {
	cases := []struct {
		intent string
		want   models.ConversationState
	}{
		{"order_status", models.StateOrderInquiry},
		{"shipment_tracking", models.StateShipmentTracking},
		{"return_request", models.StateReturnRefund},
		{"product_question", models.StateProductInquiry},
		{"lead_qualification", models.StateLeadQualification},
		{"meeting_request", models.StateMeetingBooking},
		{"support_issue", models.StateSupportTriage},
	}
	for _, c := range cases {
		got := ResolveTargetState(models.StateActiveQA, c.intent, false)
		if got != c.want {
			t.Errorf("intent %q: got %q, want %q", c.intent, got, c.want)
		}
	}
}

func TestResolveTargetState_NewGoesActiveQAOnGenericIntent(t *testing.T) {
	got := ResolveTargetState(models.StateNew, "smalltalk", false)
	if got != models.StateActiveQA {
		t.Errorf("got %q, want ACTIVE_QA", got)
	}
}

func TestResolveTargetState_UnknownIntentStaysPut(t *testing.T) {
	got := ResolveTargetState(models.StateOrderInquiry, "totally_unrecognized_intent", false)
	if got != models.StateOrderInquiry {
		t.Errorf("got %q, want current state unchanged", got)
	}
}

func TestApply_TerminalStateIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := Apply(logger, models.StateResolved, models.StateActiveQA)
	if got != models.StateResolved {
		t.Errorf("got %q, want RESOLVED to stay terminal", got)
	}
	if buf.Len() == 0 {
		t.Error("expected illegal transition attempt to be logged")
	}
}

func TestApply_LegalEdgeSucceeds(t *testing.T) {
	got := Apply(nil, models.StateActiveQA, models.StateOrderInquiry)
	if got != models.StateOrderInquiry {
		t.Errorf("got %q, want ORDER_INQUIRY", got)
	}
}

func TestApply_IllegalEdgeRejectedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := Apply(logger, models.StateMeetingBooking, models.StateLeadQualification)
	if got != models.StateMeetingBooking {
		t.Errorf("got %q, want unchanged (illegal edge)", got)
	}
	if buf.Len() == 0 {
		t.Error("expected illegal transition to be logged")
	}
}

func TestApply_SameStateAlwaysNoOpWithoutLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := Apply(logger, models.StateActiveQA, models.StateActiveQA)
	if got != models.StateActiveQA {
		t.Errorf("got %q, want ACTIVE_QA", got)
	}
	if buf.Len() != 0 {
		t.Error("same-state no-op should not be logged as an illegal transition")
	}
}

func TestResolveThenApply_EscalationFromAnyState(t *testing.T) {
	for _, current := range []models.ConversationState{
		models.StateNew, models.StateActiveQA, models.StateOrderInquiry,
		models.StateShipmentTracking, models.StateReturnRefund, models.StateProductInquiry,
		models.StateLeadQualification, models.StateMeetingBooking, models.StateSupportTriage,
	} {
		target := ResolveTargetState(current, "anything", true)
		got := Apply(nil, current, target)
		if got != models.StateEscalated {
			t.Errorf("from %q: got %q, want ESCALATED reachable from every non-terminal state", current, got)
		}
	}
}
