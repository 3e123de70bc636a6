package voc

import (
	"testing"

	"github.com/haasonsaas/resolvr/pkg/models"
)

func TestDetectLanguage_EmptyTextDefaultsEnglish(t *testing.T) {
	langs := DetectLanguage("")
	if len(langs) != 1 || langs[0].Language != "en" {
		t.Fatalf("got %+v, want single en result", langs)
	}
}

func TestDetectLanguage_Devanagari(t *testing.T) {
	langs := DetectLanguage("मुझे मेरा ऑर्डर कब मिलेगा")
	if len(langs) != 1 || langs[0].Language != "hi" {
		t.Fatalf("got %+v, want hi", langs)
	}
	if langs[0].Script != "devanagari" {
		t.Errorf("Script = %q, want devanagari", langs[0].Script)
	}
}

func TestDetectLanguage_Hinglish(t *testing.T) {
	langs := DetectLanguage("mera order kab tak aayega please jaldi batao")
	if len(langs) < 2 {
		t.Fatalf("got %+v, want hinglish+en pair", langs)
	}
	if langs[0].Language != "hinglish" {
		t.Errorf("langs[0].Language = %q, want hinglish", langs[0].Language)
	}
}

func TestDetectLanguage_PlainEnglish(t *testing.T) {
	langs := DetectLanguage("Where is my order, it was supposed to arrive yesterday")
	if len(langs) != 1 || langs[0].Language != "en" {
		t.Fatalf("got %+v, want en", langs)
	}
}

func TestExtractEntities_OrderNumber(t *testing.T) {
	entities := ExtractEntities("my order ORD-123456 has not shipped", DefaultEntityPrefixes())
	found := false
	for _, e := range entities {
		if e.Type == models.EntityOrderNumber && e.Value == "ORD-123456" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected order number entity, got %+v", entities)
	}
}

func TestExtractEntities_Phone(t *testing.T) {
	entities := ExtractEntities("call me at 9876543210 after 6pm", DefaultEntityPrefixes())
	found := false
	for _, e := range entities {
		if e.Type == models.EntityPhone && e.Value == "919876543210" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected normalized phone entity, got %+v", entities)
	}
}

func TestExtractEntities_Email(t *testing.T) {
	entities := ExtractEntities("reach me at Foo.Bar@Example.com", DefaultEntityPrefixes())
	found := false
	for _, e := range entities {
		if e.Type == models.EntityEmail && e.Value == "foo.bar@example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected lowercased email entity, got %+v", entities)
	}
}

func TestExtractEntities_Amount(t *testing.T) {
	entities := ExtractEntities("I was charged ₹1,299.00 twice", DefaultEntityPrefixes())
	found := false
	for _, e := range entities {
		if e.Type == models.EntityAmount && e.Value == "1299.00" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected amount entity, got %+v", entities)
	}
}

func TestExtractEntities_AWBOnlyNearKeyword(t *testing.T) {
	withKeyword := ExtractEntities("my tracking number is 1234567890123", DefaultEntityPrefixes())
	foundAWB := false
	for _, e := range withKeyword {
		if e.Type == models.EntityAWB {
			foundAWB = true
		}
	}
	if !foundAWB {
		t.Fatalf("expected AWB entity near tracking keyword, got %+v", withKeyword)
	}

	padding := "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	withoutKeyword := ExtractEntities("random number 1234567890123 "+padding+" courier reference mentioned way over there", DefaultEntityPrefixes())
	for _, e := range withoutKeyword {
		if e.Type == models.EntityAWB {
			t.Errorf("did not expect AWB entity without nearby keyword, got %+v", withoutKeyword)
		}
	}
}

func TestExtractEntities_AWBDedupedAgainstPhone(t *testing.T) {
	entities := ExtractEntities("tracking awb 9876543210 for my shipment", DefaultEntityPrefixes())
	for _, e := range entities {
		if e.Type == models.EntityAWB {
			t.Errorf("AWB candidate matching a phone number should be dropped, got %+v", entities)
		}
	}
}

func TestComputeUrgency_LegalThreatIsCritical(t *testing.T) {
	u := ComputeUrgency("I will sue you and take legal action", models.VOCContext{})
	if u.Level != models.UrgencyCritical {
		t.Errorf("Level = %q, want critical", u.Level)
	}
}

func TestComputeUrgency_PlainMessageIsLow(t *testing.T) {
	u := ComputeUrgency("Hi, just checking on my order status", models.VOCContext{})
	if u.Level != models.UrgencyLow {
		t.Errorf("Level = %q, want low", u.Level)
	}
}

func TestComputeUrgency_LongConversationElevatesLowToMedium(t *testing.T) {
	u := ComputeUrgency("just checking in", models.VOCContext{TurnCount: 11})
	if u.Level != models.UrgencyMedium {
		t.Errorf("Level = %q, want medium", u.Level)
	}
}

func TestComputeUrgency_RepeatedClarificationElevatesOneStep(t *testing.T) {
	u := ComputeUrgency("urgent please help", models.VOCContext{ClarificationCount: 2})
	if u.Level != models.UrgencyCritical {
		t.Errorf("Level = %q, want critical (high elevated one step)", u.Level)
	}
}

func TestComputeRiskFlags_LegalThreat(t *testing.T) {
	flags := ComputeRiskFlags("I am going to sue you", models.VOCContext{})
	if !hasFlag(flags, models.RiskLegalThreat) {
		t.Errorf("expected legal_threat flag, got %+v", flags)
	}
}

func TestComputeRiskFlags_RepeatComplaint(t *testing.T) {
	ctx := models.VOCContext{PreviousIntents: []string{"refund_request", "refund_request", "greeting"}}
	flags := ComputeRiskFlags("hello again", ctx)
	if !hasFlag(flags, models.RiskRepeatComplaint) {
		t.Errorf("expected repeat_complaint flag, got %+v", flags)
	}
}

func TestComputeRiskFlags_TrivialIntentsNeverCount(t *testing.T) {
	ctx := models.VOCContext{PreviousIntents: []string{"greeting", "greeting", "greeting"}}
	flags := ComputeRiskFlags("hi", ctx)
	if hasFlag(flags, models.RiskRepeatComplaint) {
		t.Errorf("trivial intents should never trigger repeat_complaint, got %+v", flags)
	}
}

func TestComputeRiskFlags_NoneWhenClean(t *testing.T) {
	flags := ComputeRiskFlags("Thanks for the update!", models.VOCContext{})
	if len(flags) != 0 {
		t.Errorf("expected no risk flags, got %+v", flags)
	}
}

func TestProcessor_Process_CombinesAllSignals(t *testing.T) {
	p := NewProcessor(EntityPrefixes{})
	result := p.Process("I will sue you, my order ORD-987654 never arrived, call me at 9876543210", models.VOCContext{})

	if result.Urgency.Level != models.UrgencyCritical {
		t.Errorf("Urgency.Level = %q, want critical", result.Urgency.Level)
	}
	if !hasFlag(result.RiskFlags, models.RiskLegalThreat) {
		t.Errorf("expected legal_threat risk flag, got %+v", result.RiskFlags)
	}
	if len(result.Entities) < 2 {
		t.Errorf("expected multiple entities, got %+v", result.Entities)
	}
	if len(result.DetectedLanguages) == 0 {
		t.Error("expected at least one detected language")
	}
}

func hasFlag(flags []models.RiskFlag, want models.RiskFlag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
