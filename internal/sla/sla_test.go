package sla

import (
	"context"
	"testing"
	"time"
)

func TestAssignTier(t *testing.T) {
	cases := []struct {
		name  string
		attrs CustomerAttributes
		want  Tier
	}{
		{"enterprise plan", CustomerAttributes{Plan: "enterprise"}, TierEnterprise},
		{"premium plan", CustomerAttributes{Plan: "premium"}, TierPriority},
		{"vip flag", CustomerAttributes{IsVIP: true}, TierEnterprise},
		{"high spend", CustomerAttributes{LifetimeSpend: 15000}, TierPriority},
		{"default", CustomerAttributes{}, TierStandard},
	}
	for _, c := range cases {
		if got := AssignTier(c.attrs); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestThresholdsFor_UnknownTierDefaultsStandard(t *testing.T) {
	got := ThresholdsFor(Tier("nonsense"))
	want := ThresholdsFor(TierStandard)
	if got != want {
		t.Errorf("got %+v, want standard thresholds %+v", got, want)
	}
}

func TestEngine_StartRecordAndRecordFirstResponse(t *testing.T) {
	engine := New(NewMemoryStore(), nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tier, err := engine.StartRecord(ctx, "conv-1", "tenant-a", CustomerAttributes{Plan: "enterprise"}, now)
	if err != nil {
		t.Fatalf("StartRecord: %v", err)
	}
	if tier != TierEnterprise {
		t.Errorf("tier = %q", tier)
	}

	if err := engine.RecordFirstResponse(ctx, "conv-1", now.Add(30*time.Second)); err != nil {
		t.Fatalf("RecordFirstResponse: %v", err)
	}

	alerts, err := engine.CheckBreaches(ctx, "conv-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("CheckBreaches: %v", err)
	}
	for _, a := range alerts {
		if a.Kind == BreachTTFR {
			t.Error("TTFR already recorded, should not breach")
		}
	}
}

func TestEngine_CheckBreaches_TTFRBreach(t *testing.T) {
	store := NewMemoryStore()
	engine := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := engine.StartRecord(ctx, "conv-2", "tenant-a", CustomerAttributes{}, now); err != nil {
		t.Fatalf("StartRecord: %v", err)
	}

	alerts, err := engine.CheckBreaches(ctx, "conv-2", now.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("CheckBreaches: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Kind == BreachTTFR {
			found = true
		}
	}
	if !found {
		t.Error("expected a TTFR breach for a standard-tier conversation 20 minutes old with no response")
	}

	r, ok, err := store.Get(ctx, "conv-2")
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if !r.TTFRBreached {
		t.Error("expected TTFRBreached flag persisted")
	}
}

func TestEngine_Sweep_CoversAllOpenRecords(t *testing.T) {
	store := NewMemoryStore()
	engine := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := engine.StartRecord(ctx, id, "tenant", CustomerAttributes{}, now); err != nil {
			t.Fatalf("StartRecord(%s): %v", id, err)
		}
	}

	alerts, err := engine.Sweep(ctx, now.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(alerts) != 3 {
		t.Errorf("got %d alerts, want 3 (one TTFR breach per conversation)", len(alerts))
	}
}

func TestEngine_RecordResolutionIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	engine := New(store, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := engine.StartRecord(ctx, "conv-3", "tenant", CustomerAttributes{}, now); err != nil {
		t.Fatalf("StartRecord: %v", err)
	}
	if err := engine.RecordResolution(ctx, "conv-3", now.Add(time.Hour)); err != nil {
		t.Fatalf("RecordResolution: %v", err)
	}
	if err := engine.RecordResolution(ctx, "conv-3", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("RecordResolution (second call): %v", err)
	}

	r, _, _ := store.Get(ctx, "conv-3")
	if !r.ResolvedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ResolvedAt = %v, want first-call timestamp preserved", r.ResolvedAt)
	}
}

func TestNewScheduler_ParsesEveryDescriptor(t *testing.T) {
	engine := New(NewMemoryStore(), nil)
	s, err := NewScheduler(engine, "@every 30s", nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil scheduler")
	}
}

func TestNewScheduler_DefaultsWhenSpecEmpty(t *testing.T) {
	engine := New(NewMemoryStore(), nil)
	if _, err := NewScheduler(engine, "", nil); err != nil {
		t.Fatalf("NewScheduler with empty spec: %v", err)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	engine := New(NewMemoryStore(), nil)
	s, err := NewScheduler(engine, "@every 10ms", nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	s.Stop()
}
