package sla

import (
	"context"
	"log/slog"
	"time"
)

// Engine assigns tiers, tracks TTFR/TTR against a Store, and sweeps for
// breaches.
type Engine struct {
	store   Store
	metrics *metrics
	logger  *slog.Logger
}

// New creates an Engine backed by store. A nil logger falls back to
// slog.Default().
func New(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, metrics: newMetrics(), logger: logger}
}

// StartRecord begins SLA tracking for a newly created conversation
// (orchestrator step 3).
func (e *Engine) StartRecord(ctx context.Context, conversationID, tenantID string, attrs CustomerAttributes, now time.Time) (Tier, error) {
	tier := AssignTier(attrs)
	record := Record{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Tier:           tier,
		Thresholds:     ThresholdsFor(tier),
		CreatedAt:      now,
	}
	if err := e.store.Create(ctx, record); err != nil {
		return tier, err
	}
	return tier, nil
}

// RecordFirstResponse marks TTFR for a conversation if not already
// recorded (orchestrator step 21: "if turnCount==1").
func (e *Engine) RecordFirstResponse(ctx context.Context, conversationID string, now time.Time) error {
	r, ok, err := e.store.Get(ctx, conversationID)
	if err != nil || !ok || r.FirstResponseAt != nil {
		return err
	}
	r.FirstResponseAt = &now
	return e.store.Update(ctx, *r)
}

// RecordResolution marks TTR when the conversation reaches a terminal
// state.
func (e *Engine) RecordResolution(ctx context.Context, conversationID string, now time.Time) error {
	r, ok, err := e.store.Get(ctx, conversationID)
	if err != nil || !ok || r.ResolvedAt != nil {
		return err
	}
	r.ResolvedAt = &now
	return e.store.Update(ctx, *r)
}

// CheckBreaches evaluates one conversation's record against now and
// persists any newly discovered breach flags, emitting metrics and a
// warn log per breach — the inline check orchestrator step 21 runs
// per-message.
func (e *Engine) CheckBreaches(ctx context.Context, conversationID string, now time.Time) ([]BreachAlert, error) {
	r, ok, err := e.store.Get(ctx, conversationID)
	if err != nil || !ok {
		return nil, err
	}
	alerts := checkBreaches(*r, now)
	if len(alerts) == 0 {
		return nil, nil
	}
	e.applyAndPersist(ctx, r, alerts)
	return alerts, nil
}

// Sweep scans every open record for breaches — the robfig/cron-driven
// periodic pass.
func (e *Engine) Sweep(ctx context.Context, now time.Time) ([]BreachAlert, error) {
	open, err := e.store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	var all []BreachAlert
	for i := range open {
		r := open[i]
		alerts := checkBreaches(r, now)
		if len(alerts) == 0 {
			continue
		}
		e.applyAndPersist(ctx, &r, alerts)
		all = append(all, alerts...)
	}
	return all, nil
}

func (e *Engine) applyAndPersist(ctx context.Context, r *Record, alerts []BreachAlert) {
	for _, a := range alerts {
		switch a.Kind {
		case BreachTTFR:
			r.TTFRBreached = true
		case BreachTTR:
			r.TTRBreached = true
		}
		e.metrics.recordBreach(a.Tier, a.Kind)
		e.logger.Warn("sla threshold breached",
			"conversation_id", a.ConversationID, "tenant_id", a.TenantID,
			"tier", a.Tier, "kind", a.Kind, "elapsed", a.Elapsed, "threshold", a.Threshold)
	}
	if err := e.store.Update(ctx, *r); err != nil {
		e.logger.Warn("sla: failed to persist breach flags", "conversation_id", r.ConversationID, "error", err)
	}
}
