package sla

import "time"

func nsToDuration(ns int64) time.Duration { return time.Duration(ns) }

// BreachKind distinguishes which threshold was missed.
type BreachKind string

const (
	BreachTTFR BreachKind = "ttfr"
	BreachTTR  BreachKind = "ttr"
)

// Record tracks one conversation's SLA clock from assignment through
// resolution.
type Record struct {
	ConversationID  string     `json:"conversation_id"`
	TenantID        string     `json:"tenant_id"`
	Tier            Tier       `json:"tier"`
	Thresholds      Thresholds `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	FirstResponseAt *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	TTFRBreached    bool       `json:"ttfr_breached"`
	TTRBreached     bool       `json:"ttr_breached"`
}

// IsOpen reports whether the record still needs breach sweeping — i.e.
// it hasn't yet recorded both a first response and a resolution.
func (r *Record) IsOpen() bool {
	return r.FirstResponseAt == nil || r.ResolvedAt == nil
}

// BreachAlert is emitted when a sweep (or an inline check) finds a
// record that crossed a threshold.
type BreachAlert struct {
	ConversationID string
	TenantID       string
	Tier           Tier
	Kind           BreachKind
	Elapsed        time.Duration
	Threshold      time.Duration
}

// checkBreaches evaluates a record against "now" and returns any newly
// discovered breaches, without mutating the record — the caller decides
// whether/how to persist the breached flags.
func checkBreaches(r Record, now time.Time) []BreachAlert {
	var alerts []BreachAlert

	if r.FirstResponseAt == nil && !r.TTFRBreached {
		if elapsed := now.Sub(r.CreatedAt); elapsed >= r.Thresholds.TTFR {
			alerts = append(alerts, BreachAlert{
				ConversationID: r.ConversationID, TenantID: r.TenantID, Tier: r.Tier,
				Kind: BreachTTFR, Elapsed: elapsed, Threshold: r.Thresholds.TTFR,
			})
		}
	}

	if r.ResolvedAt == nil && !r.TTRBreached {
		if elapsed := now.Sub(r.CreatedAt); elapsed >= r.Thresholds.TTR {
			alerts = append(alerts, BreachAlert{
				ConversationID: r.ConversationID, TenantID: r.TenantID, Tier: r.Tier,
				Kind: BreachTTR, Elapsed: elapsed, Threshold: r.Thresholds.TTR,
			})
		}
	}

	return alerts
}
