// Package sla implements the SLA Engine (C11): tier assignment, TTFR/TTR
// tracking, and threshold breach alert emission.
package sla

import "time"

// Tier is a customer support service level.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierPriority   Tier = "priority"
	TierEnterprise Tier = "enterprise"
)

// Thresholds bounds how long first response (TTFR) and full resolution
// (TTR) may take for a tier before it's considered breached.
type Thresholds struct {
	TTFR time.Duration
	TTR  time.Duration
}

var tierThresholds = map[Tier]Thresholds{
	TierStandard:   {TTFR: 15 * time.Minute, TTR: 24 * time.Hour},
	TierPriority:   {TTFR: 5 * time.Minute, TTR: 4 * time.Hour},
	TierEnterprise: {TTFR: 1 * time.Minute, TTR: 1 * time.Hour},
}

// ThresholdsFor returns the TTFR/TTR thresholds for a tier, defaulting to
// the standard tier's if the tier is unrecognized.
func ThresholdsFor(tier Tier) Thresholds {
	if t, ok := tierThresholds[tier]; ok {
		return t
	}
	return tierThresholds[TierStandard]
}

// CustomerAttributes are the signals used to assign a tier at
// conversation-create time (orchestrator step 3).
type CustomerAttributes struct {
	Plan          string
	IsVIP         bool
	LifetimeSpend float64
}

const enterpriseLifetimeSpendThreshold = 10000.0

// AssignTier maps customer attributes to a service tier. VIP flag and
// "enterprise"/"premium" plan names take precedence over spend; spend
// above the enterprise threshold promotes an otherwise-standard customer
// to priority.
func AssignTier(attrs CustomerAttributes) Tier {
	switch attrs.Plan {
	case "enterprise":
		return TierEnterprise
	case "premium", "priority":
		return TierPriority
	}
	if attrs.IsVIP {
		return TierEnterprise
	}
	if attrs.LifetimeSpend >= enterpriseLifetimeSpendThreshold {
		return TierPriority
	}
	return TierStandard
}
