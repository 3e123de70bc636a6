package orchestrator

import "github.com/haasonsaas/resolvr/pkg/models"

// ChannelPolicy holds per-channel escalation limits (spec §4.11 check 10).
type ChannelPolicy struct {
	MaxTurnsBeforeEscalation int
}

// TenantConfig is the per-tenant policy document the Escalation Policy
// and pipeline steps 2/3 read from — spec §4.11 names these as "tenant's
// escalationIntents" etc. without fixing their storage shape; SPEC_FULL's
// Ambient Stack config section loads these the way the teacher's
// internal/config/config_channels.go loads per-channel YAML documents.
type TenantConfig struct {
	AutoCreateOnNew bool

	EscalationIntents     []string
	UrgencyAutoEscalate   []models.UrgencyLevel
	RiskFlagAutoEscalate  []models.RiskFlag
	SentimentThreshold    float64
	FrustrationKeywords   []string
	MaxClarifications     int
	ChannelPolicies       map[models.Channel]ChannelPolicy
	DefaultChannelPolicy  ChannelPolicy
}

// DefaultTenantConfig returns the spec-documented defaults: urgency
// auto-escalate = {critical}; risk flags = all four named risk flags;
// sentiment threshold = -0.7 (spec §4.11).
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		AutoCreateOnNew:    true,
		UrgencyAutoEscalate: []models.UrgencyLevel{models.UrgencyCritical},
		RiskFlagAutoEscalate: []models.RiskFlag{
			models.RiskLegalThreat,
			models.RiskSocialMediaThreat,
			models.RiskPolicyException,
			models.RiskRepeatComplaint,
		},
		SentimentThreshold:   -0.7,
		MaxClarifications:    3,
		ChannelPolicies:      map[models.Channel]ChannelPolicy{},
		DefaultChannelPolicy: ChannelPolicy{MaxTurnsBeforeEscalation: 15},
	}
}

func (t TenantConfig) channelPolicy(channel models.Channel) ChannelPolicy {
	if p, ok := t.ChannelPolicies[channel]; ok {
		return p
	}
	return t.DefaultChannelPolicy
}

// TenantConfigs resolves a TenantConfig by tenant ID, falling back to a
// configured default for unknown tenants.
type TenantConfigs struct {
	ByTenant map[string]TenantConfig
	Default  TenantConfig
}

func (c TenantConfigs) For(tenantID string) TenantConfig {
	if cfg, ok := c.ByTenant[tenantID]; ok {
		return cfg
	}
	return c.Default
}
