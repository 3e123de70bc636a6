// Package toolruntime is the Tool Registry & Runtime (C7): the gated,
// validated, observable path every tool call takes between the Agent
// Core deciding to call a tool and a handler actually running — schema
// checks, rate limiting, dependency health, caching, retry, metrics, and
// audit, all as one fixed pipeline (spec §4.7).
package toolruntime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// HandlerFunc is a tool's actual implementation. args is the caller's
// raw JSON; the returned ToolOutcome is never both Success and Error.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error)

// Definition describes one registered tool (spec §4.7).
type Definition struct {
	Name        string
	Version     string
	Description string

	InputSchema  json.RawMessage
	OutputSchema json.RawMessage

	AuthLevel          models.AuthLevel
	RateLimitPerMinute int
	AllowedChannels    []models.Channel

	// FeatureFlagKey, if set, must be enabled for the calling tenant or
	// the call is rejected at step 2.
	FeatureFlagKey string

	// Dependency names the internal/health dependency this tool maps
	// to, for the step-5 circuit check. Empty means no health gating.
	Dependency string

	Cacheable      bool
	CacheTTLSeconds int

	Retryable    bool
	RetryDelayMS int

	Handler HandlerFunc
}

func (d Definition) retryDelay() time.Duration {
	if d.RetryDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(d.RetryDelayMS) * time.Millisecond
}

func (d Definition) cacheTTL() time.Duration {
	if d.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(d.CacheTTLSeconds) * time.Second
}

// CallContext carries the per-call facts Execute needs to apply tenant,
// channel, and request-scoped gating and logging.
type CallContext struct {
	TenantID       string
	ConversationID string
	RequestID      string
	Channel        models.Channel
}

// FeatureFlags answers whether a tenant has a named feature enabled —
// step 2 of execute(). A nil FeatureFlags is treated as "everything
// enabled", matching a single-tenant deployment with no flag service.
type FeatureFlags interface {
	Enabled(tenantID, flagKey string) bool
}
