package toolruntime

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/resolvr/internal/auditchain"
	"github.com/haasonsaas/resolvr/internal/cachestore"
	"github.com/haasonsaas/resolvr/internal/health"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// callTimeout is the hard per-attempt timeout spec §4.7 step 8 names.
const callTimeout = 15 * time.Second

// Runtime wires a Registry through the fixed 15-step execute() pipeline
// (spec §4.7), generalizing internal/agent/tool_registry.go's
// ToolRegistry.Execute + tool_exec.go's ToolExecutor into one gated
// path: existence, tenant/feature/channel checks, rate limiting,
// dependency health, caching, schema validation, timeout+retry-once,
// metrics, structured logging, and audit.
type Runtime struct {
	registry *Registry
	health   *health.Registry
	cache    cachestore.Store
	audit    *auditchain.Chain
	flags    FeatureFlags
	limiter  *FixedWindowLimiter
	schemas  *schemaCache
	metrics  *metrics
	logger   *slog.Logger
}

// Config bundles Runtime's collaborators. Cache and Audit may be nil —
// caching and audit emission are skipped, not errors, when absent.
type Config struct {
	Registry *Registry
	Health   *health.Registry
	Cache    cachestore.Store
	Audit    *auditchain.Chain
	Flags    FeatureFlags
	Logger   *slog.Logger
}

// New builds a Runtime. Registry must be non-nil.
func New(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		registry: cfg.Registry,
		health:   cfg.Health,
		cache:    cfg.Cache,
		audit:    cfg.Audit,
		flags:    cfg.Flags,
		limiter:  NewFixedWindowLimiter(),
		schemas:  newSchemaCache(),
		metrics:  newMetrics(),
		logger:   logger,
	}
}

// Result is what Execute returns for every call, success or failure.
type Result struct {
	Outcome models.ToolOutcome
	Failure *FailureContext
}

// Execute runs the full tool call pipeline (spec §4.7, steps 1-15).
func (rt *Runtime) Execute(ctx context.Context, call CallContext, toolName string, args json.RawMessage) Result {
	start := time.Now()

	// Step 1: existence check.
	def, ok := rt.registry.Get(toolName)
	if !ok {
		return rt.fail(toolName, "", "unknown", "Unknown tool", FailureUnknown)
	}

	// Step 2: tenant/channel/feature-flag check.
	if def.FeatureFlagKey != "" && rt.flags != nil && !rt.flags.Enabled(call.TenantID, def.FeatureFlagKey) {
		return rt.fail(toolName, def.Version, "feature_disabled", "feature not enabled", FailureUnknown)
	}

	// Step 3: channel allowlist.
	if len(def.AllowedChannels) > 0 && !channelAllowed(def.AllowedChannels, call.Channel) {
		return rt.fail(toolName, def.Version, "channel_blocked", "not supported on this channel", FailureUnknown)
	}

	// Step 4: per-(tool,tenant) fixed-window rate limit.
	rateKey := toolName + ":" + call.TenantID
	if !rt.limiter.Allow(rateKey, def.RateLimitPerMinute) {
		return rt.fail(toolName, def.Version, "rate_limited", "rate limit exceeded", FailureUnknown)
	}

	// Step 5: dependency health short-circuit.
	if def.Dependency != "" && rt.health != nil && !rt.health.IsAvailable(def.Dependency) {
		return rt.fail(toolName, def.Version, "dependency_down", "service temporarily unavailable", FailureUnknown)
	}

	cacheKey := rt.cacheKeyFor(toolName, args)

	// Step 6: cache lookup.
	if def.Cacheable && def.cacheTTL() > 0 && rt.cache != nil {
		var cached models.ToolOutcome
		if hit, err := rt.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			rt.metrics.cacheHits.WithLabelValues(toolName).Inc()
			rt.recordDuration(toolName, def.Version, "cache_hit", start)
			return Result{Outcome: cached}
		}
		rt.metrics.cacheMisses.WithLabelValues(toolName).Inc()
	}

	// Step 7: input schema validation.
	if err := rt.schemas.validate(toolName+":input:"+def.Version, def.InputSchema, args); err != nil {
		rt.metrics.validationFailures.WithLabelValues(toolName, "input").Inc()
		return rt.fail(toolName, def.Version, "validation_error", fmt.Sprintf("Invalid input: %s", err.Error()), FailureValidationError)
	}

	// Steps 8-9: first attempt, then one retry unless retryable===false.
	outcome, callErr := rt.invoke(ctx, def, args)
	attempts := 1
	if callErr != nil && def.Retryable {
		select {
		case <-time.After(def.retryDelay()):
		case <-ctx.Done():
			callErr = ctx.Err()
		}
		rt.metrics.retries.WithLabelValues(toolName).Inc()
		attempts++
		outcome, callErr = rt.invoke(ctx, def, args)
	}

	// Step 10: record dependency health.
	if def.Dependency != "" && rt.health != nil {
		if callErr != nil || !outcome.Success {
			rt.health.RecordFailure(def.Dependency)
		} else {
			rt.health.RecordSuccess(def.Dependency)
		}
	}

	status := "success"
	var failure *FailureContext
	if callErr != nil || !outcome.Success {
		status = "error"
		fc := classifyFailure(callErr, false)
		if callErr == nil && !outcome.Success {
			fc = FailureContext{Class: FailureAPIError, Message: outcome.Error, Suggestion: "The tool reported a failure; consider retrying or escalating."}
		}
		failure = &fc
	}

	// Step 11: cache store on success.
	if status == "success" && def.Cacheable && def.cacheTTL() > 0 && rt.cache != nil {
		_ = rt.cache.Set(ctx, cacheKey, outcome, def.cacheTTL(), false)
	}

	// Step 12: output schema validation, best-effort.
	if status == "success" && len(def.OutputSchema) > 0 {
		if err := rt.schemas.validate(toolName+":output:"+def.Version, def.OutputSchema, outcome.Data); err != nil {
			rt.metrics.validationFailures.WithLabelValues(toolName, "output").Inc()
			rt.logger.Warn("tool output failed schema validation", "tool", toolName, "error", err)
		}
	}

	// Step 13: metrics.
	rt.recordDuration(toolName, def.Version, status, start)

	// Step 14: structured log with redacted args.
	rt.logger.Info("tool executed",
		"tool", toolName,
		"version", def.Version,
		"status", status,
		"attempts", attempts,
		"conversation_id", call.ConversationID,
		"request_id", call.RequestID,
		"tenant_id", call.TenantID,
		"data", "[redacted]",
	)

	// Step 15: fire-and-forget audit event.
	if rt.audit != nil {
		rt.audit.Append(ctx, models.CategoryToolExecution, "tool_runtime", "tool_executed", call.ConversationID, call.TenantID, map[string]any{
			"tool":    toolName,
			"version": def.Version,
			"status":  status,
		})
	}

	return Result{Outcome: outcome, Failure: failure}
}

func (rt *Runtime) invoke(ctx context.Context, def Definition, args json.RawMessage) (models.ToolOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	type result struct {
		outcome models.ToolOutcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := def.Handler(callCtx, args)
		done <- result{outcome, err}
	}()

	select {
	case <-callCtx.Done():
		return models.ToolOutcome{Success: false, Error: "tool execution timed out"}, callCtx.Err()
	case r := <-done:
		return r.outcome, r.err
	}
}

func (rt *Runtime) fail(toolName, version, status, message string, class FailureClass) Result {
	fc := classifyFailure(fmt.Errorf("%s", message), class == FailureValidationError)
	fc.Class = class
	return Result{
		Outcome: models.ToolOutcome{Success: false, Error: message},
		Failure: &fc,
	}
}

func (rt *Runtime) recordDuration(tool, version, status string, start time.Time) {
	rt.metrics.callDuration.WithLabelValues(tool, version, status).Observe(time.Since(start).Seconds())
}

func (rt *Runtime) cacheKeyFor(toolName string, args json.RawMessage) string {
	sum := md5.Sum(canonicalizeForHash(args))
	return fmt.Sprintf("tool:%s:%s", toolName, hex.EncodeToString(sum[:])[:16])
}

// canonicalizeForHash re-marshals args through a decode/encode round
// trip so that key-order or whitespace differences in the caller's raw
// JSON don't change the cache key (spec §4.7 step 6:
// "md5(canonicalJson(args))"). A decode into a map sorts keys
// implicitly because encoding/json marshals map[string]any keys in
// sorted order.
func canonicalizeForHash(args json.RawMessage) []byte {
	if len(args) == 0 {
		return []byte("{}")
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return args
	}
	out, err := json.Marshal(v)
	if err != nil {
		return args
	}
	return out
}

func channelAllowed(allowed []models.Channel, ch models.Channel) bool {
	for _, a := range allowed {
		if a == ch {
			return true
		}
	}
	return false
}
