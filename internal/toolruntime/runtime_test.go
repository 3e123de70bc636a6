package toolruntime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/resolvr/internal/cachestore"
	"github.com/haasonsaas/resolvr/internal/health"
	"github.com/haasonsaas/resolvr/pkg/models"
)

func newTestCache() cachestore.Store {
	return cachestore.NewMemoryStore(cachestore.MemoryOptions{})
}

func echoHandler(outcome models.ToolOutcome, err error) HandlerFunc {
	return func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
		return outcome, err
	}
}

func TestRuntime_UnknownToolFails(t *testing.T) {
	rt := New(Config{Registry: NewRegistry()})
	res := rt.Execute(context.Background(), CallContext{}, "nope", nil)
	if res.Outcome.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if res.Failure == nil || res.Failure.Class != FailureUnknown {
		t.Errorf("Failure = %+v, want FailureUnknown", res.Failure)
	}
}

func TestRuntime_SuccessPath(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:    "lookup_order",
		Version: "v1",
		Handler: echoHandler(models.ToolOutcome{Success: true, Data: json.RawMessage(`{"ok":true}`)}, nil),
	})
	rt := New(Config{Registry: reg})

	res := rt.Execute(context.Background(), CallContext{TenantID: "t1"}, "lookup_order", json.RawMessage(`{}`))
	if !res.Outcome.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Failure != nil {
		t.Errorf("expected no failure context, got %+v", res.Failure)
	}
}

func TestRuntime_ChannelNotAllowed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:            "whatsapp_only",
		AllowedChannels: []models.Channel{models.ChannelWhatsApp},
		Handler:         echoHandler(models.ToolOutcome{Success: true}, nil),
	})
	rt := New(Config{Registry: reg})

	res := rt.Execute(context.Background(), CallContext{Channel: models.ChannelWeb}, "whatsapp_only", nil)
	if res.Outcome.Success {
		t.Fatal("expected channel restriction to block the call")
	}
	if res.Outcome.Error != "not supported on this channel" {
		t.Errorf("Error = %q", res.Outcome.Error)
	}
}

func TestRuntime_RateLimitExceeded(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:               "limited",
		RateLimitPerMinute: 1,
		Handler:            echoHandler(models.ToolOutcome{Success: true}, nil),
	})
	rt := New(Config{Registry: reg})
	ctx := context.Background()
	call := CallContext{TenantID: "t1"}

	first := rt.Execute(ctx, call, "limited", nil)
	if !first.Outcome.Success {
		t.Fatalf("first call should succeed, got %+v", first)
	}
	second := rt.Execute(ctx, call, "limited", nil)
	if second.Outcome.Success {
		t.Fatal("second call should be rate limited")
	}
	if second.Outcome.Error != "rate limit exceeded" {
		t.Errorf("Error = %q", second.Outcome.Error)
	}
}

func TestRuntime_DependencyDownShortCircuits(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:       "track_shipment",
		Dependency: health.DependencyTracking,
		Handler:    echoHandler(models.ToolOutcome{Success: true}, nil),
	})
	hReg := health.New(1, time.Minute)
	hReg.RecordFailure(health.DependencyTracking)

	rt := New(Config{Registry: reg, Health: hReg})
	res := rt.Execute(context.Background(), CallContext{}, "track_shipment", nil)
	if res.Outcome.Success {
		t.Fatal("expected short-circuit when dependency circuit is open")
	}
	if res.Outcome.Error != "service temporarily unavailable" {
		t.Errorf("Error = %q", res.Outcome.Error)
	}
}

func TestRuntime_InputSchemaValidationFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:        "needs_order_id",
		InputSchema: json.RawMessage(`{"type":"object","required":["order_id"],"properties":{"order_id":{"type":"string"}}}`),
		Handler:     echoHandler(models.ToolOutcome{Success: true}, nil),
	})
	rt := New(Config{Registry: reg})

	res := rt.Execute(context.Background(), CallContext{}, "needs_order_id", json.RawMessage(`{}`))
	if res.Outcome.Success {
		t.Fatal("expected validation failure")
	}
	if res.Failure == nil || res.Failure.Class != FailureValidationError {
		t.Errorf("Failure = %+v, want FailureValidationError", res.Failure)
	}
}

func TestRuntime_RetriesOnceThenSucceeds(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	reg.Register(Definition{
		Name:         "flaky",
		Retryable:    true,
		RetryDelayMS: 1,
		Handler: func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
			calls++
			if calls == 1 {
				return models.ToolOutcome{}, errors.New("transient failure")
			}
			return models.ToolOutcome{Success: true}, nil
		},
	})
	rt := New(Config{Registry: reg})

	res := rt.Execute(context.Background(), CallContext{}, "flaky", nil)
	if !res.Outcome.Success {
		t.Fatalf("expected eventual success after retry, got %+v", res)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (first attempt + one retry)", calls)
	}
}

func TestRuntime_CacheHitSkipsHandler(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	reg.Register(Definition{
		Name:            "cacheable_lookup",
		Cacheable:       true,
		CacheTTLSeconds: 60,
		Handler: func(ctx context.Context, args json.RawMessage) (models.ToolOutcome, error) {
			calls++
			return models.ToolOutcome{Success: true, Data: json.RawMessage(`{"n":1}`)}, nil
		},
	})
	rt := New(Config{Registry: reg, Cache: newTestCache()})
	ctx := context.Background()
	call := CallContext{TenantID: "t1"}
	args := json.RawMessage(`{"order_id":"123"}`)

	first := rt.Execute(ctx, call, "cacheable_lookup", args)
	if !first.Outcome.Success {
		t.Fatalf("first call should succeed: %+v", first)
	}
	second := rt.Execute(ctx, call, "cacheable_lookup", args)
	if !second.Outcome.Success {
		t.Fatalf("second call should succeed from cache: %+v", second)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (second should be served from cache)", calls)
	}
}
