package gatewayhttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/resolvr/internal/config"
	"github.com/haasonsaas/resolvr/internal/observability"
	"github.com/haasonsaas/resolvr/internal/orchestrator"
)

// stubOrchestrator satisfies enough of *orchestrator.Orchestrator's shape
// indirectly: webhookHandler only ever calls ProcessMessage, so the test
// builds a real Orchestrator with the minimal collaborators it needs
// rather than an interface seam that doesn't exist in this package.
func testOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.New(orchestrator.Config{})
}

func TestHandleWebDisabledChannel(t *testing.T) {
	t.Parallel()

	wh := &webhookHandler{
		orch:     testOrchestrator(t),
		channels: config.ChannelsConfig{},
		logger:   observability.NewLogger(observability.LogConfig{}),
		metrics:  observability.NewMetrics(),
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/web", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	wh.handleWeb(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleWebRejectsMissingFields(t *testing.T) {
	t.Parallel()

	wh := &webhookHandler{
		orch: testOrchestrator(t),
		channels: config.ChannelsConfig{
			Web: config.WebChannelConfig{Enabled: true},
		},
		logger:  observability.NewLogger(observability.LogConfig{}),
		metrics: observability.NewMetrics(),
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/web", bytes.NewReader([]byte(`{"visitor_id":"v1"}`)))
	rec := httptest.NewRecorder()

	wh.handleWeb(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleWebAppliesWebhookSecret(t *testing.T) {
	t.Parallel()

	wh := &webhookHandler{
		orch: testOrchestrator(t),
		channels: config.ChannelsConfig{
			Web: config.WebChannelConfig{Enabled: true, WebhookSecret: "s3cr3t"},
		},
		logger:  observability.NewLogger(observability.LogConfig{}),
		metrics: observability.NewMetrics(),
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/web", bytes.NewReader([]byte(`{"conversation_id":"c1","text":"hi"}`)))
	rec := httptest.NewRecorder()

	wh.handleWeb(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestWhatsAppVerificationChallenge(t *testing.T) {
	t.Parallel()

	wh := &webhookHandler{
		channels: config.ChannelsConfig{
			WhatsApp: config.WhatsAppChannelConfig{Enabled: true, VerifyToken: "verify-me"},
		},
		logger:  observability.NewLogger(observability.LogConfig{}),
		metrics: observability.NewMetrics(),
	}

	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1234", nil)
	rec := httptest.NewRecorder()

	wh.handleWhatsApp(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "1234" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "1234")
	}
}

func TestInstrumentRequestsRecordsStatus(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics()
	handler := instrumentRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), metrics)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
