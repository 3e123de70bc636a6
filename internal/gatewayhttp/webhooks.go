package gatewayhttp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/resolvr/internal/config"
	"github.com/haasonsaas/resolvr/internal/observability"
	"github.com/haasonsaas/resolvr/internal/orchestrator"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// requestTimeout bounds how long one webhook-triggered pipeline run may
// take before the handler gives up and answers the channel anyway —
// channel APIs expect a webhook ack well under their own retry window.
const requestTimeout = 20 * time.Second

// webhookHandler's logger is the PII-redacting observability.Logger
// rather than a plain *slog.Logger: this is the one place raw customer
// message text (order numbers, names, complaint text) flows into log
// arguments, so redaction matters here in a way it doesn't for the
// ambient service logging elsewhere.
type webhookHandler struct {
	orch     *orchestrator.Orchestrator
	channels config.ChannelsConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

func (h *webhookHandler) recordReceived(channel, updateType string) {
	if h.metrics != nil {
		h.metrics.RecordWebhookReceived(channel, updateType)
	}
}

func (h *webhookHandler) recordProcessed(channel, updateType string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.RecordWebhookProcessed(channel, updateType, time.Since(start).Seconds(), err)
	}
}

// webMessageRequest is the web widget's own wire format — resolvr
// controls both ends, so it is a plain JSON body rather than a
// third-party platform's webhook envelope.
type webMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	VisitorID      string `json:"visitor_id"`
	TenantID       string `json:"tenant_id"`
	Text           string `json:"text"`
}

func (h *webhookHandler) handleWeb(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.recordReceived("web", "message")
	if !h.channels.Web.Enabled {
		writeJSONError(w, http.StatusServiceUnavailable, "web channel disabled")
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if secret := h.channels.Web.WebhookSecret; secret != "" {
		if !constantTimeEqual(r.Header.Get("X-Webhook-Secret"), secret) {
			writeJSONError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	var req webMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.ConversationID == "" || req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "conversation_id and text are required")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	conv, err := h.orch.ProcessMessage(ctx, orchestrator.InboundMessage{
		Channel:        models.ChannelWeb,
		ConversationID: req.ConversationID,
		VisitorID:      req.VisitorID,
		TenantID:       req.TenantID,
		Text:           req.Text,
	})
	h.recordProcessed("web", "message", start, err)
	if err != nil {
		h.logger.Error(ctx, "web webhook processing failed", "error", err, "conversation_id", req.ConversationID)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// whatsAppPayload is the subset of Meta's Cloud API webhook envelope
// resolvr cares about: one or more text messages per entry/change.
type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (h *webhookHandler) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.recordReceived("whatsapp", "message")
	if !h.channels.WhatsApp.Enabled {
		writeJSONError(w, http.StatusServiceUnavailable, "whatsapp channel disabled")
		return
	}

	if r.Method == http.MethodGet {
		h.handleWhatsAppVerification(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET or POST required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if appSecret := resolveEnv(h.channels.WhatsApp.AppSecretEnv); appSecret != "" {
		if !verifyHubSignature(body, r.Header.Get("X-Hub-Signature-256"), appSecret) {
			writeJSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var payload whatsAppPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	var lastErr error
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if strings.TrimSpace(msg.Text.Body) == "" {
					continue
				}
				_, err := h.orch.ProcessMessage(ctx, orchestrator.InboundMessage{
					Channel:        models.ChannelWhatsApp,
					ConversationID: msg.From,
					VisitorID:      msg.From,
					Text:           msg.Text.Body,
				})
				if err != nil {
					lastErr = err
					h.logger.Error(ctx, "whatsapp webhook processing failed", "error", err, "from", msg.From)
				}
			}
		}
	}
	h.recordProcessed("whatsapp", "message", start, lastErr)

	// Meta requires a fast 200 regardless of per-message outcome; errors
	// are logged, not surfaced, so Meta doesn't retry-storm the webhook.
	w.WriteHeader(http.StatusOK)
}

func (h *webhookHandler) handleWhatsAppVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || !constantTimeEqual(q.Get("hub.verify_token"), h.channels.WhatsApp.VerifyToken) {
		writeJSONError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

// businessChatMessageRequest is the generic business-chat channel's
// wire format — modeled loosely, since no single business-chat provider
// is named in spec scope.
type businessChatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	ContactID      string `json:"contact_id"`
	TenantID       string `json:"tenant_id"`
	Text           string `json:"text"`
}

func (h *webhookHandler) handleBusinessChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.recordReceived("business_chat", "message")
	if !h.channels.BusinessChat.Enabled {
		writeJSONError(w, http.StatusServiceUnavailable, "business chat channel disabled")
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if secret := h.channels.BusinessChat.WebhookSecret; secret != "" {
		if !constantTimeEqual(r.Header.Get("X-Webhook-Secret"), secret) {
			writeJSONError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	var req businessChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.ConversationID == "" || req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "conversation_id and text are required")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	conv, err := h.orch.ProcessMessage(ctx, orchestrator.InboundMessage{
		Channel:        models.ChannelBusinessChat,
		ConversationID: req.ConversationID,
		ContactID:      req.ContactID,
		TenantID:       req.TenantID,
		Text:           req.Text,
	})
	h.recordProcessed("business_chat", "message", start, err)
	if err != nil {
		h.logger.Error(ctx, "business chat webhook processing failed", "error", err, "conversation_id", req.ConversationID)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func verifyHubSignature(body []byte, header, secret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return constantTimeEqual(strings.TrimPrefix(header, prefix), expected)
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func resolveEnv(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(osLookupEnv(name))
}
