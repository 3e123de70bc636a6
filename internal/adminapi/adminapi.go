// Package adminapi is the thin operator HTTP surface mounted alongside
// the channel webhooks: flow-builder CRUD under /admin/flows (an
// explicit Non-goal — always 501) and /copilot/* endpoints that
// delegate into the real orchestrator and tool runtime for ad-hoc
// debugging. Every route is gated by the same shared admin secret,
// checked the way internal/web/middleware.go's AuthMiddleware gates the
// teacher's own UI — here against a single operator secret rather than
// a JWT/API-key user store.
package adminapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/resolvr/internal/auth"
	"github.com/haasonsaas/resolvr/internal/orchestrator"
	"github.com/haasonsaas/resolvr/internal/toolruntime"
	"github.com/haasonsaas/resolvr/pkg/models"
)

// Config bundles adminapi's collaborators. Orchestrator and ToolRuntime
// may be nil, in which case the corresponding /copilot/* routes answer
// 503.
type Config struct {
	Secret       *auth.SharedSecret
	Orchestrator *orchestrator.Orchestrator
	ToolRegistry *toolruntime.Registry
	Logger       *slog.Logger
}

// Handler is the mountable admin mux.
type Handler struct {
	cfg Config
	mux *http.ServeMux
}

// NewHandler builds the admin mux. Mount the result under a base path
// (e.g. "/admin/") on the outer server's http.ServeMux.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{cfg: cfg, mux: http.NewServeMux()}
	h.mux.HandleFunc("/admin/flows", h.flowsNotImplemented)
	h.mux.HandleFunc("/admin/flows/", h.flowsNotImplemented)
	h.mux.HandleFunc("/copilot/message", h.copilotMessage)
	h.mux.HandleFunc("/copilot/tools", h.copilotTools)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.Secret.Enabled() {
			writeJSONError(w, http.StatusServiceUnavailable, "admin api disabled: no secret configured")
			return
		}
		header := r.Header.Get("X-Admin-Secret")
		if header == "" {
			if bearer := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(bearer), "bearer ") {
				header = strings.TrimSpace(bearer[7:])
			}
		}
		if err := h.cfg.Secret.Check(header); err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// flowsNotImplemented answers every /admin/flows* route. The flow
// builder UI is an explicit Non-goal (spec.md §1); this endpoint exists
// only so operators get a clear 501 instead of a 404.
func (h *Handler) flowsNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotImplemented, "flow builder is not implemented")
}

type copilotMessageRequest struct {
	TenantID       string `json:"tenant_id"`
	ConversationID string `json:"conversation_id"`
	VisitorID      string `json:"visitor_id"`
	Channel        string `json:"channel"`
	Text           string `json:"text"`
}

// copilotMessage runs one turn through the real orchestrator pipeline
// synchronously, for operator debugging of escalation/confidence
// behavior without going through a live channel webhook.
func (h *Handler) copilotMessage(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Orchestrator == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "orchestrator not configured")
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req copilotMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	channel := models.Channel(req.Channel)
	if channel == "" {
		channel = models.ChannelWeb
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	conv, err := h.cfg.Orchestrator.ProcessMessage(ctx, orchestrator.InboundMessage{
		Channel:        channel,
		ConversationID: req.ConversationID,
		VisitorID:      req.VisitorID,
		TenantID:       req.TenantID,
		Text:           req.Text,
	})
	if err != nil {
		h.cfg.Logger.Error("copilot message failed", "error", err, "conversation_id", req.ConversationID)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// copilotTools lists the tools currently registered in the tool
// runtime, for operators diagnosing why a call was rejected before
// even reaching a handler.
func (h *Handler) copilotTools(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ToolRegistry == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "tool registry not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.cfg.ToolRegistry.List()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
