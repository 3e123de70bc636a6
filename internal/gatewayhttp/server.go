// Package gatewayhttp is the inbound HTTP surface: health, metrics, and
// the three channel webhooks (web widget, WhatsApp Business API,
// business chat) that turn a channel-specific payload into an
// orchestrator.InboundMessage. Channel webhook adapters are explicitly
// out of core scope (internal/orchestrator/inbound.go's own doc
// comment), so this package stays deliberately thin: payload parsing
// and signature verification only, no retry/backfill/dedup machinery.
// Structured the way the teacher's internal/gateway/http_server.go
// builds its mux (stdlib http.ServeMux, promhttp.Handler(), a
// ReadHeaderTimeout'd http.Server, graceful Shutdown).
package gatewayhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/resolvr/internal/config"
	"github.com/haasonsaas/resolvr/internal/health"
	"github.com/haasonsaas/resolvr/internal/observability"
	"github.com/haasonsaas/resolvr/internal/orchestrator"
)

// Config bundles the collaborators the HTTP surface needs.
type Config struct {
	Addr         string
	Channels     config.ChannelsConfig
	Orchestrator *orchestrator.Orchestrator
	Health       *health.Registry
	Admin        http.Handler // mounted at /admin/ and /copilot/ if non-nil
	Logger       *slog.Logger

	// Redact is the PII-redacting logger handed to the webhook handler,
	// which is the one place raw customer text reaches a log call. If
	// nil, one is built with default redaction patterns.
	Redact *observability.Logger
	// Metrics records webhook and HTTP request counts/latencies. If nil,
	// a fresh registry-backed instance is created.
	Metrics *observability.Metrics
}

// Server owns the webhook/health/metrics HTTP listener.
type Server struct {
	cfg      Config
	httpSrv  *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// New builds a Server. Call Start to begin listening.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Redact == nil {
		cfg.Redact = observability.NewLogger(observability.LogConfig{})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{cfg: cfg, logger: logger}
	mux.HandleFunc("/healthz", s.handleHealthz)

	wh := &webhookHandler{orch: cfg.Orchestrator, channels: cfg.Channels, logger: cfg.Redact, metrics: cfg.Metrics}
	mux.HandleFunc("/webhooks/web", wh.handleWeb)
	mux.HandleFunc("/webhooks/whatsapp", wh.handleWhatsApp)
	mux.HandleFunc("/webhooks/business_chat", wh.handleBusinessChat)

	if cfg.Admin != nil {
		mux.Handle("/admin/", cfg.Admin)
		mux.Handle("/copilot/", cfg.Admin)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           instrumentRequests(mux, cfg.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// instrumentRequests wraps a handler to record HTTPRequestDuration/
// HTTPRequestCounter for every request, keyed by path and status code —
// the gateway's only handler-agnostic metrics hook.
func instrumentRequests(next http.Handler, metrics *observability.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(sw.status), time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Start begins listening and serving in the background. It returns once
// the listener is bound; Serve errors after that are logged, not
// returned (matching the teacher's fire-and-forget goroutine pattern).
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	s.logger.Info("gateway http server started", "addr", s.cfg.Addr)
	return nil
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.cfg.Health == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
		return
	}
	level := s.cfg.Health.DegradationLevel()
	status := http.StatusOK
	if level != health.DegradationNone {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"status":%q,"degradation":%q}`, httpStatusLabel(status), level)
}

func httpStatusLabel(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
