package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nomadev-io/whatsapp-autopilot/internal/conversation"
	observemetrics "github.com/nomadev-io/whatsapp-autopilot/internal/observability/metrics"
	"github.com/nomadev-io/whatsapp-autopilot/internal/whatsapp"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

var webhookTracer = otel.Tracer("autopilot.internal.http.webhook")

type valueProcessor interface {
	ProcessValue(ctx context.Context, value whatsapp.ChangeValue) []conversation.Outcome
}

// WebhookHandler is the WhatsApp Cloud API webhook gateway: it answers the
// verification handshake, authenticates inbound event batches, and hands
// each "messages" change to the pipeline.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	processor   valueProcessor
	logger      *logging.Logger
	metrics     *observemetrics.WebhookMetrics
}

// WebhookConfig wires a WebhookHandler.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
	Processor   valueProcessor
	Logger      *logging.Logger
	Metrics     *observemetrics.WebhookMetrics
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Processor == nil {
		panic("handlers: processor required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		processor:   cfg.Processor,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// Handle dispatches by HTTP method: GET is the verification handshake, POST
// carries event batches, OPTIONS is the browser pre-flight.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerification(w, r)
	case http.MethodPost:
		h.handleEvents(w, r)
	case http.MethodOptions:
		writeCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	h.logger.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "forbidden", http.StatusForbidden)
}

func (h *WebhookHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "webhook.events")
	defer span.End()
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusInternalServerError)
		return
	}

	if h.appSecret != "" {
		if !whatsapp.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.appSecret) {
			h.logger.Warn("invalid webhook signature")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Entry == nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var outcomes []conversation.Outcome
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			outcomes = append(outcomes, h.processor.ProcessValue(ctx, change.Value)...)
		}
	}

	summary := conversation.Summarize(outcomes)
	span.SetAttributes(
		attribute.Int("autopilot.webhook.replied", summary.Replied),
		attribute.Int("autopilot.webhook.failed", summary.Failed),
	)
	h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
	if summary.Failed > 0 {
		h.logger.Warn("webhook batch had failures",
			"failed", summary.Failed,
			"replied", summary.Replied,
			"skipped", summary.Skipped,
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthCheck returns a simple health check response.
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
