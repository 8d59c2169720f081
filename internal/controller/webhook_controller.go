package controller

import (
	"io"
	"net/http"

	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/config"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookController receives provider events. Signature verification
// happens here against the raw body, before any parsing; unsigned or
// mis-signed deliveries are dropped without touching the stores.
type WebhookController struct {
	processor *webhook.Processor
	cfg       config.ProvidersConfig
	logger    zerolog.Logger
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(processor *webhook.Processor, cfg config.ProvidersConfig, logger zerolog.Logger) *WebhookController {
	return &WebhookController{processor: processor, cfg: cfg, logger: logger}
}

// Receive handles POST /webhooks/{provider}
func (h *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Code: "invalid_body"})
		return
	}

	var evt *providers.WebhookEvent
	switch providerName {
	case providers.PaystackName:
		sig := r.Header.Get("x-paystack-signature")
		if !providers.VerifyPaystackSignature(h.cfg.Paystack.WebhookSecret, body, sig) {
			h.logger.Warn().Str("provider", providerName).Msg("Webhook signature mismatch")
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid signature", Code: "invalid_signature"})
			return
		}
		evt, err = providers.ParsePaystackWebhook(body)
	case providers.FlutterwaveName:
		hash := r.Header.Get("verif-hash")
		if !providers.VerifyFlutterwaveSignature(h.cfg.Flutterwave.WebhookSecret, hash) {
			h.logger.Warn().Str("provider", providerName).Msg("Webhook signature mismatch")
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid signature", Code: "invalid_signature"})
			return
		}
		evt, err = providers.ParseFlutterwaveWebhook(body)
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown provider", Code: "unknown_provider"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.processor.Execute(r.Context(), webhook.ProcessEventRequest{
		Provider:        providerName,
		ProviderEventID: evt.ProviderEventID,
		Reference:       evt.Reference,
		Outcome:         evt.Outcome,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Always 200 once the event is recorded; anything else makes the
	// provider redeliver an event we have already answered.
	writeJSON(w, http.StatusOK, WebhookAck{Outcome: string(resp.Outcome), Reason: resp.Reason})
}
