package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lumos-api/internal/application/billing"
	"github.com/lumos-api/internal/domain"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	svc billing.Service
}

func NewWebhookHandler(svc billing.Service) *WebhookHandler { return &WebhookHandler{svc: svc} }

func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "invalid webhook")
			return
		}
		slog.Error("webhook failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, WebhookEnvelope{Received: true})
}
