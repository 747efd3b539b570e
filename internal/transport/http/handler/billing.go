package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumos-api/internal/application/billing"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/validate"
	"github.com/lumos-api/internal/transport/http/middleware"
)

// BillingHandler opens payment provider sessions for the signed-in user.
type BillingHandler struct {
	svc billing.Service
}

func NewBillingHandler(svc billing.Service) *BillingHandler { return &BillingHandler{svc: svc} }

// Stripe answers {"url"} on success. Failures carry no detail: 403 without a
// session, 422 with the issue list, 500 otherwise.
func (h *BillingHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	url, err := h.svc.Initiate(r.Context(), sess)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationRequired) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if ve, ok := validate.AsError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, ve.Issues)
			return
		}
		slog.Error("billing session failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, URLEnvelope{URL: url})
}
