package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumos-api/internal/application/user"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/validate"
	"github.com/lumos-api/internal/transport/http/middleware"
)

// UserHandler serves the signed-in user's profile.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	u, err := h.svc.Me(r.Context(), sess)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, _ := middleware.SessionFromContext(r.Context())
	u, err := h.svc.UpdateProfile(r.Context(), sess, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) fail(w http.ResponseWriter, err error) {
	if ve, ok := validate.AsError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ve.Issues)
		return
	}
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		slog.Error("profile request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
