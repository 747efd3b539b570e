package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lumos-api/internal/application/auth"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/token"
	"github.com/lumos-api/internal/pkg/validate"
	"github.com/lumos-api/internal/transport/http/middleware"
)

const stateMaxAge = 10 * time.Minute

// Sign-in error codes understood by the login page.
const (
	errVerification     = "Verification"
	errOAuthCallback    = "OAuthCallback"
	errAccountNotLinked = "OAuthAccountNotLinked"
)

// AuthHandler serves the sign-in, callback, session and sign-out endpoints.
type AuthHandler struct {
	svc     auth.Service
	cookies middleware.CookieConfig
	baseURL string
}

func NewAuthHandler(svc auth.Service, cookies middleware.CookieConfig, baseURL string) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies, baseURL: baseURL}
}

func (h *AuthHandler) SignInEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.EmailSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.RequestEmailSignIn(r.Context(), req); err != nil {
		if ve, ok := validate.AsError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, ve.Issues)
			return
		}
		slog.Error("email sign-in failed", "email", req.Email, "err", err)
		writeError(w, http.StatusInternalServerError, "could not send sign-in email")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "check your email for a sign-in link"})
}

func (h *AuthHandler) CallbackEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.CompleteEmailSignIn(r.Context(), q.Get("email"), q.Get("token"), q.Get("callbackUrl"))
	if err != nil {
		slog.Warn("email callback failed", "email", q.Get("email"), "err", err)
		h.loginError(w, r, errVerification)
		return
	}
	h.cookies.Set(w, res.SessionToken, res.Expires)
	http.Redirect(w, r, res.CallbackURL, http.StatusFound)
}

func (h *AuthHandler) SignInGitHub(w http.ResponseWriter, r *http.Request) {
	state, err := token.NewVerificationToken()
	if err != nil {
		slog.Error("oauth state", "err", err)
		h.loginError(w, r, errOAuthCallback)
		return
	}
	h.cookies.SetState(w, state, time.Now().Add(stateMaxAge))
	http.Redirect(w, r, h.svc.OAuthLoginURL(state), http.StatusFound)
}

func (h *AuthHandler) CallbackGitHub(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearState(w)
	c, err := r.Cookie(middleware.StateCookieName)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		slog.Warn("oauth state mismatch")
		h.loginError(w, r, errOAuthCallback)
		return
	}
	res, err := h.svc.CompleteOAuthSignIn(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("oauth callback failed", "err", err)
		if errors.Is(err, domain.ErrAccountNotLinked) {
			h.loginError(w, r, errAccountNotLinked)
			return
		}
		h.loginError(w, r, errOAuthCallback)
		return
	}
	h.cookies.Set(w, res.SessionToken, res.Expires)
	http.Redirect(w, r, res.CallbackURL, http.StatusFound)
}

// Session returns the current session, or {} when signed out.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "signed out"})
}

func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.baseURL+"/login?error="+code, http.StatusFound)
}
