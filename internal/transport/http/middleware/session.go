package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumos-api/internal/application/session"
	"github.com/lumos-api/internal/domain"
	jwtinfra "github.com/lumos-api/internal/infrastructure/jwt"
)

type contextKey string

const SessionKey contextKey = "session"

// TokenProvider signs and verifies session tokens.
type TokenProvider interface {
	Sign(tok domain.Token) (string, time.Time, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Session resolves the session token from the session cookie or a Bearer
// header. A valid token is refreshed against the directory, re-issued and
// projected onto a *domain.Session stored in the request context. Requests
// without a usable token pass through anonymously.
func Session(tokens TokenProvider, sessions session.Service, cookies CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, fromCookie := sessionToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				if fromCookie {
					cookies.Clear(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			tok, err := sessions.Token(r.Context(), claims.Token(), nil)
			if err != nil {
				slog.Warn("session token not refreshed", "user_id", claims.UserID, "err", err)
			}

			var expires time.Time
			if claims.ExpiresAt != nil {
				expires = claims.ExpiresAt.Time
			}
			if signed, exp, err := tokens.Sign(tok); err != nil {
				slog.Warn("session token not re-issued", "user_id", tok.ID, "err", err)
			} else {
				expires = exp
				if fromCookie {
					cookies.Set(w, signed, exp)
				}
			}

			sess := sessions.Session(&tok, domain.Session{Expires: expires})
			ctx := context.WithValue(r.Context(), SessionKey, &sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session resolved by Session, if any.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*domain.Session)
	return s, ok
}

func sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), false
	}
	return "", false
}
