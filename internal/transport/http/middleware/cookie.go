package middleware

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "session-token"
	StateCookieName   = "oauth-state"
)

// CookieConfig holds the attributes shared by the auth cookies.
type CookieConfig struct {
	Secure bool
}

// Set writes the session cookie.
func (c CookieConfig) Set(w http.ResponseWriter, value string, expires time.Time) {
	c.write(w, SessionCookieName, value, expires)
}

// Clear expires the session cookie.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	c.write(w, SessionCookieName, "", time.Unix(0, 0))
}

// SetState writes the short-lived OAuth state cookie.
func (c CookieConfig) SetState(w http.ResponseWriter, state string, expires time.Time) {
	c.write(w, StateCookieName, state, expires)
}

// ClearState expires the OAuth state cookie.
func (c CookieConfig) ClearState(w http.ResponseWriter) {
	c.write(w, StateCookieName, "", time.Unix(0, 0))
}

func (c CookieConfig) write(w http.ResponseWriter, name, value string, expires time.Time) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	http.SetCookie(w, ck)
}
