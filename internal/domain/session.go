package domain

import "time"

// Token holds the claims of a signed session token. An empty ID is a null id.
type Token struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// SessionUser is the user view exposed to clients.
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Session is the outward-facing session object.
type Session struct {
	User    *SessionUser `json:"user,omitempty"`
	Expires time.Time    `json:"expires"`
}
