// Package dispatch defines the contract shared by the transactional email backends.
package dispatch

import "context"

// WelcomeTemplate names the local welcome layout rendered by the SES backend.
const WelcomeTemplate = "welcome"

// Request is a single templated email. Template is interpreted by the backend:
// a numeric id for Postmark, a template name for SES.
type Request struct {
	To        []string
	Cc        []string
	Template  string
	Subject   string
	Variables map[string]any
}

// Result is what the backend reported for an accepted call. A non-empty
// ErrorCode means the backend refused the message.
type Result struct {
	MessageID string
	ErrorCode string
	Message   string
}

// Failed reports whether the backend returned an error code.
func (r Result) Failed() bool { return r.ErrorCode != "" }

// Backend delivers templated email.
type Backend interface {
	Name() string
	Send(ctx context.Context, req Request) (Result, error)
}
