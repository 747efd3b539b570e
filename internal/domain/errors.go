package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrAuthenticationRequired means the request carries no usable session.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrConfiguration means a required template id or credential is not configured.
	ErrConfiguration = errors.New("configuration error")
	// ErrAccountNotLinked means an OAuth identity matches a user it is not linked to.
	ErrAccountNotLinked = errors.New("account not linked")
	// ErrDispatch means an email or payment backend reported a failure.
	ErrDispatch = errors.New("dispatch failed")
)

// DispatchError carries the failure reported by an external backend.
type DispatchError struct {
	Backend string
	Code    string
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s: %s (code %s)", e.Backend, e.Message, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Backend, e.Message)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }
