// Package provider defines the error vocabulary shared by upstream clients.
package provider

import (
	"errors"
	"strings"
)

// Sentinel errors for upstream provider calls. Callers match these with errors.Is.
var (
	// ErrUnavailable indicates the provider is down, timing out or behind an open circuit.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrAuthentication indicates the provider rejected our credentials.
	ErrAuthentication = errors.New("provider authentication failed")
	// ErrBillingDisabled indicates the credentials are valid but billing is not enabled.
	ErrBillingDisabled = errors.New("provider billing not enabled")
	// ErrRateLimited indicates the provider quota has been exceeded.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrInvalidRequest indicates the provider refused the request parameters.
	ErrInvalidRequest = errors.New("invalid provider request")
	// ErrNotFound indicates the referenced resource does not exist upstream.
	ErrNotFound = errors.New("not found at provider")
)

// Error provides detailed error information from an upstream provider.
type Error struct {
	Provider  string // e.g. "google-maps"
	Operation string // e.g. "directions", "nearby_search"
	Code      string // provider status code, e.g. REQUEST_DENIED
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		if e.Operation != "" {
			b.WriteString(" ")
			b.WriteString(e.Operation)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrUnavailable) || errors.Is(e.Err, ErrRateLimited)
}

// IsAuthFailure reports whether err is an authentication or billing denial.
// Both surface to clients as a configuration problem.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrBillingDisabled)
}
