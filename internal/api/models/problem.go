package models

import (
	"encoding/json"
	"net/http"
)

// problemBase prefixes every problem type URI.
const problemBase = "https://saferoute.app/problems/"

// MsgInternal is the detail of an unexpected failure.
const MsgInternal = "An unexpected error occurred. Please try again in a moment."

// Problem is an RFC 7807 body, written as application/problem+json.
// TraceID repeats the X-Request-Id header so clients can quote it.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Kind is a class of problem the API reports.
type Kind struct {
	Slug   string
	Title  string
	Status int
}

var (
	KindValidation       = Kind{"validation-error", "Validation error", http.StatusBadRequest}
	KindTLSRequired      = Kind{"tls-required", "TLS required", http.StatusForbidden}
	KindNotFound         = Kind{"not-found", "Not found", http.StatusNotFound}
	KindUnsupportedMedia = Kind{"unsupported-media-type", "Unsupported media type", http.StatusUnsupportedMediaType}
	KindTooManyRequests  = Kind{"too-many-requests", "Too many requests", http.StatusTooManyRequests}
	KindInternal         = Kind{"internal-error", "Internal server error", http.StatusInternalServerError}
	// KindUpstreamConfig is a 500 for an upstream (Google Maps) that
	// rejected our credentials.
	KindUpstreamConfig = Kind{"upstream-configuration", "Upstream configuration error", http.StatusInternalServerError}
	KindUnavailable    = Kind{"service-unavailable", "Service unavailable", http.StatusServiceUnavailable}
)

// Type is the problem type URI.
func (k Kind) Type() string {
	return problemBase + k.Slug
}

// New builds a problem of this kind.
func (k Kind) New(traceID, detail string) *Problem {
	return &Problem{
		Type:    k.Type(),
		Title:   k.Title,
		Status:  k.Status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewBadRequest builds a validation problem carrying field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := KindValidation.New(traceID, detail)
	p.Errors = errors
	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
