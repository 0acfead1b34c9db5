package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saferoute/saferoute/internal/api/middleware"
)

func captureRequestID(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_Generates(t *testing.T) {
	ctxID, headerID := captureRequestID(t, "")

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Len(t, ctxID, 26)
	assert.Equal(t, ctxID, headerID)

	other, _ := captureRequestID(t, "")
	assert.NotEqual(t, ctxID, other)
}

func TestRequestID_PreservesCallerID(t *testing.T) {
	ctxID, headerID := captureRequestID(t, "req_from_frontend")

	assert.Equal(t, "req_from_frontend", ctxID)
	assert.Equal(t, "req_from_frontend", headerID)
}

func TestRequestID_ReplacesOversizedID(t *testing.T) {
	ctxID, _ := captureRequestID(t, strings.Repeat("x", 500))

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}

func TestRequestID_RejectsControlCharacters(t *testing.T) {
	for _, bad := range []string{"req with space", "req\tid", "réq"} {
		ctxID, headerID := captureRequestID(t, bad)
		assert.NotEqual(t, bad, ctxID)
		assert.True(t, strings.HasPrefix(ctxID, "req_"))
		assert.Equal(t, ctxID, headerID)
	}
}
