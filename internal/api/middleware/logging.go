package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger attaches a request-scoped logger carrying the request and trace
// IDs to the context, then logs one "request completed" event. Server
// errors log at error level, client errors at warn.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()

			fields := log.With().Str("request_id", GetRequestID(r.Context()))
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				fields = fields.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}
			reqLog := fields.Logger()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(reqLog.WithContext(r.Context())))

			var evt *zerolog.Event
			switch {
			case sw.statusCode >= http.StatusInternalServerError:
				evt = reqLog.Error()
			case sw.statusCode >= http.StatusBadRequest:
				evt = reqLog.Warn()
			default:
				evt = reqLog.Info()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.statusCode).
				Int64("bytes", sw.written).
				Dur("duration", time.Since(began)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

// RequestLogger returns the logger Logger stored in ctx, or fallback
// outside a logged request.
func RequestLogger(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &fallback
}
