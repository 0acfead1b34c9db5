package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/models"
)

// Recovery answers a handler panic with a generic 500 problem. The panic
// value and stack go to the log only. http.ErrAbortHandler is re-raised so
// net/http can drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				switch v {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(v)
				}

				id := GetRequestID(r.Context())
				fallback := log.With().Str("request_id", id).Logger()
				RequestLogger(r.Context(), fallback).Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", v).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				p := models.KindInternal.New(id, models.MsgInternal)
				p.Instance = r.URL.Path
				p.Write(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
