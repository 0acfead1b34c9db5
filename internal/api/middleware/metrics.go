package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/saferoute/saferoute/internal/api/middleware"

// unmatchedRoute labels requests chi could not route.
const unmatchedRoute = "unmatched"

// Metrics records per-route HTTP instruments.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics registers the HTTP instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time to serve a request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	if m.requests, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Requests served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("request counter: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("active counter: %w", err)
	}
	if m.size, err = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Response body size"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("size histogram: %w", err)
	}
	return m, nil
}

// Middleware labels each request with its chi route pattern, so the /v1 and
// /api mounts of an endpoint report separately.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			began := time.Now()

			inFlight := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.active.Add(ctx, 1, inFlight)
			defer m.active.Add(ctx, -1, inFlight)

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			labels := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", sw.statusCode),
				attribute.String("http.response.status_class", statusClass(sw.statusCode)),
			)
			m.duration.Record(ctx, time.Since(began).Seconds(), labels)
			m.requests.Add(ctx, 1, labels)
			m.size.Record(ctx, sw.written, labels)
		})
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rctx.RoutePattern()
}
