// Package api provides the HTTP API for SafeRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Routes handler.RouteScorer
	Places handler.PlaceLookup
	Trips  handler.TripRecorder

	// Registry feeds /ops/status. Readiness checks gate /ops/ready.
	Registry  *resilience.Registry
	Readiness []handler.DependencyCheck

	CORS       middleware.CORSConfig
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured. The
// same routes are served under /v1 and under /api for existing web clients.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "saferoute-api"
	}

	// Order matters: request ID and tracing first so every log line has them.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Readiness...)
	routeHandler := handler.NewRouteHandler(cfg.Routes, cfg.Logger)
	placesHandler := handler.NewPlacesHandler(cfg.Places, cfg.Logger)
	tripHandler := handler.NewTripHandler(cfg.Trips, cfg.Logger)

	scoringRateLimit := middleware.RateLimitByIP(middleware.ScoringRateLimit)   // 30 req/min
	lookupRateLimit := middleware.RateLimitByIP(middleware.LookupRateLimit)     // 120 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	mount := func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/maps", func(r chi.Router) {
			r.With(scoringRateLimit, middleware.RequireJSON).Post("/routes", routeHandler.GetRoutes)

			r.Group(func(r chi.Router) {
				r.Use(lookupRateLimit)
				r.Get("/places/autocomplete", placesHandler.Autocomplete)
				r.Get("/places/details", placesHandler.Details)
				r.Get("/geocode", placesHandler.Geocode)
			})
		})

		r.Route("/trips", func(r chi.Router) {
			r.Use(standardRateLimit, middleware.RequireJSON)
			r.Post("/", tripHandler.SaveTrip)
			r.Post("/feedback", tripHandler.SubmitFeedback)
		})
	}

	r.Route("/v1", mount)
	r.Route("/api", mount)

	return r
}
