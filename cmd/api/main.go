// Package main provides the entrypoint for the SafeRoute API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/ml"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider/googlemaps"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/internal/trip"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "saferoute-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRoute API")

	cfg := configFromEnv()
	ctx := context.Background()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	scoringMetrics, err := safety.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scoring metrics")
	}

	if cfg.MapsAPIKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY is not set - maps calls will fail authentication")
	}

	registry := resilience.NewRegistry()
	maps := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:   cfg.MapsAPIKey,
		BaseURL:  cfg.MapsBaseURL,
		Country:  cfg.PlacesCountry,
		Registry: registry,
		Logger:   log,
	})

	deps := &dependencies{log: log}
	defer deps.close()

	searcher, err := deps.placeSearcher(ctx, cfg, maps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up places cache")
	}

	runner, err := ml.NewRunner(cfg.ML.RunnerConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up ml engine")
	}

	scorer := mlScorer(runner, cfg.ML.Timeout, registry, scoringMetrics, log)

	training, err := deps.trainingNotifier(ctx, cfg.ML, runner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up training transport")
	}

	repo, err := deps.tripRepository(ctx, cfg.TripStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up trip store")
	}

	scoring := safety.NewService(safety.ServiceConfig{
		Directions: routing.NewService(routing.ServiceConfig{Provider: maps, Logger: log}),
		Places: places.NewSignalFetcher(places.SignalFetcherConfig{
			Searcher:     searcher,
			Logger:       log,
			QueryTimeout: cfg.PlacesTimeout,
			OnFailure:    scoringMetrics.RecordPlacesFailure,
		}),
		ML:                 scorer,
		Metrics:            scoringMetrics,
		Logger:             log,
		Location:           cfg.Location,
		SegmentConcurrency: cfg.SegmentConcurrency,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Routes:      scoring,
		Places:      places.NewService(places.ServiceConfig{Provider: maps, Logger: log}),
		Trips: trip.NewService(trip.ServiceConfig{
			Repository: repo,
			Training:   training,
			Logger:     log,
		}),
		Registry:   registry,
		Readiness:  deps.checks,
		CORS:       middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins},
		RequireTLS: cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("trip_store", cfg.TripStore).
			Str("places_cache", cfg.PlacesCache).
			Str("training_transport", cfg.ML.TrainingTransport).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
