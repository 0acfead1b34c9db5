// Package main runs the SafeRoute training worker. It consumes feedback
// from Pub/Sub or Kafka, trains the engine on it and refits on a schedule.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/ml"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type consumer interface {
	Start(ctx context.Context) error
	Close() error
}

func main() {
	const serviceName = "saferoute-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRoute worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := worker.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid worker configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	runner, err := ml.NewRunner(ml.RunnerConfigFromEnv(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up ml engine")
	}

	job := worker.NewTrainJob(worker.TrainJobConfig{
		Runner:  runner,
		Logger:  log,
		Timeout: cfg.TrainTimeout,
	})

	var c consumer
	switch cfg.Transport {
	case worker.TransportPubSub:
		c, err = worker.NewPubSubConsumer(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Job:              job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub consumer")
		}
	case worker.TransportKafka:
		c = worker.NewKafkaConsumer(worker.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
			Job:     job,
			Logger:  log,
		})
	default:
		log.Info().Msg("no training transport configured, running scheduled refits only")
	}

	var scheduler *worker.RetrainScheduler
	if cfg.RetrainSchedule != "" {
		scheduler, err = worker.NewRetrainScheduler(cfg.RetrainSchedule, job, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create retrain scheduler")
		}
		scheduler.Start()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"version":   Version,
			"transport": cfg.Transport,
			"training":  job.GetMetrics(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if c == nil {
			return
		}
		log.Info().Str("transport", cfg.Transport).Msg("consuming training messages")
		if err := c.Start(ctx); err != nil {
			log.Error().Err(err).Msg("training consumer stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	<-consumerDone
	if c != nil {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close consumer")
		}
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("retrain did not finish before shutdown")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
