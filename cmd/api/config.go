package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saferoute/saferoute/internal/ml"
)

type mlConfig struct {
	ml.RunnerConfig

	// TrainingTransport is process, pubsub or kafka.
	TrainingTransport string
	TrainTimeout      time.Duration
	PubSubProjectID   string
	PubSubTopic       string
	KafkaBrokers      []string
	KafkaTopic        string
}

type config struct {
	Port string

	MapsAPIKey    string
	MapsBaseURL   string
	PlacesCountry string
	PlacesTimeout time.Duration

	// PlacesCache is memory, redis or none.
	PlacesCache string
	// TripStore is memory, postgres or mongo.
	TripStore string

	ML mlConfig

	Location           *time.Location
	SegmentConcurrency int
	RequireTLS         bool
	CORSOrigins        []string
}

func configFromEnv() config {
	cfg := config{
		Port:          envOr("APP_PORT", "8080"),
		MapsAPIKey:    os.Getenv("GOOGLE_MAPS_API_KEY"),
		MapsBaseURL:   os.Getenv("GOOGLE_MAPS_BASE_URL"),
		PlacesCountry: os.Getenv("PLACES_COUNTRY"),
		PlacesTimeout: envDuration("PLACES_TIMEOUT", 5*time.Second),
		PlacesCache:   strings.ToLower(envOr("PLACES_CACHE", "none")),
		TripStore:     strings.ToLower(envOr("TRIP_STORE", "memory")),
		ML: mlConfig{
			RunnerConfig:      ml.RunnerConfigFromEnv(),
			TrainingTransport: strings.ToLower(envOr("ML_TRAINING_TRANSPORT", "process")),
			TrainTimeout:      envDuration("ML_TRAIN_TIMEOUT", 2*time.Minute),
			PubSubProjectID:   os.Getenv("PUBSUB_PROJECT_ID"),
			PubSubTopic:       envOr("PUBSUB_TRAINING_TOPIC", "safety-training"),
			KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:        envOr("KAFKA_TRAINING_TOPIC", "safety-training"),
		},
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		CORSOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if n, err := strconv.Atoi(os.Getenv("SEGMENT_CONCURRENCY")); err == nil && n > 0 {
		cfg.SegmentConcurrency = n
	}

	// An unknown zone falls back to the process local time.
	if tz := os.Getenv("SCORING_TIMEZONE"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Location = loc
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
