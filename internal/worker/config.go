// Package worker runs the background side of SafeRoute: it consumes
// feedback training messages and periodically refits the safety model.
package worker

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Transports for training messages.
const (
	TransportNone   = "none"
	TransportPubSub = "pubsub"
	TransportKafka  = "kafka"
)

// Config holds worker configuration.
type Config struct {
	// Transport is where training messages arrive: pubsub, kafka or none.
	Transport string

	PubSubProjectID    string
	PubSubSubscription string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// RetrainSchedule is a cron expression for full refits. Empty disables them.
	// Default: @daily
	RetrainSchedule string

	// TrainTimeout bounds one training run.
	// Default: 2 minutes
	TrainTimeout time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Transport:       TransportNone,
		KafkaTopic:      "safety-training",
		KafkaGroupID:    "saferoute-worker",
		RetrainSchedule: "@daily",
		TrainTimeout:    2 * time.Minute,
	}
}

// ConfigFromEnv overlays environment variables on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ML_TRAINING_TRANSPORT"); v != "" {
		cfg.Transport = strings.ToLower(v)
	}
	// The API trains in-process; the worker has nothing to consume.
	if cfg.Transport == "process" {
		cfg.Transport = TransportNone
	}
	cfg.PubSubProjectID = os.Getenv("PUBSUB_PROJECT_ID")
	cfg.PubSubSubscription = os.Getenv("PUBSUB_TRAINING_SUBSCRIPTION")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TRAINING_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	if v := os.Getenv("KAFKA_GROUP_ID"); v != "" {
		cfg.KafkaGroupID = v
	}
	if v, ok := os.LookupEnv("ML_RETRAIN_SCHEDULE"); ok {
		cfg.RetrainSchedule = v
	}
	if d, err := time.ParseDuration(os.Getenv("ML_TRAIN_TIMEOUT")); err == nil && d > 0 {
		cfg.TrainTimeout = d
	}

	return cfg
}

// Validate checks that the selected transport is fully configured.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportNone, TransportPubSub, TransportKafka:
	default:
		return fmt.Errorf("unknown training transport %q", c.Transport)
	}
	if c.Transport == TransportPubSub && (c.PubSubProjectID == "" || c.PubSubSubscription == "") {
		return fmt.Errorf("pubsub transport needs PUBSUB_PROJECT_ID and PUBSUB_TRAINING_SUBSCRIPTION")
	}
	if c.Transport == TransportKafka && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		return fmt.Errorf("kafka transport needs KAFKA_BROKERS and KAFKA_TRAINING_TOPIC")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
