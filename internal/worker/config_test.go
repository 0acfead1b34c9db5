package worker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saferoute/saferoute/internal/worker"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ML_TRAINING_TRANSPORT", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TRAINING_TOPIC", "feedback")
	t.Setenv("ML_RETRAIN_SCHEDULE", "")
	t.Setenv("ML_TRAIN_TIMEOUT", "30s")

	cfg := worker.ConfigFromEnv()

	assert.Equal(t, worker.TransportKafka, cfg.Transport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "feedback", cfg.KafkaTopic)
	assert.Equal(t, "saferoute-worker", cfg.KafkaGroupID)
	assert.Empty(t, cfg.RetrainSchedule)
	assert.Equal(t, 30*time.Second, cfg.TrainTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *worker.Config)
		wantErr bool
	}{
		{"default", func(c *worker.Config) {}, false},
		{"unknown transport", func(c *worker.Config) { c.Transport = "carrier-pigeon" }, true},
		{"pubsub without subscription", func(c *worker.Config) {
			c.Transport = worker.TransportPubSub
			c.PubSubProjectID = "proj"
		}, true},
		{"pubsub complete", func(c *worker.Config) {
			c.Transport = worker.TransportPubSub
			c.PubSubProjectID = "proj"
			c.PubSubSubscription = "training-sub"
		}, false},
		{"kafka without brokers", func(c *worker.Config) { c.Transport = worker.TransportKafka }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := worker.DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
