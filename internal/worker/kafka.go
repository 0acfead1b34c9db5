package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads training messages from a topic as part of a consumer
// group. Every message is committed after one attempt; failed runs are
// logged and skipped.
type KafkaConsumer struct {
	reader messageReader
	topic  string
	job    *TrainJob
	logger zerolog.Logger
}

// KafkaConfig holds configuration for the Kafka consumer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Job     *TrainJob
	Logger  zerolog.Logger
}

// NewKafkaConsumer creates a consumer-group reader.
func NewKafkaConsumer(cfg KafkaConfig) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return newKafkaConsumer(r, cfg)
}

func newKafkaConsumer(r messageReader, cfg KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{reader: r, topic: cfg.Topic, job: cfg.Job, logger: cfg.Logger}
}

// Start processes messages until ctx is cancelled, then returns nil.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.topic).Msg("starting kafka training consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetching from %s: %w", c.topic, err)
		}

		logger := c.logger.With().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Logger()

		if err := c.job.HandleMessage(ctx, msg.Value); err != nil {
			if errors.Is(err, ErrBadMessage) {
				logger.Warn().Err(err).Msg("dropping unparseable training message")
			} else {
				logger.Error().Err(err).Msg("training message failed")
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("committing offset %d: %w", msg.Offset, err)
		}
	}
}

// Close closes the reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
