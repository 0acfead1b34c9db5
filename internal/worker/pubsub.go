package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConsumer receives training messages from a Pub/Sub subscription.
type PubSubConsumer struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	job              *TrainJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub consumer.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Job              *TrainJob
	Logger           zerolog.Logger
}

// NewPubSubConsumer creates a new Pub/Sub consumer.
func NewPubSubConsumer(ctx context.Context, cfg PubSubConfig) (*PubSubConsumer, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Training runs are serialized, so there is no point holding many messages.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubConsumer{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		job:              cfg.Job,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (c *PubSubConsumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("subscription", c.subscriptionName).
		Msg("starting pubsub training consumer")

	return c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := c.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if ack(ctx, c.job, msg.Data, logger) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (c *PubSubConsumer) Close() error {
	return c.client.Close()
}

// ack runs the job and reports whether the message is finished with. Bad
// messages are acked so they are not redelivered; failed runs are retried.
func ack(ctx context.Context, job *TrainJob, data []byte, logger zerolog.Logger) bool {
	err := job.HandleMessage(ctx, data)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrBadMessage):
		logger.Warn().Err(err).Msg("dropping unparseable training message")
		return true
	default:
		logger.Error().Err(err).Msg("training message failed, will retry")
		return false
	}
}
