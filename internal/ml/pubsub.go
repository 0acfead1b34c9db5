package ml

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/trip"
)

// PubSubNotifierConfig configures a PubSubNotifier.
type PubSubNotifierConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubNotifier publishes training messages for the worker to consume.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubNotifier connects to Pub/Sub.
func NewPubSubNotifier(ctx context.Context, cfg PubSubNotifierConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// NotifyFeedback implements trip.TrainingNotifier. It waits for the publish
// to be acknowledged.
func (n *PubSubNotifier) NotifyFeedback(ctx context.Context, fb trip.Feedback) error {
	data, err := EncodeTrainingMessage(fb)
	if err != nil {
		return err
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: trainingAttributes(fb),
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing training message to %s: %w", n.topic, err)
	}

	n.logger.Debug().
		Str("message_id", id).
		Str("topic", n.topic).
		Str("route_id", fb.RouteID).
		Msg("published training message")
	return nil
}

// Close flushes pending publishes and closes the client.
func (n *PubSubNotifier) Close() error {
	n.publisher.Stop()
	return n.client.Close()
}

func trainingAttributes(fb trip.Feedback) map[string]string {
	attrs := map[string]string{
		"command":  "train",
		"route_id": fb.RouteID,
	}
	if fb.TripID != "" {
		attrs["trip_id"] = fb.TripID
	}
	return attrs
}

var _ trip.TrainingNotifier = (*PubSubNotifier)(nil)
