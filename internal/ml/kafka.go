package ml

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/saferoute/saferoute/internal/trip"
)

// KafkaNotifierConfig configures a KafkaNotifier.
type KafkaNotifierConfig struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes training messages to a topic, keyed by route.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaNotifier creates a notifier with a synchronous writer.
func NewKafkaNotifier(cfg KafkaNotifierConfig) (*KafkaNotifier, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka training topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaNotifier(w, cfg.Topic, cfg.Logger), nil
}

func newKafkaNotifier(w messageWriter, topic string, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, topic: topic, logger: logger}
}

// NotifyFeedback implements trip.TrainingNotifier.
func (n *KafkaNotifier) NotifyFeedback(ctx context.Context, fb trip.Feedback) error {
	data, err := EncodeTrainingMessage(fb)
	if err != nil {
		return err
	}

	attrs := trainingAttributes(fb)
	headers := make([]kafka.Header, 0, len(attrs))
	for _, k := range []string{"command", "route_id", "trip_id"} {
		if v, ok := attrs[k]; ok {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}

	msg := kafka.Message{
		Key:     []byte(fb.RouteID),
		Value:   data,
		Headers: headers,
		Time:    fb.CreatedAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing training message to %s: %w", n.topic, err)
	}

	n.logger.Debug().Str("topic", n.topic).Str("route_id", fb.RouteID).Msg("wrote training message")
	return nil
}

// Close flushes and closes the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

var _ trip.TrainingNotifier = (*KafkaNotifier)(nil)
