package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/ml/engine"
	"github.com/saferoute/saferoute/internal/trip"
)

func sampleFeedback() trip.Feedback {
	rating := 8.0
	return trip.Feedback{
		UserEmail:    "anonymous",
		RouteID:      "route-1",
		TripID:       "trip-42",
		SafetyScore:  58,
		SafetyRating: &rating,
		Context:      &trip.FeedbackContext{Lighting: "poor", Activity: "isolated", Timestamp: "2026-03-01T22:15:00Z"},
		Origin:       "Avadi",
		CreatedAt:    time.Date(2026, 3, 1, 22, 20, 0, 0, time.UTC),
	}
}

func TestDataPointFrom(t *testing.T) {
	dp := DataPointFrom(sampleFeedback())

	require.NotNil(t, dp.SafetyRating)
	assert.Equal(t, 8.0, *dp.SafetyRating)
	assert.Equal(t, engine.Context{Lighting: "poor", Activity: "isolated", Timestamp: "2026-03-01T22:15:00Z"}, dp.Context)
	assert.JSONEq(t, `"Avadi"`, string(dp.Origin))
	assert.Nil(t, dp.Destination)

	empty := DataPointFrom(trip.Feedback{})
	assert.Nil(t, empty.SafetyRating)
	assert.Equal(t, engine.Context{}, empty.Context)
}

func TestTrainingMessage(t *testing.T) {
	data, err := EncodeTrainingMessage(sampleFeedback())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "train", raw["command"])
	assert.Len(t, raw["data_points"], 1)

	req, err := DecodeTrainingMessage(data)
	require.NoError(t, err)
	require.Len(t, req.DataPoints, 1)
	assert.Equal(t, "poor", req.DataPoints[0].Context.Lighting)
}

func TestDecodeTrainingMessage_Rejects(t *testing.T) {
	_, err := DecodeTrainingMessage([]byte(`{"command":"predict"}`))
	assert.ErrorIs(t, err, engine.ErrUnknownCommand)

	_, err = DecodeTrainingMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestProcessNotifier(t *testing.T) {
	n := 1
	runner := &fakeRunner{resp: &engine.Response{Status: "trained", NewSamples: &n}}
	notifier := NewProcessNotifier(ProcessNotifierConfig{Runner: runner, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, notifier.NotifyFeedback(ctx, sampleFeedback()))
	// Cancelling the request must not abort training.
	cancel()
	notifier.Wait()

	require.Len(t, runner.reqs, 1)
	assert.Equal(t, engine.CommandTrain, runner.reqs[0].Command)
	require.Len(t, runner.reqs[0].DataPoints, 1)
}

func TestProcessNotifier_FailureIsSwallowed(t *testing.T) {
	runner := &fakeRunner{err: errors.New("spawn failed")}
	notifier := NewProcessNotifier(ProcessNotifierConfig{Runner: runner, Logger: zerolog.Nop()})

	assert.NoError(t, notifier.NotifyFeedback(context.Background(), sampleFeedback()))
	notifier.Wait()
	assert.Equal(t, 1, runner.calls())
}

func TestProcessNotifier_TrainTimeoutOverridesRunner(t *testing.T) {
	var logs bytes.Buffer
	runner := helperRunner(t, "slow", 200*time.Millisecond)
	notifier := NewProcessNotifier(ProcessNotifierConfig{
		Runner:  runner,
		Logger:  zerolog.New(&logs),
		Timeout: 10 * time.Second,
	})

	require.NoError(t, notifier.NotifyFeedback(context.Background(), sampleFeedback()))
	notifier.Wait()

	assert.Contains(t, logs.String(), "ml training completed")
	assert.NotContains(t, logs.String(), "timed out")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, "safety-training", zerolog.Nop())

	require.NoError(t, n.NotifyFeedback(context.Background(), sampleFeedback()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "route-1", string(msg.Key))
	assert.Equal(t, sampleFeedback().CreatedAt, msg.Time)

	req, err := DecodeTrainingMessage(msg.Value)
	require.NoError(t, err)
	assert.Len(t, req.DataPoints, 1)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{"command": "train", "route_id": "route-1", "trip_id": "trip-42"}, headers)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("leader not available")}, "safety-training", zerolog.Nop())

	err := n.NotifyFeedback(context.Background(), sampleFeedback())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety-training")
}

func TestNewKafkaNotifier_Validation(t *testing.T) {
	_, err := NewKafkaNotifier(KafkaNotifierConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	_, err = NewKafkaNotifier(KafkaNotifierConfig{Topic: "t"})
	assert.Error(t, err)
}

func TestTrainingAttributes(t *testing.T) {
	fb := sampleFeedback()
	fb.TripID = ""
	assert.Equal(t, map[string]string{"command": "train", "route_id": "route-1"}, trainingAttributes(fb))
}
