package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/ml/engine"
	"github.com/saferoute/saferoute/internal/trip"
)

const defaultTrainTimeout = 2 * time.Minute

// DataPointFrom converts a feedback report into a training point.
func DataPointFrom(fb trip.Feedback) engine.DataPoint {
	dp := engine.DataPoint{SafetyRating: fb.SafetyRating}
	if fb.Context != nil {
		dp.Context = engine.Context{
			Lighting:  fb.Context.Lighting,
			Activity:  fb.Context.Activity,
			Timestamp: fb.Context.Timestamp,
		}
	}
	if fb.Origin != "" {
		dp.Origin, _ = json.Marshal(fb.Origin)
	}
	if fb.Destination != "" {
		dp.Destination, _ = json.Marshal(fb.Destination)
	}
	return dp
}

// TrainRequest builds a train command for points. With no points it asks
// the engine to refit on what it already has.
func TrainRequest(points ...engine.DataPoint) engine.Request {
	return engine.Request{Command: engine.CommandTrain, DataPoints: points}
}

// EncodeTrainingMessage is the queue payload for one feedback report: the
// train request itself, so consumers can hand it to a Runner unchanged.
func EncodeTrainingMessage(fb trip.Feedback) ([]byte, error) {
	b, err := json.Marshal(TrainRequest(DataPointFrom(fb)))
	if err != nil {
		return nil, fmt.Errorf("encoding training message: %w", err)
	}
	return b, nil
}

// DecodeTrainingMessage parses a queue payload and checks it is a train command.
func DecodeTrainingMessage(data []byte) (engine.Request, error) {
	var req engine.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return engine.Request{}, fmt.Errorf("decoding training message: %w", err)
	}
	if req.Command != engine.CommandTrain {
		return engine.Request{}, fmt.Errorf("%w: %q", engine.ErrUnknownCommand, req.Command)
	}
	return req, nil
}

// ProcessNotifierConfig configures a ProcessNotifier.
type ProcessNotifierConfig struct {
	Runner Runner
	Logger zerolog.Logger

	// Timeout bounds one training run (default: 2 minutes).
	Timeout time.Duration
}

// ProcessNotifier trains in the background on the local engine. Notify
// returns immediately; the outcome is only logged.
type ProcessNotifier struct {
	runner  Runner
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewProcessNotifier creates a notifier.
func NewProcessNotifier(cfg ProcessNotifierConfig) *ProcessNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTrainTimeout
	}
	return &ProcessNotifier{runner: cfg.Runner, logger: cfg.Logger, timeout: timeout}
}

// NotifyFeedback implements trip.TrainingNotifier.
func (n *ProcessNotifier) NotifyFeedback(ctx context.Context, fb trip.Feedback) error {
	req := TrainRequest(DataPointFrom(fb))

	// The run outlives the request that triggered it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()

		resp, err := n.runner.Run(runCtx, req)
		if err != nil {
			n.logger.Warn().Err(err).Str("route_id", fb.RouteID).Msg("ml training failed")
			return
		}
		evt := n.logger.Info().Str("route_id", fb.RouteID).Str("status", resp.Status)
		if resp.NewSamples != nil {
			evt = evt.Int("new_samples", *resp.NewSamples)
		}
		evt.Msg("ml training completed")
	}()

	return nil
}

// Wait blocks until every started training run has finished.
func (n *ProcessNotifier) Wait() {
	n.wg.Wait()
}

var _ trip.TrainingNotifier = (*ProcessNotifier)(nil)
