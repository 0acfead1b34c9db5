package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/ml"
	"github.com/saferoute/saferoute/internal/ml/engine"
)

// ErrBadMessage marks a message that can never be processed. Consumers drop
// it instead of redelivering.
var ErrBadMessage = errors.New("bad training message")

// TrainJob feeds training requests to the engine.
type TrainJob struct {
	runner  ml.Runner
	timeout time.Duration
	logger  zerolog.Logger

	// A refit and a message never train concurrently.
	runMu sync.Mutex

	metricsMu sync.RWMutex
	metrics   TrainMetrics
}

// TrainMetrics tracks training statistics.
type TrainMetrics struct {
	MessagesProcessed int64 `json:"messagesProcessed"`
	MessagesDropped   int64 `json:"messagesDropped"`
	RunsFailed        int64 `json:"runsFailed"`
	SamplesAdded      int64 `json:"samplesAdded"`
	Refits            int64 `json:"refits"`

	LastRunAt       time.Time     `json:"lastRunAt"`
	LastRunDuration time.Duration `json:"lastRunDurationNs"`
	LastError       string        `json:"lastError,omitempty"`
}

// TrainJobConfig holds configuration for creating a TrainJob.
type TrainJobConfig struct {
	Runner ml.Runner
	Logger zerolog.Logger
	// Timeout bounds one run. Default: 2 minutes
	Timeout time.Duration
}

// NewTrainJob creates a training job.
func NewTrainJob(cfg TrainJobConfig) *TrainJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &TrainJob{runner: cfg.Runner, timeout: timeout, logger: cfg.Logger}
}

// HandleMessage trains on one queue payload. Undecodable payloads return an
// error wrapping ErrBadMessage.
func (j *TrainJob) HandleMessage(ctx context.Context, data []byte) error {
	req, err := ml.DecodeTrainingMessage(data)
	if err != nil {
		j.record(func(m *TrainMetrics) { m.MessagesDropped++ })
		return fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	resp, err := j.run(ctx, req)
	if err != nil {
		return err
	}

	added := int64(len(req.DataPoints))
	if resp.NewSamples != nil {
		added = int64(*resp.NewSamples)
	}
	j.record(func(m *TrainMetrics) {
		m.MessagesProcessed++
		m.SamplesAdded += added
	})
	return nil
}

// Retrain refits the model on the stored samples without adding new ones.
func (j *TrainJob) Retrain(ctx context.Context) error {
	if _, err := j.run(ctx, ml.TrainRequest()); err != nil {
		return err
	}
	j.record(func(m *TrainMetrics) { m.Refits++ })
	return nil
}

func (j *TrainJob) run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	resp, err := j.runner.Run(ctx, req)
	duration := time.Since(start)

	j.record(func(m *TrainMetrics) {
		m.LastRunAt = start
		m.LastRunDuration = duration
		if err != nil {
			m.RunsFailed++
			m.LastError = err.Error()
		}
	})

	if err != nil {
		j.logger.Error().Err(err).
			Int("data_points", len(req.DataPoints)).
			Dur("duration", duration).
			Msg("training run failed")
		return nil, err
	}

	j.logger.Info().
		Int("data_points", len(req.DataPoints)).
		Str("status", resp.Status).
		Dur("duration", duration).
		Msg("training run completed")
	return resp, nil
}

func (j *TrainJob) record(update func(m *TrainMetrics)) {
	j.metricsMu.Lock()
	defer j.metricsMu.Unlock()
	update(&j.metrics)
}

// GetMetrics returns a copy of the current metrics.
func (j *TrainJob) GetMetrics() TrainMetrics {
	j.metricsMu.RLock()
	defer j.metricsMu.RUnlock()
	return j.metrics
}
