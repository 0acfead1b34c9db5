package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RetrainScheduler refits the model on a cron schedule.
type RetrainScheduler struct {
	cron     *cron.Cron
	job      *TrainJob
	schedule string
	logger   zerolog.Logger
}

// NewRetrainScheduler parses schedule (standard five-field cron or a
// descriptor such as @daily) and registers the refit.
func NewRetrainScheduler(schedule string, job *TrainJob, logger zerolog.Logger) (*RetrainScheduler, error) {
	s := &RetrainScheduler{
		cron:     cron.New(),
		job:      job,
		schedule: schedule,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *RetrainScheduler) runOnce() {
	s.logger.Info().Str("schedule", s.schedule).Msg("scheduled model refit")
	if err := s.job.Retrain(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("scheduled refit failed")
	}
}

// Start runs the scheduler in the background.
func (s *RetrainScheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("retrain scheduler started")
}

// Stop stops scheduling and waits for a running refit, or for ctx.
func (s *RetrainScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
