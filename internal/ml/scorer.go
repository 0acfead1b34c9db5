package ml

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/saferoute/saferoute/internal/ml/engine"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/safety"
)

// ScorerName identifies the engine in breaker logs and the provider registry.
const ScorerName = "ml-engine"

// ScorerConfig configures a Scorer.
type ScorerConfig struct {
	Runner Runner
	Logger zerolog.Logger

	// CircuitBreaker overrides resilience.DefaultCircuitBreakerConfig.
	CircuitBreaker *resilience.CircuitBreakerConfig

	// Registry, when set, tracks the engine's health next to the HTTP providers.
	Registry *resilience.Registry

	// OnFallback is called whenever a batch falls back. Optional.
	OnFallback func(ctx context.Context)

	// Timeout bounds one predict call (default: 10s).
	Timeout time.Duration
}

// Scorer asks the engine for a whole route's segment scores in one call.
// Any failure, including an open circuit, yields the fallback score for
// every segment.
type Scorer struct {
	runner     Runner
	breaker    *gobreaker.CircuitBreaker[*engine.Response]
	registry   *resilience.Registry
	logger     zerolog.Logger
	onFallback func(ctx context.Context)
	timeout    time.Duration
}

// NewScorer creates a scorer and registers it when a registry is configured.
func NewScorer(cfg ScorerConfig) *Scorer {
	cbConfig := resilience.DefaultCircuitBreakerConfig(ScorerName)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cbConfig.OnStateChange == nil {
		cbConfig.OnStateChange = resilience.LogStateChanges(cfg.Logger)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}

	s := &Scorer{
		runner:     cfg.Runner,
		breaker:    resilience.NewCircuitBreaker[*engine.Response](cbConfig),
		registry:   cfg.Registry,
		logger:     cfg.Logger,
		onFallback: cfg.OnFallback,
		timeout:    timeout,
	}
	if s.registry != nil {
		s.registry.Register(ScorerName, s)
	}
	return s
}

// ScoreSegments implements safety.MLScorer.
func (s *Scorer) ScoreSegments(ctx context.Context, segments []safety.MLSegment) []safety.MLResult {
	if len(segments) == 0 {
		return nil
	}

	req := engine.Request{Command: engine.CommandPredict, Segments: make([]engine.Segment, len(segments))}
	for i, seg := range segments {
		req.Segments[i] = engine.Segment{
			Index: seg.Index,
			Context: engine.Context{
				Lighting:  string(seg.Context.Lighting),
				Activity:  string(seg.Context.Activity),
				Timestamp: seg.Context.Timestamp,
			},
		}
	}

	resp, err := s.breaker.Execute(func() (*engine.Response, error) {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.runner.Run(runCtx, req)
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Int("segments", len(segments)).
			Msg("ml engine unavailable, using fallback scores")
		if s.registry != nil {
			s.registry.RecordFailure(ScorerName, err)
		}
		if s.onFallback != nil {
			s.onFallback(ctx)
		}
		return safety.FallbackResults(segments)
	}

	if s.registry != nil {
		s.registry.RecordSuccess(ScorerName)
	}

	results := make([]safety.MLResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = safety.MLResult{SegmentIndex: r.SegmentIndex, SafetyScore: r.SafetyScore}
	}
	return results
}

// CircuitBreakerState implements resilience.Monitored.
func (s *Scorer) CircuitBreakerState() gobreaker.State {
	return s.breaker.State()
}

// CircuitBreakerCounts implements resilience.Monitored.
func (s *Scorer) CircuitBreakerCounts() gobreaker.Counts {
	return s.breaker.Counts()
}

var (
	_ safety.MLScorer      = (*Scorer)(nil)
	_ resilience.Monitored = (*Scorer)(nil)
)
