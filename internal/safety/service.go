package safety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/telemetry"
)

// Errors returned by ScoreRoutes.
var (
	// ErrInvalidRequest indicates out-of-range coordinates. Missing ones are
	// rejected by the HTTP layer before a Request exists.
	ErrInvalidRequest = errors.New("origin and destination lat/lng are required")
	// ErrNoRoutes indicates the directions provider found nothing.
	ErrNoRoutes = errors.New("no routes found")
)

const defaultSegmentConcurrency = 16

// DirectionsSource supplies candidate routes.
type DirectionsSource interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// PlaceSignals supplies place counts for a step. Implementations never fail.
type PlaceSignals interface {
	FetchSignals(ctx context.Context, loc geo.LatLng, distanceMeters float64) places.Signal
}

// ServiceConfig holds the collaborators of the scoring service.
type ServiceConfig struct {
	Directions DirectionsSource
	Places     PlaceSignals
	ML         MLScorer
	// Presence defaults to NoPresence.
	Presence PresenceSource
	Metrics  *Metrics
	Logger   zerolog.Logger

	// Now defaults to time.Now. Location, when set, is the zone whose
	// hour drives the time factor.
	Now      func() time.Time
	Location *time.Location

	// SegmentConcurrency bounds in-flight segment lookups per request (default: 16).
	SegmentConcurrency int
}

// Service scores every candidate route between two points.
type Service struct {
	directions  DirectionsSource
	places      PlaceSignals
	ml          MLScorer
	presence    PresenceSource
	metrics     *Metrics
	logger      zerolog.Logger
	now         func() time.Time
	location    *time.Location
	concurrency int64
	tracer      trace.Tracer
}

// NewService creates a scoring service.
func NewService(cfg ServiceConfig) *Service {
	presence := cfg.Presence
	if presence == nil {
		presence = NoPresence{}
	}
	ml := cfg.ML
	if ml == nil {
		ml = FixedMLScorer{Score: FallbackMLScore}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	concurrency := cfg.SegmentConcurrency
	if concurrency <= 0 {
		concurrency = defaultSegmentConcurrency
	}

	return &Service{
		directions:  cfg.Directions,
		places:      cfg.Places,
		ml:          ml,
		presence:    presence,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         now,
		location:    cfg.Location,
		concurrency: int64(concurrency),
		tracer:      telemetry.Tracer("github.com/saferoute/saferoute/internal/safety"),
	}
}

// Request asks for scored routes between two points.
type Request struct {
	Origin      geo.LatLng
	Destination geo.LatLng
	// Mode is the client mode; see routing.ModeFor.
	Mode string
}

// ScoreRoutes fetches alternatives, scores each route and returns them
// ranked safest first. Only a directions failure or an empty result fails
// the call; place and ML problems degrade to defaults.
func (s *Service) ScoreRoutes(ctx context.Context, req Request) ([]ScoredRoute, error) {
	if !req.Origin.Valid() || !req.Destination.Valid() {
		return nil, ErrInvalidRequest
	}

	ctx, span := s.tracer.Start(ctx, "safety.ScoreRoutes")
	defer span.End()

	mode := routing.ModeFor(req.Mode)
	resp, err := s.directions.GetDirections(ctx, routing.DirectionsRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		Mode:         mode,
		Alternatives: true,
	})
	if err != nil {
		if errors.Is(err, routing.ErrNoRouteFound) {
			return nil, ErrNoRoutes
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions failed")
		return nil, fmt.Errorf("fetching directions: %w", err)
	}
	if resp == nil || len(resp.Routes) == 0 {
		return nil, ErrNoRoutes
	}

	now := s.now()
	if s.location != nil {
		now = now.In(s.location)
	}
	timeFactor := TimeFactor(now)

	span.SetAttributes(
		attribute.Int("routes.count", len(resp.Routes)),
		attribute.String("travel.mode", string(mode)),
		attribute.Float64("safety.time_factor", timeFactor),
	)

	sem := semaphore.NewWeighted(s.concurrency)
	scored := make([]ScoredRoute, len(resp.Routes))

	var wg sync.WaitGroup
	for i := range resp.Routes {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			scored[idx] = s.scoreRoute(ctx, sem, idx, resp.Routes[idx], timeFactor, now)
			s.metrics.RecordRoute(ctx, string(mode), scored[idx].Safety)
		}(i)
	}
	wg.Wait()

	RankRoutes(scored)
	return scored, nil
}

// scoreRoute gathers inputs for every step concurrently, joins them by step
// index, asks the ML engine once for the whole route and aggregates.
func (s *Service) scoreRoute(ctx context.Context, sem *semaphore.Weighted, idx int, route routing.Route, timeFactor float64, now time.Time) ScoredRoute {
	steps := route.Steps()
	inputs := make([]SegmentInput, len(steps))

	var wg sync.WaitGroup
	for i := range steps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inputs[i] = s.gatherSegment(ctx, sem, i, steps[i], now)
		}(i)
	}
	wg.Wait()

	var mlResults []MLResult
	if len(inputs) > 0 {
		batch := make([]MLSegment, len(inputs))
		for i, in := range inputs {
			batch[i] = MLSegment{Index: in.Index, Context: in.Context}
		}
		mlResults = s.ml.ScoreSegments(ctx, batch)
	}

	segments := make([]SegmentSafety, len(inputs))
	for i, in := range inputs {
		segments[i] = ScoreSegment(in, timeFactor, MLProbability(mlResults, in.Index))
	}

	result := ScoredRoute{
		ID:     fmt.Sprintf("route-%d", idx),
		Route:  route,
		Safety: Aggregate(segments),
	}
	s.logAnalysis(idx, result)
	return result
}

// gatherSegment derives context and place signals for one step. When the
// request is cancelled before a slot frees up, the step is scored on
// defaults.
func (s *Service) gatherSegment(ctx context.Context, sem *semaphore.Weighted, i int, step routing.Step, now time.Time) SegmentInput {
	in := SegmentInput{
		Index:   i,
		Step:    step,
		Context: ExtractContext(step.HTMLInstructions, now),
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return in
	}
	defer sem.Release(1)

	if s.places != nil {
		in.Signal = s.places.FetchSignals(ctx, step.StartLocation, float64(step.Distance.Value))
	}
	in.ActiveUsers = s.presence.ActiveUsers(ctx, step.StartLocation)
	return in
}

// logAnalysis emits the per-route summary and a breakdown per segment.
func (s *Service) logAnalysis(idx int, r ScoredRoute) {
	if s.logger.GetLevel() > zerolog.DebugLevel {
		return
	}

	summary := r.Route.Summary
	if summary == "" {
		summary = "N/A"
	}
	s.logger.Debug().
		Int("route", idx+1).
		Str("summary", summary).
		Int("segments", len(r.Safety.Segments)).
		Int("average_score", r.Safety.RouteSafetyScore).
		Int("safest_score", r.Safety.SafestScore).
		Int("riskiest_score", r.Safety.RiskiestScore).
		Int("active_users", r.Safety.ActiveUsers).
		Msg("route safety analysis")

	for _, seg := range r.Safety.Segments {
		b := seg.Breakdown
		s.logger.Debug().
			Int("route", idx+1).
			Int("segment", seg.SegmentIndex+1).
			Str("name", truncate(seg.Name, 50)).
			Str("start", seg.StartLocation.String()).
			Float64("time_factor", b.TimeFactor).
			Int("poi_count", b.POICount).
			Float64("poi_score", b.POIScore).
			Int("active_users", b.ActiveUsers).
			Float64("presence_score", b.PresenceScore).
			Float64("ml_score", b.MLScore).
			Str("road_type", string(b.RoadType)).
			Float64("road_type_factor", b.RoadTypeFactor).
			Float64("base_safety", b.BaseSafety).
			Float64("final_safety_percentage", b.FinalSafetyPercentage).
			Str("formula", fmt.Sprintf("0.40*%.1f + 0.30*%.3f + 0.20*%.3f + 0.10*%.3f = %.3f; %.3f*%.1f = %.2f%%",
				b.TimeFactor, b.POIScore, b.PresenceScore, b.MLScore, b.BaseSafety,
				b.BaseSafety, b.RoadTypeFactor, b.FinalSafetyPercentage)).
			Msg("segment safety breakdown")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
