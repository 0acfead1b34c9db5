package safety

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider"
	"github.com/saferoute/saferoute/internal/routing"
)

var fixedPoint = geo.LatLng{Lat: 13.08, Lng: 80.27}

type fakeDirections struct {
	mu       sync.Mutex
	resp     *routing.DirectionsResponse
	err      error
	requests []routing.DirectionsRequest
}

func (f *fakeDirections) GetDirections(_ context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

// fakeSignals answers by step start latitude. delay, when set, holds the
// answer for that latitude back.
type fakeSignals struct {
	counts map[float64]places.Signal
	delay  map[float64]time.Duration
}

func (f *fakeSignals) FetchSignals(ctx context.Context, loc geo.LatLng, _ float64) places.Signal {
	if d := f.delay[loc.Lat]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return places.Signal{}
		}
	}
	return f.counts[loc.Lat]
}

type recordingML struct {
	mu      sync.Mutex
	batches [][]MLSegment
	score   float64
	fail    bool
}

func (r *recordingML) ScoreSegments(_ context.Context, segs []MLSegment) []MLResult {
	r.mu.Lock()
	r.batches = append(r.batches, segs)
	r.mu.Unlock()
	if r.fail {
		return FallbackResults(segs)
	}
	return FixedMLScorer{Score: r.score}.ScoreSegments(context.Background(), segs)
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC) }
}

func step(instruction string, lat float64) routing.Step {
	return routing.Step{
		HTMLInstructions: instruction,
		Distance:         routing.TextValue{Text: "0.2 km", Value: 200},
		Duration:         routing.TextValue{Text: "3 mins", Value: 180},
		StartLocation:    geo.LatLng{Lat: lat, Lng: 80.27},
		EndLocation:      geo.LatLng{Lat: lat + 0.001, Lng: 80.27},
	}
}

func routeOf(summary string, steps ...routing.Step) routing.Route {
	return routing.Route{
		Summary: summary,
		Legs: []routing.Leg{{
			Steps:    steps,
			Distance: &routing.TextValue{Text: "1.4 km", Value: 1400},
			Duration: &routing.TextValue{Text: "18 mins", Value: 1080},
		}},
	}
}

func directionsWith(routes ...routing.Route) *fakeDirections {
	return &fakeDirections{resp: &routing.DirectionsResponse{Routes: routes, Provider: "fake"}}
}

func newTestService(dir DirectionsSource, sig PlaceSignals, ml MLScorer, now func() time.Time) *Service {
	return NewService(ServiceConfig{
		Directions: dir,
		Places:     sig,
		ML:         ml,
		Logger:     zerolog.Nop(),
		Now:        now,
	})
}

var chennaiRequest = Request{
	Origin:      geo.LatLng{Lat: 13.08, Lng: 80.27},
	Destination: geo.LatLng{Lat: 13.09, Lng: 80.28},
	Mode:        "walking",
}

func TestScoreRoutes_SingleSegment(t *testing.T) {
	dir := directionsWith(routeOf("Mint St", step("Head north on <b>Mint Street</b>", 13.08)))
	sig := &fakeSignals{counts: map[float64]places.Signal{13.08: {POICount: 10, OpenPlaces: 2}}}
	svc := newTestService(dir, sig, FixedMLScorer{Score: 75}, at(10))

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)
	require.Len(t, routes, 1)

	r := routes[0]
	assert.Equal(t, "route-0", r.ID)
	assert.Equal(t, "18 mins", r.Duration())
	assert.Equal(t, "1.4 km", r.Distance())

	require.Len(t, r.Safety.Segments, 1)
	seg := r.Safety.Segments[0]
	// (0.40*1.0 + 0.30*0.5 + 0.10*0.75) * 0.9 = 56.25
	assert.InDelta(t, 56.25, seg.Breakdown.FinalSafetyPercentage, 1e-9)
	assert.Equal(t, 56, seg.Score)
	assert.Equal(t, LevelLow, seg.SafetyLevel)
	assert.Equal(t, "Head north on Mint Street", seg.Name)
	assert.Equal(t, RoadStreet, seg.Breakdown.RoadType)
	assert.Equal(t, []string{"Nearby public places", "Open businesses"}, seg.Factors)

	assert.Equal(t, 56, r.Safety.RouteSafetyScore)
	assert.Equal(t, 0, r.Safety.ActiveUsers)
}

func TestScoreRoutes_RequestsAlternatives(t *testing.T) {
	dir := directionsWith(routeOf("A", step("Head north", 13.08)))
	svc := newTestService(dir, &fakeSignals{}, nil, at(10))

	req := chennaiRequest
	req.Mode = routing.TwoWheeler
	_, err := svc.ScoreRoutes(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, dir.requests, 1)
	assert.Equal(t, routing.ModeDriving, dir.requests[0].Mode)
	assert.True(t, dir.requests[0].Alternatives)
	assert.Equal(t, chennaiRequest.Origin, dir.requests[0].Origin)
}

func TestScoreRoutes_MLFailureUsesFallback(t *testing.T) {
	dir := directionsWith(
		routeOf("A", step("Head north", 13.08), step("Walk down the alley", 13.081)),
		routeOf("B", step("Merge onto highway", 13.082)),
	)
	ml := &recordingML{fail: true}
	svc := newTestService(dir, &fakeSignals{}, ml, at(10))

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	for _, r := range routes {
		for _, seg := range r.Safety.Segments {
			assert.Equal(t, 0.75, seg.Breakdown.MLScore, "%s segment %d", r.ID, seg.SegmentIndex)
		}
	}
	// One batch per route.
	assert.Len(t, ml.batches, 2)
}

func TestScoreRoutes_OneBatchPerRouteInStepOrder(t *testing.T) {
	dir := directionsWith(routeOf("A",
		step("Head north", 13.08),
		step("Turn onto Anna Salai Road", 13.081),
		step("Walk down the alley", 13.082),
	))
	ml := &recordingML{score: 60}
	svc := newTestService(dir, &fakeSignals{}, ml, at(10))

	_, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	require.Len(t, ml.batches, 1)
	batch := ml.batches[0]
	require.Len(t, batch, 3)
	for i, s := range batch {
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, RoadMainRoad, batch[1].Context.RoadType)
	assert.Equal(t, RoadAlley, batch[2].Context.RoadType)
	assert.Equal(t, "2026-03-01T10:00:00Z", batch[0].Context.Timestamp)
}

func TestScoreRoutes_SegmentOrderSurvivesDelays(t *testing.T) {
	lats := []float64{13.080, 13.081, 13.082, 13.083, 13.084}
	steps := make([]routing.Step, len(lats))
	sig := &fakeSignals{
		counts: map[float64]places.Signal{},
		delay:  map[float64]time.Duration{},
	}
	for i, lat := range lats {
		steps[i] = step("Head north", lat)
		sig.counts[lat] = places.Signal{POICount: i + 1}
		// Earlier steps answer last.
		sig.delay[lat] = time.Duration(len(lats)-i) * 10 * time.Millisecond
	}
	svc := newTestService(directionsWith(routeOf("A", steps...)), sig, nil, at(10))

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	segs := routes[0].Safety.Segments
	require.Len(t, segs, len(lats))
	for i, seg := range segs {
		assert.Equal(t, i, seg.SegmentIndex)
		assert.Equal(t, i+1, seg.Breakdown.POICount)
		assert.Equal(t, lats[i], seg.StartLocation.Lat)
	}
}

func TestScoreRoutes_RanksSafestFirst(t *testing.T) {
	dir := directionsWith(
		routeOf("Back lanes", step("Walk down the alley", 13.08)),
		routeOf("Expressway", step("Merge onto Expressway", 13.09)),
		routeOf("Plain", step("Head north", 13.10)),
	)
	svc := newTestService(dir, &fakeSignals{}, nil, at(10))

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, "route-1", routes[0].ID)
	assert.Equal(t, "route-2", routes[1].ID)
	assert.Equal(t, "route-0", routes[2].ID)
	assert.Equal(t, "Expressway", routes[0].Route.Summary)
	for i := 1; i < len(routes); i++ {
		assert.GreaterOrEqual(t, routes[i-1].Safety.RouteSafetyScore, routes[i].Safety.RouteSafetyScore)
	}
}

func TestScoreRoutes_RouteWithoutSteps(t *testing.T) {
	ml := &recordingML{score: 90}
	svc := newTestService(directionsWith(routing.Route{Summary: "empty"}), &fakeSignals{}, ml, at(10))

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	assert.Equal(t, DefaultRouteScore, routes[0].Safety.RouteSafetyScore)
	assert.Empty(t, routes[0].Safety.Segments)
	assert.Empty(t, ml.batches)
}

func TestScoreRoutes_TimeFactorUsesLocation(t *testing.T) {
	dir := directionsWith(routeOf("A", step("Head north", 13.08)))
	svc := NewService(ServiceConfig{
		Directions: dir,
		Places:     &fakeSignals{},
		Logger:     zerolog.Nop(),
		Now:        at(14),
		Location:   time.FixedZone("IST", 5*3600+1800),
	})

	routes, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	assert.Equal(t, EveningFactor, routes[0].Safety.Segments[0].Breakdown.TimeFactor)
}

func TestScoreRoutes_NightLowersScores(t *testing.T) {
	dir := directionsWith(routeOf("A", step("Head north", 13.08)))

	day, err := newTestService(dir, &fakeSignals{}, nil, at(10)).ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)
	night, err := newTestService(dir, &fakeSignals{}, nil, at(23)).ScoreRoutes(context.Background(), chennaiRequest)
	require.NoError(t, err)

	assert.Greater(t, day[0].Safety.RouteSafetyScore, night[0].Safety.RouteSafetyScore)
}

func TestScoreRoutes_InvalidRequest(t *testing.T) {
	dir := directionsWith(routeOf("A"))
	svc := newTestService(dir, &fakeSignals{}, nil, at(10))

	tests := []Request{
		{Origin: chennaiRequest.Origin, Destination: geo.LatLng{Lat: 91, Lng: 0}},
		{Origin: geo.LatLng{Lat: 13, Lng: 181}, Destination: chennaiRequest.Destination},
	}
	for _, req := range tests {
		_, err := svc.ScoreRoutes(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Empty(t, dir.requests)
}

func TestScoreRoutes_NoRoutes(t *testing.T) {
	tests := map[string]*fakeDirections{
		"empty response":         directionsWith(),
		"nil response":           {},
		"no route from provider": {err: routing.ErrNoRouteFound},
	}
	for name, dir := range tests {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(dir, &fakeSignals{}, nil, at(10))
			_, err := svc.ScoreRoutes(context.Background(), chennaiRequest)
			assert.ErrorIs(t, err, ErrNoRoutes)
		})
	}
}

func TestScoreRoutes_DirectionsFailure(t *testing.T) {
	upstream := &provider.Error{Provider: "google-maps", Operation: "directions", Err: provider.ErrUnavailable}
	svc := newTestService(&fakeDirections{err: upstream}, &fakeSignals{}, nil, at(10))

	_, err := svc.ScoreRoutes(context.Background(), chennaiRequest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNoRoutes))
}
