package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/routing"
)

func segmentsWithScores(scores ...int) []SegmentSafety {
	out := make([]SegmentSafety, len(scores))
	for i, s := range scores {
		out[i] = SegmentSafety{SegmentIndex: i, Score: s}
	}
	return out
}

func TestAggregate(t *testing.T) {
	segs := segmentsWithScores(62, 87, 74)
	segs[0].Breakdown.ActiveUsers = 3
	segs[1].Breakdown.ActiveUsers = 4

	rs := Aggregate(segs)

	// (62+87+74)/3 = 74.33
	assert.Equal(t, 74, rs.RouteSafetyScore)
	// 7/3 = 2.33
	assert.Equal(t, 2, rs.ActiveUsers)
	assert.Equal(t, 87, rs.SafestScore)
	assert.Equal(t, 62, rs.RiskiestScore)
	assert.Len(t, rs.Segments, 3)
}

func TestAggregate_RoundsHalfUp(t *testing.T) {
	rs := Aggregate(segmentsWithScores(56, 57))
	assert.Equal(t, 57, rs.RouteSafetyScore)
}

func TestAggregate_Empty(t *testing.T) {
	rs := Aggregate(nil)

	assert.Equal(t, DefaultRouteScore, rs.RouteSafetyScore)
	assert.Equal(t, 0, rs.ActiveUsers)
	assert.Equal(t, 0, rs.SafestScore)
	assert.Equal(t, 0, rs.RiskiestScore)
	require.NotNil(t, rs.Segments)
	assert.Empty(t, rs.Segments)
}

func TestRankRoutes(t *testing.T) {
	routes := []ScoredRoute{
		{ID: "route-0", Safety: RouteSafety{RouteSafetyScore: 62}},
		{ID: "route-1", Safety: RouteSafety{RouteSafetyScore: 87}},
		{ID: "route-2", Safety: RouteSafety{RouteSafetyScore: 74}},
	}

	RankRoutes(routes)

	ids := []string{routes[0].ID, routes[1].ID, routes[2].ID}
	assert.Equal(t, []string{"route-1", "route-2", "route-0"}, ids)
}

func TestRankRoutes_TiesKeepOrder(t *testing.T) {
	routes := []ScoredRoute{
		{ID: "route-0", Safety: RouteSafety{RouteSafetyScore: 70}},
		{ID: "route-1", Safety: RouteSafety{RouteSafetyScore: 80}},
		{ID: "route-2", Safety: RouteSafety{RouteSafetyScore: 70}},
		{ID: "route-3", Safety: RouteSafety{RouteSafetyScore: 70}},
	}

	RankRoutes(routes)

	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"route-1", "route-0", "route-2", "route-3"}, ids)
}

func TestScoredRoute_DurationDistance(t *testing.T) {
	r := ScoredRoute{Route: routing.Route{Legs: []routing.Leg{{
		Distance: &routing.TextValue{Text: "1.2 km", Value: 1200},
		Duration: &routing.TextValue{Text: "15 mins", Value: 900},
	}}}}
	assert.Equal(t, "15 mins", r.Duration())
	assert.Equal(t, "1.2 km", r.Distance())

	empty := ScoredRoute{}
	assert.Equal(t, "N/A", empty.Duration())
	assert.Equal(t, "N/A", empty.Distance())

	noText := ScoredRoute{Route: routing.Route{Legs: []routing.Leg{{}}}}
	assert.Equal(t, "N/A", noText.Duration())
}

func TestRouteSafety_FlatBreakdown(t *testing.T) {
	segs := segmentsWithScores(50, 60)
	segs[0].Breakdown.POICount = 4
	segs[1].SegmentIndex = 7

	rows := Aggregate(segs).FlatBreakdown()

	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].SegmentIndex)
	assert.Equal(t, 4, rows[0].POICount)
	assert.Equal(t, 7, rows[1].SegmentIndex)
}

var fixedNoon = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func placesSignal(poi, open int) places.Signal {
	return places.Signal{POICount: poi, OpenPlaces: open}
}

func TestScoreSegment(t *testing.T) {
	step := routing.Step{
		HTMLInstructions: "Turn <b>left</b> onto <b>Wall Tax Road</b>",
		Distance:         routing.TextValue{Text: "0.3 km", Value: 300},
		Duration:         routing.TextValue{Text: "4 mins", Value: 240},
	}
	in := SegmentInput{Index: 2, Step: step, Context: ExtractContext(step.HTMLInstructions, fixedNoon)}

	seg := ScoreSegment(in, DayFactor, 0.5)

	assert.Equal(t, 2, seg.SegmentIndex)
	assert.Equal(t, "Turn left onto Wall Tax Road", seg.Name)
	assert.Equal(t, RoadMainRoad, seg.Breakdown.RoadType)
	// 0.40 + 0.10*0.5 = 0.45
	assert.Equal(t, 45, seg.Score)
	assert.Equal(t, LevelLow, seg.SafetyLevel)
	assert.Equal(t, []string{StandardRoute}, seg.Factors)
	assert.Equal(t, 300, seg.Distance.Value)
}

func TestScoreSegment_DefaultName(t *testing.T) {
	seg := ScoreSegment(SegmentInput{Context: ExtractContext("", fixedNoon)}, DayFactor, 0.75)
	assert.Equal(t, DefaultSegmentName, seg.Name)

	seg = ScoreSegment(SegmentInput{Step: routing.Step{HTMLInstructions: "<div></div>"}}, DayFactor, 0.75)
	assert.Equal(t, DefaultSegmentName, seg.Name)
	assert.Equal(t, RoadStreet, seg.Breakdown.RoadType)
	assert.Equal(t, 1.0, seg.Breakdown.RoadTypeFactor)
}

func TestScoreSegment_LevelUsesUnroundedPercentage(t *testing.T) {
	// time 1.0, 20 POIs, ML 0.5 -> 0.40 + 0.30 + 0.05 = 0.75 * 1.2 = 90
	ctx := ExtractContext("Merge onto highway", fixedNoon)
	seg := ScoreSegment(SegmentInput{Context: ctx, Signal: placesSignal(20, 0)}, DayFactor, 0.5)
	assert.Equal(t, 90, seg.Score)
	assert.Equal(t, LevelHigh, seg.SafetyLevel)

	// 60.4 rounds to 60 but is still medium.
	ctx = SegmentContext{RoadType: RoadStreet, RoadTypeFactor: 1.0}
	seg = ScoreSegment(SegmentInput{Context: ctx, Signal: placesSignal(8, 0)}, DayFactor, 0.84)
	assert.Equal(t, 60, seg.Score)
	assert.Equal(t, LevelMedium, seg.SafetyLevel)
}
