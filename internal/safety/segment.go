package safety

import (
	"math"
	"regexp"

	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/routing"
)

// DefaultSegmentName is used for steps without an instruction.
const DefaultSegmentName = "Path Segment"

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// SegmentInput is everything gathered for one step before scoring.
type SegmentInput struct {
	Index       int
	Step        routing.Step
	Context     SegmentContext
	Signal      places.Signal
	ActiveUsers int
}

// ScoreSegment scores one step given the request time factor and the ML
// probability for the step.
func ScoreSegment(in SegmentInput, timeFactor, mlProbability float64) SegmentSafety {
	factor := in.Context.RoadTypeFactor
	if factor == 0 {
		factor = 1.0
	}
	roadType := in.Context.RoadType
	if roadType == "" {
		roadType = RoadStreet
	}

	res := Compute(Inputs{
		TimeFactor:     timeFactor,
		POICount:       in.Signal.POICount,
		ActiveUsers:    in.ActiveUsers,
		MLProbability:  mlProbability,
		RoadTypeFactor: factor,
	})
	res.Breakdown.RoadType = roadType

	name := htmlTag.ReplaceAllString(in.Step.HTMLInstructions, "")
	if name == "" {
		name = DefaultSegmentName
	}

	return SegmentSafety{
		SegmentIndex:  in.Index,
		Name:          name,
		StartLocation: in.Step.StartLocation,
		EndLocation:   in.Step.EndLocation,
		Distance:      in.Step.Distance,
		Duration:      in.Step.Duration,
		Score:         roundHalfUp(res.Percentage),
		SafetyLevel:   LevelFor(res.Percentage),
		Factors:       Factors(in.Context, in.Signal),
		Breakdown:     res.Breakdown,
	}
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
