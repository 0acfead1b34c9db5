package safety

import (
	"math"

	"github.com/saferoute/saferoute/internal/places"
)

// Signal weights. They sum to 1.
const (
	WeightTime     = 0.40
	WeightPOI      = 0.30
	WeightPresence = 0.20
	WeightML       = 0.10
)

// Counts at which the POI and presence scores saturate.
const (
	POISaturation      = 20
	PresenceSaturation = 10
)

// Inputs are the raw signals for one segment.
type Inputs struct {
	TimeFactor     float64
	POICount       int
	ActiveUsers    int
	MLProbability  float64
	RoadTypeFactor float64
}

// Breakdown explains how a segment score was reached.
type Breakdown struct {
	TimeFactor            float64  `json:"time_factor"`
	POICount              int      `json:"poi_count"`
	POIScore              float64  `json:"poi_score"`
	ActiveUsers           int      `json:"active_users"`
	PresenceScore         float64  `json:"presence_score"`
	MLScore               float64  `json:"ml_score"`
	RoadTypeFactor        float64  `json:"road_type_factor"`
	RoadType              RoadType `json:"road_type"`
	BaseSafety            float64  `json:"base_safety"`
	FinalSafetyPercentage float64  `json:"final_safety_percentage"`
}

// Result is the output of Compute.
type Result struct {
	BaseSafety        float64
	FinalSegmentScore float64
	// Percentage is FinalSegmentScore * 100. It is not capped, so a highway
	// segment can exceed 100.
	Percentage float64
	Breakdown  Breakdown
}

// Compute applies the weighted formula to one segment's inputs:
//
//	base  = 0.40*time + 0.30*min(poi/20, 1) + 0.20*min(users/10, 1) + 0.10*ml
//	final = base * roadTypeFactor
//
// Breakdown.RoadType is left for the caller to fill.
func Compute(in Inputs) Result {
	poiScore := saturate(float64(in.POICount) / POISaturation)
	presenceScore := saturate(float64(in.ActiveUsers) / PresenceSaturation)
	ml := saturate(in.MLProbability)

	base := WeightTime*in.TimeFactor +
		WeightPOI*poiScore +
		WeightPresence*presenceScore +
		WeightML*ml

	final := base * in.RoadTypeFactor
	pct := final * 100

	return Result{
		BaseSafety:        base,
		FinalSegmentScore: final,
		Percentage:        pct,
		Breakdown: Breakdown{
			TimeFactor:            in.TimeFactor,
			POICount:              in.POICount,
			POIScore:              poiScore,
			ActiveUsers:           in.ActiveUsers,
			PresenceScore:         presenceScore,
			MLScore:               ml,
			RoadTypeFactor:        in.RoadTypeFactor,
			BaseSafety:            base,
			FinalSafetyPercentage: pct,
		},
	}
}

// saturate clamps v into [0, 1]. NaN maps to 0.
func saturate(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Level is a coarse safety classification.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// LevelFor classifies a percentage. Both bounds are exclusive: 80 is
// medium and 60 is low.
func LevelFor(percentage float64) Level {
	switch {
	case percentage > 80:
		return LevelHigh
	case percentage > 60:
		return LevelMedium
	default:
		return LevelLow
	}
}

// StandardRoute is the factor label used when nothing else applies.
const StandardRoute = "Standard Route"

// Factors lists the human-readable reasons shown for a segment. They come
// from the context and place counts, not from the score.
func Factors(ctx SegmentContext, sig places.Signal) []string {
	var factors []string

	switch ctx.Lighting {
	case LightingWellLit:
		factors = append(factors, "Well Lit")
	case LightingPoor:
		factors = append(factors, "Dim Lighting")
	}

	switch ctx.Activity {
	case ActivityBusy:
		factors = append(factors, "Active Area")
	case ActivityIsolated:
		factors = append(factors, "Quiet Area")
	}

	if sig.POICount > 0 {
		factors = append(factors, "Nearby public places")
	}
	if sig.OpenPlaces > 0 {
		factors = append(factors, "Open businesses")
	}

	if len(factors) == 0 {
		return []string{StandardRoute}
	}
	return factors
}
