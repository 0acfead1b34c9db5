package safety

import (
	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/routing"
)

// SegmentSafety is the scored form of one route step.
type SegmentSafety struct {
	SegmentIndex  int               `json:"segment_index"`
	Name          string            `json:"name"`
	StartLocation geo.LatLng        `json:"start_location"`
	EndLocation   geo.LatLng        `json:"end_location"`
	Distance      routing.TextValue `json:"distance"`
	Duration      routing.TextValue `json:"duration"`
	Score         int               `json:"score"`
	SafetyLevel   Level             `json:"safetyLevel"`
	Factors       []string          `json:"factors"`
	Breakdown     Breakdown         `json:"breakdown"`
}

// RouteSafety aggregates the segments of one route.
type RouteSafety struct {
	RouteSafetyScore int
	ActiveUsers      int
	// SafestScore and RiskiestScore are diagnostic only. Both are zero when
	// there are no segments.
	SafestScore   int
	RiskiestScore int
	Segments      []SegmentSafety
}

// ScoredRoute is a provider route with its safety assessment attached.
type ScoredRoute struct {
	// ID is "route-N" where N is the provider's original index.
	ID     string
	Route  routing.Route
	Safety RouteSafety
}

// Duration returns the leg duration text, or "N/A".
func (r ScoredRoute) Duration() string {
	if len(r.Route.Legs) == 0 || r.Route.Legs[0].Duration == nil || r.Route.Legs[0].Duration.Text == "" {
		return "N/A"
	}
	return r.Route.Legs[0].Duration.Text
}

// Distance returns the leg distance text, or "N/A".
func (r ScoredRoute) Distance() string {
	if len(r.Route.Legs) == 0 || r.Route.Legs[0].Distance == nil || r.Route.Legs[0].Distance.Text == "" {
		return "N/A"
	}
	return r.Route.Legs[0].Distance.Text
}

// BreakdownRow is one entry of the flattened per-route breakdown.
type BreakdownRow struct {
	SegmentIndex int `json:"segment_index"`
	Breakdown
}

// FlatBreakdown lists every segment's breakdown keyed by segment index.
func (r RouteSafety) FlatBreakdown() []BreakdownRow {
	rows := make([]BreakdownRow, len(r.Segments))
	for i, s := range r.Segments {
		rows[i] = BreakdownRow{SegmentIndex: s.SegmentIndex, Breakdown: s.Breakdown}
	}
	return rows
}
