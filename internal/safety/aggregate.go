package safety

import "sort"

// DefaultRouteScore is the score of a route with no segments.
const DefaultRouteScore = 75

// Aggregate folds segment scores into route statistics. The route score is
// the rounded mean segment score; active users is the rounded mean of the
// per-segment counts.
func Aggregate(segments []SegmentSafety) RouteSafety {
	if len(segments) == 0 {
		return RouteSafety{
			RouteSafetyScore: DefaultRouteScore,
			Segments:         []SegmentSafety{},
		}
	}

	var totalScore, totalUsers int
	safest, riskiest := segments[0].Score, segments[0].Score
	for _, s := range segments {
		totalScore += s.Score
		totalUsers += s.Breakdown.ActiveUsers
		if s.Score > safest {
			safest = s.Score
		}
		if s.Score < riskiest {
			riskiest = s.Score
		}
	}

	n := float64(len(segments))
	return RouteSafety{
		RouteSafetyScore: roundHalfUp(float64(totalScore) / n),
		ActiveUsers:      roundHalfUp(float64(totalUsers) / n),
		SafestScore:      safest,
		RiskiestScore:    riskiest,
		Segments:         segments,
	}
}

// RankRoutes sorts routes by descending safety score. Ties keep their
// relative order.
func RankRoutes(routes []ScoredRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Safety.RouteSafetyScore > routes[j].Safety.RouteSafetyScore
	})
}
