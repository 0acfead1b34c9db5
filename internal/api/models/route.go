// Package models holds the request and response shapes of the SafeRoute
// HTTP API.
package models

import (
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// Point is a client-supplied coordinate. Pointers tell a missing value
// apart from 0.
type Point struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Complete reports whether both coordinates were supplied.
func (p *Point) Complete() bool {
	return p != nil && p.Lat != nil && p.Lng != nil
}

// RouteRequest is the body of POST /maps/routes.
type RouteRequest struct {
	Origin      *Point `json:"origin"`
	Destination *Point `json:"destination"`
	// Mode is "two-wheeler" for driving directions. Anything else walks.
	Mode string `json:"mode"`
}

// RouteResponse lists scored routes, safest first.
type RouteResponse struct {
	Routes []RouteCandidate `json:"routes"`
}

// RouteCandidate is a provider route with the safety fields added alongside
// its own. safetyScore and activeUsers repeat route_safety_score and
// active_users for older clients.
type RouteCandidate struct {
	routing.Route

	ID               string                 `json:"id"`
	RouteSafetyScore int                    `json:"route_safety_score"`
	SafetyScore      int                    `json:"safetyScore"`
	ActiveUsers      int                    `json:"active_users"`
	ActiveUsersAlias int                    `json:"activeUsers"`
	Duration         string                 `json:"duration"`
	Distance         string                 `json:"distance"`
	Segments         []safety.SegmentSafety `json:"segments"`
	SafetyBreakdown  []safety.BreakdownRow  `json:"safety_breakdown"`
}

// NewRouteCandidate flattens a scored route into its response form.
func NewRouteCandidate(sr safety.ScoredRoute) RouteCandidate {
	segments := sr.Safety.Segments
	if segments == nil {
		segments = []safety.SegmentSafety{}
	}
	return RouteCandidate{
		Route:            sr.Route,
		ID:               sr.ID,
		RouteSafetyScore: sr.Safety.RouteSafetyScore,
		SafetyScore:      sr.Safety.RouteSafetyScore,
		ActiveUsers:      sr.Safety.ActiveUsers,
		ActiveUsersAlias: sr.Safety.ActiveUsers,
		Duration:         sr.Duration(),
		Distance:         sr.Distance(),
		Segments:         segments,
		SafetyBreakdown:  sr.Safety.FlatBreakdown(),
	}
}
