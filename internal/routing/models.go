// Package routing fetches candidate routes between two points from a
// directions provider.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/saferoute/saferoute/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrNoRouteFound indicates the provider returned no routes between the points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for directions providers.
type Provider interface {
	// GetDirections retrieves alternative routes between two points.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// TravelMode is the provider travel mode.
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeDriving TravelMode = "driving"
)

// TwoWheeler is the client mode routed as driving. Every other mode walks.
const TwoWheeler = "two-wheeler"

// ModeFor maps a client-supplied mode onto a provider travel mode.
func ModeFor(requested string) TravelMode {
	if requested == TwoWheeler {
		return ModeDriving
	}
	return ModeWalking
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin       geo.LatLng
	Destination  geo.LatLng
	Mode         TravelMode
	Alternatives bool
}

// DirectionsResponse holds the route alternatives in provider order.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// TextValue is a provider measurement with a display string.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// Polyline is an encoded polyline. It is passed through, never decoded.
type Polyline struct {
	Points string `json:"points"`
}

// Bounds is the viewport enclosing a route.
type Bounds struct {
	Northeast geo.LatLng `json:"northeast"`
	Southwest geo.LatLng `json:"southwest"`
}

// Route is one alternative path. JSON tags follow the Google Directions
// response so routes can be returned to clients unchanged.
type Route struct {
	Summary          string   `json:"summary"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
	Bounds           Bounds   `json:"bounds"`
	Copyrights       string   `json:"copyrights"`
	Warnings         []string `json:"warnings"`
	WaypointOrder    []int    `json:"waypoint_order"`
}

// Steps returns the steps of the first leg. Requests carry no waypoints, so
// a route always has a single leg.
func (r Route) Steps() []Step {
	if len(r.Legs) == 0 {
		return nil
	}
	return r.Legs[0].Steps
}

// Leg is the part of a route between two waypoints.
type Leg struct {
	Steps         []Step     `json:"steps"`
	Distance      *TextValue `json:"distance,omitempty"`
	Duration      *TextValue `json:"duration,omitempty"`
	StartAddress  string     `json:"start_address"`
	EndAddress    string     `json:"end_address"`
	StartLocation geo.LatLng `json:"start_location"`
	EndLocation   geo.LatLng `json:"end_location"`
}

// Step is a single instruction within a leg.
type Step struct {
	HTMLInstructions string     `json:"html_instructions"`
	Distance         TextValue  `json:"distance"`
	Duration         TextValue  `json:"duration"`
	StartLocation    geo.LatLng `json:"start_location"`
	EndLocation      geo.LatLng `json:"end_location"`
	Polyline         Polyline   `json:"polyline"`
	TravelMode       string     `json:"travel_mode,omitempty"`
	Maneuver         string     `json:"maneuver,omitempty"`
}
