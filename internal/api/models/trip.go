package models

import "github.com/saferoute/saferoute/internal/geo"

// TripRequest is the body of POST /trips.
type TripRequest struct {
	UserEmail   string `json:"userEmail"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	TravelMode  string `json:"travelMode"`
	RouteMode   string `json:"routeMode"`
}

// FeedbackContext is what the rider observed.
type FeedbackContext struct {
	Lighting  string `json:"lighting"`
	Activity  string `json:"activity"`
	Timestamp string `json:"timestamp"`
}

// FeedbackRequest is the body of POST /trips/feedback. Pointer fields
// distinguish absent from zero.
type FeedbackRequest struct {
	UserEmail    string           `json:"userEmail"`
	RouteID      string           `json:"routeId"`
	TripID       string           `json:"tripId"`
	SafetyScore  *float64         `json:"safetyScore"`
	SafetyRating *float64         `json:"safetyRating"`
	Context      *FeedbackContext `json:"context"`
	WouldRetake  *bool            `json:"wouldRetake"`
	Concern      string           `json:"concern"`
	Location     *geo.LatLng      `json:"location"`
	Origin       string           `json:"origin"`
	Destination  string           `json:"destination"`
}

// FeedbackResponse acknowledges a feedback submission. Saved reports
// whether it reached the store.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Saved   bool   `json:"saved"`
}
