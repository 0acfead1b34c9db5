// Package trip records planned trips and the safety feedback travellers
// submit after them.
package trip

import (
	"errors"
	"strings"
	"time"

	"github.com/saferoute/saferoute/internal/geo"
)

// Repository errors.
var (
	ErrTripNotFound = errors.New("trip not found")
)

// Defaults applied to new trips.
const (
	RouteModeSafest = "safest"
	StatusPlanned   = "planned"
)

// Trip is a journey a user has planned.
type Trip struct {
	ID                string    `json:"id" bson:"-"`
	UserEmail         string    `json:"userEmail" bson:"userEmail"`
	Source            string    `json:"source" bson:"source"`
	Destination       string    `json:"destination" bson:"destination"`
	TravelMode        string    `json:"travelMode" bson:"travelMode"`
	RouteMode         string    `json:"routeMode" bson:"routeMode"`
	Status            string    `json:"status" bson:"status"`
	FeedbackSubmitted bool      `json:"feedbackSubmitted" bson:"feedbackSubmitted"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// FeedbackContext is the traveller's own description of the conditions.
type FeedbackContext struct {
	Lighting  string `json:"lighting,omitempty" bson:"lighting,omitempty"`
	Activity  string `json:"activity,omitempty" bson:"activity,omitempty"`
	Timestamp string `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// Feedback is a safety report about a route.
type Feedback struct {
	ID          string  `json:"id,omitempty" bson:"-"`
	UserEmail   string  `json:"userEmail" bson:"userEmail"`
	RouteID     string  `json:"routeId" bson:"routeId"`
	TripID      string  `json:"tripId,omitempty" bson:"tripId,omitempty"`
	SafetyScore float64 `json:"safetyScore" bson:"safetyScore"`

	// SafetyRating runs from 1 (felt safe) to 10 (felt unsafe).
	SafetyRating *float64         `json:"safetyRating,omitempty" bson:"safetyRating,omitempty"`
	Context      *FeedbackContext `json:"context,omitempty" bson:"context,omitempty"`
	WouldRetake  *bool            `json:"wouldRetake,omitempty" bson:"wouldRetake,omitempty"`
	Concern      string           `json:"concern,omitempty" bson:"concern,omitempty"`
	Location     *geo.LatLng      `json:"location,omitempty" bson:"location,omitempty"`
	Origin       string           `json:"origin,omitempty" bson:"origin,omitempty"`
	Destination  string           `json:"destination,omitempty" bson:"destination,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every problem with an input. Message is the
// user-facing summary.
type ValidationError struct {
	Message string
	Errors  []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Errors))
	for i, f := range e.Errors {
		fields[i] = f.Field
	}
	return e.Message + " (" + strings.Join(fields, ", ") + ")"
}
