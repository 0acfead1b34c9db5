// Package places derives per-segment place signals and serves place lookups
// (autocomplete, details, geocoding) backed by a places provider.
package places

import (
	"context"
	"errors"

	"github.com/saferoute/saferoute/internal/geo"
)

// ErrNoResults indicates a lookup matched nothing.
var ErrNoResults = errors.New("no matching places")

// Searcher runs nearby searches. It is the only capability signal fetching needs.
type Searcher interface {
	NearbySearch(ctx context.Context, req NearbyRequest) ([]Place, error)
}

// Provider is a full places backend.
type Provider interface {
	Searcher
	Autocomplete(ctx context.Context, input string) ([]Prediction, error)
	Details(ctx context.Context, placeID string) (*Details, error)
	Name() string
}

// NearbyRequest is a radius search around a point.
type NearbyRequest struct {
	Location     geo.LatLng
	RadiusMeters int
	OpenNow      bool
}

// Place is one nearby search result.
type Place struct {
	PlaceID  string     `json:"place_id"`
	Name     string     `json:"name"`
	Vicinity string     `json:"vicinity,omitempty"`
	Location geo.LatLng `json:"location"`
	Types    []string   `json:"types,omitempty"`
}

// Prediction is an autocomplete suggestion.
type Prediction struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text,omitempty"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

// Details describes a single place.
type Details struct {
	PlaceID          string     `json:"place_id"`
	Name             string     `json:"name"`
	FormattedAddress string     `json:"formatted_address"`
	Location         geo.LatLng `json:"location"`
}

// Signal is the place-derived input to segment scoring.
type Signal struct {
	POICount   int
	OpenPlaces int
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	PlaceID     string
	Description string
	Location    geo.LatLng
	Fallback    bool
}
