package models

import "github.com/saferoute/saferoute/internal/places"

// AutocompleteResponse is the body of GET /maps/places/autocomplete.
type AutocompleteResponse struct {
	Predictions []places.Prediction `json:"predictions"`
}

// PlaceDetailsResponse is the body of GET /maps/places/details.
type PlaceDetailsResponse struct {
	Result PlaceResult `json:"result"`
}

// PlaceResult mirrors the provider's details result.
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name,omitempty"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         Geometry `json:"geometry"`
}

// Geometry wraps a location the way the provider does.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a resolved coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPlaceDetailsResponse converts provider details.
func NewPlaceDetailsResponse(d *places.Details) PlaceDetailsResponse {
	return PlaceDetailsResponse{Result: PlaceResult{
		PlaceID:          d.PlaceID,
		Name:             d.Name,
		FormattedAddress: d.FormattedAddress,
		Geometry:         Geometry{Location: LatLng{Lat: d.Location.Lat, Lng: d.Location.Lng}},
	}}
}

// GeocodeResponse is the body of GET /maps/geocode.
type GeocodeResponse struct {
	PlaceID     string  `json:"placeId"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}
