// Package geo holds the coordinate type shared by providers and scoring.
package geo

import (
	"math"
	"strconv"
)

// LatLng is a WGS84 point. JSON field names match the Google Maps wire format
// so provider locations can be passed straight through to clients.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and within range.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// String formats the point as "lat,lng" for provider query strings.
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// Snap quantizes the point to a grid of the given cell size in degrees.
// Points in the same cell share cache entries.
func (p LatLng) Snap(cell float64) LatLng {
	if cell <= 0 {
		return p
	}
	return LatLng{
		Lat: math.Floor(p.Lat/cell) * cell,
		Lng: math.Floor(p.Lng/cell) * cell,
	}
}
