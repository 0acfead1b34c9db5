package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider"
)

// Client-facing messages for place lookups.
const (
	MsgInputRequired       = "Input is required"
	MsgPlaceIDRequired     = "Place ID is required"
	MsgAddressRequired     = "Address is required"
	MsgLocationNotFound    = "Location not found"
	MsgPlacesAuthFailed    = "Google Places API authentication failed. Please check backend configuration."
	MsgGeocodingAuthFailed = "Google Geocoding API authentication failed. Please check backend configuration."
	MsgBillingRequired     = "Google Maps API requires billing to be enabled. " +
		"Fallback coordinates exist for avadi, ambattur, chennai and bangalore."
	MsgAutocompleteFailed = "Failed to fetch autocomplete suggestions"
	MsgDetailsFailed      = "Failed to fetch place details"
	MsgGeocodeFailed      = "Failed to geocode address"
)

// PlaceLookup serves the search box.
type PlaceLookup interface {
	Autocomplete(ctx context.Context, input string) ([]places.Prediction, error)
	Details(ctx context.Context, placeID string) (*places.Details, error)
	Geocode(ctx context.Context, address string) (*places.GeocodeResult, error)
}

// PlacesHandler handles autocomplete, details and geocoding.
type PlacesHandler struct {
	places PlaceLookup
	logger zerolog.Logger
}

// NewPlacesHandler creates a new PlacesHandler.
func NewPlacesHandler(lookup PlaceLookup, logger zerolog.Logger) *PlacesHandler {
	return &PlacesHandler{places: lookup, logger: logger}
}

// Autocomplete handles GET /maps/places/autocomplete?input=.
func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if input == "" {
		response.BadRequest(w, r, MsgInputRequired, []models.FieldError{{Field: "input", Message: "required"}})
		return
	}

	predictions, err := h.places.Autocomplete(r.Context(), input)
	if err != nil {
		h.writeLookupError(w, r, err, MsgPlacesAuthFailed, MsgAutocompleteFailed)
		return
	}
	if predictions == nil {
		predictions = []places.Prediction{}
	}
	response.JSON(w, r, http.StatusOK, models.AutocompleteResponse{Predictions: predictions})
}

// Details handles GET /maps/places/details?placeId=.
func (h *PlacesHandler) Details(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(r.URL.Query().Get("placeId"))
	if placeID == "" {
		response.BadRequest(w, r, MsgPlaceIDRequired, []models.FieldError{{Field: "placeId", Message: "required"}})
		return
	}

	details, err := h.places.Details(r.Context(), placeID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			response.NotFound(w, r, MsgLocationNotFound)
			return
		}
		h.writeLookupError(w, r, err, MsgPlacesAuthFailed, MsgDetailsFailed)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewPlaceDetailsResponse(details))
}

// Geocode handles GET /maps/geocode?address=.
func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		response.BadRequest(w, r, MsgAddressRequired, []models.FieldError{{Field: "address", Message: "required"}})
		return
	}

	result, err := h.places.Geocode(r.Context(), address)
	switch {
	case err == nil:
	case errors.Is(err, places.ErrNoResults):
		response.NotFound(w, r, MsgLocationNotFound)
		return
	case errors.Is(err, places.ErrBillingRequired):
		response.UpstreamConfigError(w, r, MsgBillingRequired)
		return
	default:
		h.writeLookupError(w, r, err, MsgGeocodingAuthFailed, MsgGeocodeFailed)
		return
	}

	response.JSON(w, r, http.StatusOK, models.GeocodeResponse{
		PlaceID:     result.PlaceID,
		Description: result.Description,
		Lat:         result.Location.Lat,
		Lng:         result.Location.Lng,
	})
}

func (h *PlacesHandler) writeLookupError(w http.ResponseWriter, r *http.Request, err error, authMsg, failMsg string) {
	log := middleware.RequestLogger(r.Context(), h.logger)
	if provider.IsAuthFailure(err) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("places provider rejected credentials")
		response.UpstreamConfigError(w, r, authMsg)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("place lookup failed")
	response.InternalError(w, r, failMsg)
}
