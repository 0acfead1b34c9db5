package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/provider"
	"github.com/saferoute/saferoute/internal/safety"
)

// Client-facing messages for route scoring.
const (
	MsgRouteCoordinatesRequired = "Origin and destination lat/lng are required"
	MsgNoRoutes                 = "No routes found"
	MsgRoutesFailed             = "Failed to fetch routes. Please try again in a moment."
	MsgMapsAuthFailed           = "Google Maps API authentication failed. Please check backend configuration."
)

// RouteScorer scores the candidate routes between two points.
type RouteScorer interface {
	ScoreRoutes(ctx context.Context, req safety.Request) ([]safety.ScoredRoute, error)
}

// RouteHandler handles route scoring.
type RouteHandler struct {
	scorer RouteScorer
	logger zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(scorer RouteScorer, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{scorer: scorer, logger: logger}
}

// GetRoutes handles POST /maps/routes.
func (h *RouteHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !input.Origin.Complete() || !input.Destination.Complete() {
		response.BadRequest(w, r, MsgRouteCoordinatesRequired, nil)
		return
	}

	scored, err := h.scorer.ScoreRoutes(r.Context(), safety.Request{
		Origin:      geo.LatLng{Lat: *input.Origin.Lat, Lng: *input.Origin.Lng},
		Destination: geo.LatLng{Lat: *input.Destination.Lat, Lng: *input.Destination.Lng},
		Mode:        input.Mode,
	})
	if err != nil {
		h.writeScoreError(w, r, err)
		return
	}

	resp := models.RouteResponse{Routes: make([]models.RouteCandidate, len(scored))}
	for i, sr := range scored {
		resp.Routes[i] = models.NewRouteCandidate(sr)
	}
	response.JSON(w, r, http.StatusOK, resp)
}

func (h *RouteHandler) writeScoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, safety.ErrInvalidRequest):
		response.BadRequest(w, r, MsgRouteCoordinatesRequired, nil)
	case errors.Is(err, safety.ErrNoRoutes):
		response.NotFound(w, r, MsgNoRoutes)
	case provider.IsAuthFailure(err):
		middleware.RequestLogger(r.Context(), h.logger).Error().Err(err).Msg("directions provider rejected credentials")
		response.UpstreamConfigError(w, r, MsgMapsAuthFailed)
	default:
		middleware.RequestLogger(r.Context(), h.logger).Error().Err(err).Msg("route processing failed")
		response.InternalError(w, r, MsgRoutesFailed)
	}
}
