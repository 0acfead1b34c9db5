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
	"github.com/saferoute/saferoute/internal/trip"
)

// Client-facing messages for trips and feedback.
const (
	MsgFeedbackReceived = "Feedback received successfully"
	MsgFeedbackFailed   = "Failed to submit feedback"
	MsgTripFailed       = "Failed to save trip"
	MsgInvalidJSON      = "Request body must be valid JSON"
)

// TripRecorder stores trips and feedback.
type TripRecorder interface {
	SaveTrip(ctx context.Context, in trip.SaveTripInput) (*trip.Trip, error)
	SubmitFeedback(ctx context.Context, in trip.FeedbackInput) (*trip.FeedbackResult, error)
}

// TripHandler handles trip planning records and safety feedback.
type TripHandler struct {
	trips  TripRecorder
	logger zerolog.Logger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips TripRecorder, logger zerolog.Logger) *TripHandler {
	return &TripHandler{trips: trips, logger: logger}
}

// SaveTrip handles POST /trips.
func (h *TripHandler) SaveTrip(w http.ResponseWriter, r *http.Request) {
	var input models.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, trip.MsgTripFieldsRequired, nil)
		return
	}

	t, err := h.trips.SaveTrip(r.Context(), trip.SaveTripInput{
		UserEmail:   input.UserEmail,
		Source:      input.Source,
		Destination: input.Destination,
		TravelMode:  input.TravelMode,
		RouteMode:   input.RouteMode,
	})
	if err != nil {
		var verr *trip.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, verr.Message, fieldErrors(verr))
			return
		}
		middleware.RequestLogger(r.Context(), h.logger).Error().Err(err).Msg("saving trip failed")
		response.InternalError(w, r, MsgTripFailed)
		return
	}

	response.Created(w, r, "", t)
}

// SubmitFeedback handles POST /trips/feedback. Storage, training and trip
// updates are best effort; the submission is accepted once it validates.
func (h *TripHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var input models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, trip.MsgFeedbackFieldsRequired, nil)
		return
	}

	in := trip.FeedbackInput{
		UserEmail:    input.UserEmail,
		RouteID:      input.RouteID,
		TripID:       input.TripID,
		SafetyScore:  input.SafetyScore,
		SafetyRating: input.SafetyRating,
		WouldRetake:  input.WouldRetake,
		Concern:      input.Concern,
		Location:     input.Location,
		Origin:       input.Origin,
		Destination:  input.Destination,
	}
	if c := input.Context; c != nil {
		in.Context = &trip.FeedbackContext{Lighting: c.Lighting, Activity: c.Activity, Timestamp: c.Timestamp}
	}

	result, err := h.trips.SubmitFeedback(r.Context(), in)
	if err != nil {
		var verr *trip.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, verr.Message, fieldErrors(verr))
			return
		}
		middleware.RequestLogger(r.Context(), h.logger).Error().Err(err).Msg("feedback submission failed")
		response.InternalError(w, r, MsgFeedbackFailed)
		return
	}

	response.Created(w, r, "", models.FeedbackResponse{
		Success: true,
		Message: MsgFeedbackReceived,
		Saved:   result.Saved,
	})
}

func fieldErrors(verr *trip.ValidationError) []models.FieldError {
	if len(verr.Errors) == 0 {
		return nil
	}
	out := make([]models.FieldError, len(verr.Errors))
	for i, fe := range verr.Errors {
		out[i] = models.FieldError{Field: fe.Field, Message: fe.Message, Code: "required"}
	}
	return out
}
