package trip

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/geo"
)

// User-facing validation messages.
const (
	MsgTripFieldsRequired     = "Please provide all required fields"
	MsgFeedbackFieldsRequired = "Missing required fields: userEmail, routeId, or safetyScore"
)

// TrainingNotifier forwards feedback to the ML engine. Delivery is best
// effort; the returned error is only logged.
type TrainingNotifier interface {
	NotifyFeedback(ctx context.Context, fb Feedback) error
}

// SaveTripInput is a request to record a planned trip.
type SaveTripInput struct {
	UserEmail   string
	Source      string
	Destination string
	TravelMode  string
	RouteMode   string
}

// FeedbackInput is a submitted safety report. SafetyScore is a pointer so a
// missing score can be told apart from zero.
type FeedbackInput struct {
	UserEmail    string
	RouteID      string
	TripID       string
	SafetyScore  *float64
	SafetyRating *float64
	Context      *FeedbackContext
	WouldRetake  *bool
	Concern      string
	Location     *geo.LatLng
	Origin       string
	Destination  string
}

// FeedbackResult reports what happened to a submission. Saved is false when
// the store rejected it; the submission is still accepted.
type FeedbackResult struct {
	Feedback Feedback
	Saved    bool
}

// ServiceConfig holds the dependencies of the trip service.
type ServiceConfig struct {
	Repository Repository
	// Training is optional.
	Training TrainingNotifier
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Service records trips and feedback.
type Service struct {
	repo     Repository
	training TrainingNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a trip service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     cfg.Repository,
		training: cfg.Training,
		logger:   cfg.Logger,
		now:      now,
	}
}

// SaveTrip validates and stores a planned trip.
func (s *Service) SaveTrip(ctx context.Context, in SaveTripInput) (*Trip, error) {
	if err := validateTrip(in); err != nil {
		return nil, err
	}

	routeMode := in.RouteMode
	if routeMode == "" {
		routeMode = RouteModeSafest
	}

	t := &Trip{
		UserEmail:   in.UserEmail,
		Source:      in.Source,
		Destination: in.Destination,
		TravelMode:  in.TravelMode,
		RouteMode:   routeMode,
		Status:      StatusPlanned,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.CreateTrip(ctx, t); err != nil {
		s.logger.Error().Err(err).Str("user_email", in.UserEmail).Msg("failed to save trip")
		return nil, err
	}

	s.logger.Info().
		Str("trip_id", t.ID).
		Str("travel_mode", t.TravelMode).
		Str("route_mode", t.RouteMode).
		Msg("trip saved")

	return t, nil
}

func validateTrip(in SaveTripInput) error {
	var errs []FieldError
	for _, f := range []struct{ name, value string }{
		{"userEmail", in.UserEmail},
		{"source", in.Source},
		{"destination", in.Destination},
		{"travelMode", in.TravelMode},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Message: MsgTripFieldsRequired, Errors: errs}
	}
	return nil
}

// SubmitFeedback accepts a safety report. Storage, training and the trip
// update are each attempted independently; their failures are logged and
// never fail the submission.
func (s *Service) SubmitFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	if err := validateFeedback(in); err != nil {
		return nil, err
	}

	fb := Feedback{
		UserEmail:    in.UserEmail,
		RouteID:      in.RouteID,
		TripID:       in.TripID,
		SafetyScore:  *in.SafetyScore,
		SafetyRating: in.SafetyRating,
		Context:      in.Context,
		WouldRetake:  in.WouldRetake,
		Concern:      in.Concern,
		Location:     in.Location,
		Origin:       in.Origin,
		Destination:  in.Destination,
		CreatedAt:    s.now().UTC(),
	}

	logger := s.logger.With().
		Str("route_id", fb.RouteID).
		Str("trip_id", fb.TripID).
		Logger()

	saved := true
	if err := s.repo.CreateFeedback(ctx, &fb); err != nil {
		logger.Error().Err(err).Msg("failed to store feedback")
		saved = false
	}

	if s.training != nil {
		if err := s.training.NotifyFeedback(ctx, fb); err != nil {
			logger.Warn().Err(err).Msg("training notification failed")
		}
	}

	if fb.TripID != "" {
		if err := s.repo.MarkFeedbackSubmitted(ctx, fb.TripID); err != nil {
			logger.Warn().Err(err).Msg("failed to mark trip feedback submitted")
		}
	}

	logger.Info().
		Bool("saved", saved).
		Float64("safety_score", fb.SafetyScore).
		Msg("feedback received")

	return &FeedbackResult{Feedback: fb, Saved: saved}, nil
}

func validateFeedback(in FeedbackInput) error {
	var errs []FieldError
	if strings.TrimSpace(in.UserEmail) == "" {
		errs = append(errs, FieldError{Field: "userEmail", Message: "is required"})
	}
	if strings.TrimSpace(in.RouteID) == "" {
		errs = append(errs, FieldError{Field: "routeId", Message: "is required"})
	}
	if in.SafetyScore == nil {
		errs = append(errs, FieldError{Field: "safetyScore", Message: "must be a number"})
	}
	if len(errs) > 0 {
		return &ValidationError{Message: MsgFeedbackFieldsRequired, Errors: errs}
	}
	return nil
}
