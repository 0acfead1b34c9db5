package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	got []Feedback
	err error
}

func (n *recordingNotifier) NotifyFeedback(_ context.Context, fb Feedback) error {
	n.got = append(n.got, fb)
	return n.err
}

// failingRepository fails feedback writes and trip updates.
type failingRepository struct {
	*InMemoryRepository
}

func (failingRepository) CreateFeedback(context.Context, *Feedback) error {
	return errors.New("connection refused")
}

func (failingRepository) MarkFeedbackSubmitted(context.Context, string) error {
	return errors.New("connection refused")
}

func newTestService(repo Repository, training TrainingNotifier) *Service {
	return NewService(ServiceConfig{
		Repository: repo,
		Training:   training,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedNow },
	})
}

func floatPtr(v float64) *float64 { return &v }

func TestSaveTrip(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := newTestService(repo, nil)

	trip, err := svc.SaveTrip(context.Background(), SaveTripInput{
		UserEmail:   "priya@example.com",
		Source:      "Avadi",
		Destination: "Chennai Central",
		TravelMode:  "walking",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, trip.ID)
	assert.Equal(t, RouteModeSafest, trip.RouteMode)
	assert.Equal(t, StatusPlanned, trip.Status)
	assert.False(t, trip.FeedbackSubmitted)
	assert.Equal(t, fixedNow, trip.CreatedAt)

	stored, err := repo.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, *trip, *stored)
}

func TestSaveTrip_KeepsRouteMode(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), nil)

	trip, err := svc.SaveTrip(context.Background(), SaveTripInput{
		UserEmail: "a@b.c", Source: "A", Destination: "B", TravelMode: "two-wheeler", RouteMode: "fastest",
	})
	require.NoError(t, err)
	assert.Equal(t, "fastest", trip.RouteMode)
}

func TestSaveTrip_Validation(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), nil)

	tests := []struct {
		name  string
		input SaveTripInput
		field string
	}{
		{"missing email", SaveTripInput{Source: "A", Destination: "B", TravelMode: "walking"}, "userEmail"},
		{"missing source", SaveTripInput{UserEmail: "a@b.c", Destination: "B", TravelMode: "walking"}, "source"},
		{"missing destination", SaveTripInput{UserEmail: "a@b.c", Source: "A", TravelMode: "walking"}, "destination"},
		{"missing mode", SaveTripInput{UserEmail: "a@b.c", Source: "A", Destination: "B"}, "travelMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveTrip(context.Background(), tt.input)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, MsgTripFieldsRequired, verr.Message)
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestSubmitFeedback(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	trip, err := svc.SaveTrip(context.Background(), SaveTripInput{
		UserEmail: "a@b.c", Source: "A", Destination: "B", TravelMode: "walking",
	})
	require.NoError(t, err)

	res, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		UserEmail:    "a@b.c",
		RouteID:      "route-1",
		TripID:       trip.ID,
		SafetyScore:  floatPtr(72),
		SafetyRating: floatPtr(3),
		Context:      &FeedbackContext{Lighting: "poor", Activity: "busy"},
	})
	require.NoError(t, err)

	assert.True(t, res.Saved)
	assert.NotEmpty(t, res.Feedback.ID)
	assert.Equal(t, 72.0, res.Feedback.SafetyScore)
	assert.Equal(t, fixedNow, res.Feedback.CreatedAt)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, "route-1", notifier.got[0].RouteID)
	assert.Equal(t, "poor", notifier.got[0].Context.Lighting)

	stored, err := repo.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.True(t, stored.FeedbackSubmitted)
	assert.Len(t, repo.Feedback(), 1)
}

func TestSubmitFeedback_ZeroScoreIsValid(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), nil)

	res, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		UserEmail: "a@b.c", RouteID: "route-0", SafetyScore: floatPtr(0),
	})
	require.NoError(t, err)
	assert.True(t, res.Saved)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(NewInMemoryRepository(), notifier)

	inputs := []FeedbackInput{
		{RouteID: "route-0", SafetyScore: floatPtr(50)},
		{UserEmail: "a@b.c", SafetyScore: floatPtr(50)},
		{UserEmail: "a@b.c", RouteID: "route-0"},
	}
	for _, in := range inputs {
		_, err := svc.SubmitFeedback(context.Background(), in)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, MsgFeedbackFieldsRequired, verr.Message)
	}
	assert.Empty(t, notifier.got)
}

func TestSubmitFeedback_DegradedPaths(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("engine not found")}
	svc := newTestService(failingRepository{NewInMemoryRepository()}, notifier)

	res, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		UserEmail: "a@b.c", RouteID: "route-2", TripID: "missing-trip", SafetyScore: floatPtr(40),
	})
	require.NoError(t, err)

	assert.False(t, res.Saved)
	assert.Len(t, notifier.got, 1, "training is attempted even when storage fails")
}

func TestSubmitFeedback_UnknownTrip(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), nil)

	res, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		UserEmail: "a@b.c", RouteID: "route-0", TripID: "nope", SafetyScore: floatPtr(60),
	})
	require.NoError(t, err)
	assert.True(t, res.Saved)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: MsgFeedbackFieldsRequired,
		Errors:  []FieldError{{Field: "userEmail"}, {Field: "routeId"}},
	}
	assert.Equal(t, MsgFeedbackFieldsRequired+" (userEmail, routeId)", err.Error())
}
