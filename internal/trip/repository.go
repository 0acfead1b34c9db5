package trip

import "context"

// Repository persists trips and feedback. Create methods assign the ID.
type Repository interface {
	// CreateTrip stores a new trip and sets its ID.
	CreateTrip(ctx context.Context, t *Trip) error

	// GetTrip retrieves a trip by ID.
	GetTrip(ctx context.Context, id string) (*Trip, error)

	// MarkFeedbackSubmitted flags a trip as reviewed. Returns ErrTripNotFound
	// for an unknown ID.
	MarkFeedbackSubmitted(ctx context.Context, id string) error

	// CreateFeedback stores a feedback report and sets its ID.
	CreateFeedback(ctx context.Context, f *Feedback) error
}
