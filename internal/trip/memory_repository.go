package trip

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository keeps trips and feedback in process memory. It backs
// local development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	trips    map[string]*Trip
	feedback []*Feedback
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{trips: make(map[string]*Trip)}
}

// CreateTrip stores a copy of t.
func (r *InMemoryRepository) CreateTrip(_ context.Context, t *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	stored := *t
	r.trips[t.ID] = &stored
	return nil
}

// GetTrip returns a copy of the stored trip.
func (r *InMemoryRepository) GetTrip(_ context.Context, id string) (*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	out := *t
	return &out, nil
}

// MarkFeedbackSubmitted sets FeedbackSubmitted on the trip.
func (r *InMemoryRepository) MarkFeedbackSubmitted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok {
		return ErrTripNotFound
	}
	t.FeedbackSubmitted = true
	return nil
}

// CreateFeedback appends a copy of f.
func (r *InMemoryRepository) CreateFeedback(_ context.Context, f *Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	stored := *f
	r.feedback = append(r.feedback, &stored)
	return nil
}

// Feedback returns copies of all stored reports in insertion order.
func (r *InMemoryRepository) Feedback() []Feedback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Feedback, len(r.feedback))
	for i, f := range r.feedback {
		out[i] = *f
	}
	return out
}

var _ Repository = (*InMemoryRepository)(nil)
