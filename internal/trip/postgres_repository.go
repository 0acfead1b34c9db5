package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saferoute/saferoute/internal/geo"
)

// Schema creates the tables used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS trips (
	id                 UUID PRIMARY KEY,
	user_email         TEXT NOT NULL,
	source             TEXT NOT NULL,
	destination        TEXT NOT NULL,
	travel_mode        TEXT NOT NULL,
	route_mode         TEXT NOT NULL,
	status             TEXT NOT NULL,
	feedback_submitted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS trips_user_email_idx ON trips (user_email);

CREATE TABLE IF NOT EXISTS safety_feedback (
	id            UUID PRIMARY KEY,
	user_email    TEXT NOT NULL,
	route_id      TEXT NOT NULL,
	trip_id       TEXT,
	safety_score  DOUBLE PRECISION NOT NULL,
	safety_rating DOUBLE PRECISION,
	details       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL trip repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates missing tables.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create trip schema: %w", err)
	}
	return nil
}

// CreateTrip inserts a trip.
func (r *PostgresRepository) CreateTrip(ctx context.Context, t *Trip) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
		INSERT INTO trips (id, user_email, source, destination, travel_mode, route_mode, status, feedback_submitted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.UserEmail, t.Source, t.Destination, t.TravelMode,
		t.RouteMode, t.Status, t.FeedbackSubmitted, t.CreatedAt,
	)
	return err
}

// GetTrip retrieves a trip by ID.
func (r *PostgresRepository) GetTrip(ctx context.Context, id string) (*Trip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTripNotFound
	}

	query := `
		SELECT id, user_email, source, destination, travel_mode, route_mode, status, feedback_submitted, created_at
		FROM trips
		WHERE id = $1
	`

	var t Trip
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.UserEmail,
		&t.Source,
		&t.Destination,
		&t.TravelMode,
		&t.RouteMode,
		&t.Status,
		&t.FeedbackSubmitted,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkFeedbackSubmitted flags a trip as reviewed.
func (r *PostgresRepository) MarkFeedbackSubmitted(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTripNotFound
	}

	tag, err := r.pool.Exec(ctx, `UPDATE trips SET feedback_submitted = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

// feedbackDetails holds the free-form parts of a report in the details column.
type feedbackDetails struct {
	Context     *FeedbackContext `json:"context,omitempty"`
	WouldRetake *bool            `json:"wouldRetake,omitempty"`
	Concern     string           `json:"concern,omitempty"`
	Location    *geo.LatLng      `json:"location,omitempty"`
	Origin      string           `json:"origin,omitempty"`
	Destination string           `json:"destination,omitempty"`
}

// CreateFeedback inserts a feedback report.
func (r *PostgresRepository) CreateFeedback(ctx context.Context, f *Feedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	details, err := json.Marshal(feedbackDetails{
		Context:     f.Context,
		WouldRetake: f.WouldRetake,
		Concern:     f.Concern,
		Location:    f.Location,
		Origin:      f.Origin,
		Destination: f.Destination,
	})
	if err != nil {
		return fmt.Errorf("encode feedback details: %w", err)
	}

	var tripID *string
	if f.TripID != "" {
		tripID = &f.TripID
	}

	query := `
		INSERT INTO safety_feedback (id, user_email, route_id, trip_id, safety_score, safety_rating, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		f.ID, f.UserEmail, f.RouteID, tripID, f.SafetyScore, f.SafetyRating, details, f.CreatedAt,
	)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
