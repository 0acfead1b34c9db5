package trip

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names.
const (
	TripsCollection    = "trips"
	FeedbackCollection = "safety_feedback"
)

// MongoRepository stores trips and feedback as documents, one collection each.
type MongoRepository struct {
	trips    *mongo.Collection
	feedback *mongo.Collection
}

// NewMongoRepository creates a repository over db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		trips:    db.Collection(TripsCollection),
		feedback: db.Collection(FeedbackCollection),
	}
}

// CreateTrip inserts a trip; its ID is the document's ObjectID in hex.
func (r *MongoRepository) CreateTrip(ctx context.Context, t *Trip) error {
	result, err := r.trips.InsertOne(ctx, t)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	t.ID = insertedID(result)
	return nil
}

// GetTrip retrieves a trip by ID.
func (r *MongoRepository) GetTrip(ctx context.Context, id string) (*Trip, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTripNotFound
	}

	var t Trip
	err = r.trips.FindOne(ctx, bson.M{"_id": oid}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ID = id
	return &t, nil
}

// MarkFeedbackSubmitted flags a trip as reviewed.
func (r *MongoRepository) MarkFeedbackSubmitted(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTripNotFound
	}

	result, err := r.trips.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"feedbackSubmitted": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTripNotFound
	}
	return nil
}

// CreateFeedback inserts a feedback report.
func (r *MongoRepository) CreateFeedback(ctx context.Context, f *Feedback) error {
	result, err := r.feedback.InsertOne(ctx, f)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	f.ID = insertedID(result)
	return nil
}

func insertedID(result *mongo.InsertOneResult) string {
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(result.InsertedID)
}

var _ Repository = (*MongoRepository)(nil)
