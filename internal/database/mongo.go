package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI      string
	Database string
	// ConnectTimeout bounds connect plus the initial ping.
	ConnectTimeout time.Duration
}

// MongoConfigFromEnv creates a MongoConfig from MONGO_URI and MONGO_DATABASE.
func MongoConfigFromEnv() MongoConfig {
	return MongoConfig{
		URI:            envOr("MONGO_URI", "mongodb://localhost:27017"),
		Database:       envOr("MONGO_DATABASE", "saferoute"),
		ConnectTimeout: envDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
	}
}

// ConnectMongo connects to MongoDB, pings the primary and returns the
// configured database. Callers disconnect via db.Client().
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(cfg.Database), nil
}
