package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/database"
	"github.com/saferoute/saferoute/internal/ml"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/internal/trip"
)

// dependencies owns the connections opened at startup and the readiness
// checks that go with them.
type dependencies struct {
	log     zerolog.Logger
	checks  []handler.DependencyCheck
	closers []func()
}

func (d *dependencies) onClose(f func()) {
	d.closers = append(d.closers, f)
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (d *dependencies) placeSearcher(ctx context.Context, cfg config, searcher places.Searcher) (places.Searcher, error) {
	var cache places.Cache
	switch cfg.PlacesCache {
	case "none":
		return searcher, nil
	case "memory":
		cache = places.NewMemoryCache()
	case "redis":
		redisCfg := database.RedisConfigFromEnv()
		client, err := database.ConnectRedis(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = client.Close() })
		d.checks = append(d.checks, handler.DependencyCheck{
			Name:  "places_cache",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		d.log.Info().Str("addr", redisCfg.Addr).Msg("redis places cache connected")
		cache = places.NewRedisCache(client, "saferoute:places:")
	default:
		return nil, fmt.Errorf("unknown PLACES_CACHE %q", cfg.PlacesCache)
	}

	return places.NewCachedSearcher(places.CachedSearcherConfig{
		Searcher: searcher,
		Cache:    cache,
		Logger:   d.log,
	}), nil
}

func (d *dependencies) tripRepository(ctx context.Context, store string) (trip.Repository, error) {
	switch store {
	case "memory":
		d.log.Warn().Msg("using in-memory trip store - trips and feedback are lost on restart")
		return trip.NewInMemoryRepository(), nil

	case "postgres":
		dbCfg := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		d.onClose(pool.Close)
		repo := trip.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		d.checks = append(d.checks, handler.DependencyCheck{Name: "trip_store", Check: pool.Ping})
		d.log.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Str("database", dbCfg.Database).
			Msg("database connected")
		return repo, nil

	case "mongo":
		mongoCfg := database.MongoConfigFromEnv()
		db, err := database.ConnectMongo(ctx, mongoCfg)
		if err != nil {
			return nil, err
		}
		d.onClose(func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(disconnectCtx)
		})
		d.checks = append(d.checks, handler.DependencyCheck{
			Name:  "trip_store",
			Check: func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
		})
		d.log.Info().Str("database", mongoCfg.Database).Msg("mongodb connected")
		return trip.NewMongoRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown TRIP_STORE %q", store)
	}
}

func (d *dependencies) trainingNotifier(ctx context.Context, cfg mlConfig, runner ml.Runner) (trip.TrainingNotifier, error) {
	switch cfg.TrainingTransport {
	case "process":
		n := ml.NewProcessNotifier(ml.ProcessNotifierConfig{
			Runner:  runner,
			Logger:  d.log,
			Timeout: cfg.TrainTimeout,
		})
		d.onClose(n.Wait)
		return n, nil

	case "pubsub":
		n, err := ml.NewPubSubNotifier(ctx, ml.PubSubNotifierConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    d.log,
		})
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = n.Close() })
		d.log.Info().Str("topic", cfg.PubSubTopic).Msg("publishing training data to pubsub")
		return n, nil

	case "kafka":
		n, err := ml.NewKafkaNotifier(ml.KafkaNotifierConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  d.log,
		})
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = n.Close() })
		d.log.Info().Str("topic", cfg.KafkaTopic).Strs("brokers", cfg.KafkaBrokers).Msg("publishing training data to kafka")
		return n, nil

	default:
		return nil, fmt.Errorf("unknown ML_TRAINING_TRANSPORT %q", cfg.TrainingTransport)
	}
}

func mlScorer(runner ml.Runner, timeout time.Duration, registry *resilience.Registry, metrics *safety.Metrics, log zerolog.Logger) *ml.Scorer {
	return ml.NewScorer(ml.ScorerConfig{
		Runner:     runner,
		Timeout:    timeout,
		Logger:     log,
		Registry:   registry,
		OnFallback: metrics.RecordMLFallback,
	})
}
