package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores nearby search results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]Place, error)
	Set(ctx context.Context, key string, places []Place, ttl time.Duration) error
}

// MemoryCache is an in-process Cache with lazy expiry and periodic sweeps.
type MemoryCache struct {
	mu              sync.RWMutex
	entries         map[string]memoryEntry
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

type memoryEntry struct {
	places    []Place
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:         make(map[string]memoryEntry),
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
	}
}

// Get returns cached places for key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]Place, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return e.places, nil
}

// Set stores places under key for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, places []Place, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = memoryEntry{places: places, expiresAt: now.Add(ttl)}

	if now.Sub(c.lastCleanup) >= c.cleanupInterval {
		c.lastCleanup = now
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache is a Cache shared between API replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced by prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "places"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

// Get returns cached places for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]Place, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("decoding cached places: %w", err)
	}
	return places, nil
}

// Set stores places under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, places []Place, ttl time.Duration) error {
	data, err := json.Marshal(places)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// CachedSearcherConfig configures a CachedSearcher.
type CachedSearcherConfig struct {
	Searcher Searcher
	Cache    Cache
	Logger   zerolog.Logger

	// TTL for cached results (default: 10 minutes). Open-now results use a
	// fifth of it, since opening hours change through the day.
	TTL time.Duration

	// GridSize quantizes locations in degrees (default: 0.0005, about 55m).
	GridSize float64
}

// CachedSearcher puts a Cache in front of a Searcher. Cache errors are
// logged and fall through to the underlying searcher.
type CachedSearcher struct {
	searcher Searcher
	cache    Cache
	logger   zerolog.Logger
	ttl      time.Duration
	gridSize float64
}

// NewCachedSearcher creates a CachedSearcher.
func NewCachedSearcher(cfg CachedSearcherConfig) *CachedSearcher {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	grid := cfg.GridSize
	if grid == 0 {
		grid = 0.0005
	}
	return &CachedSearcher{
		searcher: cfg.Searcher,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		ttl:      ttl,
		gridSize: grid,
	}
}

var _ Searcher = (*CachedSearcher)(nil)

// NearbySearch returns cached results when present.
func (s *CachedSearcher) NearbySearch(ctx context.Context, req NearbyRequest) ([]Place, error) {
	key := s.cacheKey(req)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("places cache read failed")
	}

	places, err := s.searcher.NearbySearch(ctx, req)
	if err != nil {
		return nil, err
	}

	ttl := s.ttl
	if req.OpenNow {
		ttl /= 5
	}
	if err := s.cache.Set(ctx, key, places, ttl); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("places cache write failed")
	}
	return places, nil
}

// cacheKey formats nearby:{cell}:{radius}:{open}.
func (s *CachedSearcher) cacheKey(req NearbyRequest) string {
	cell := req.Location.Snap(s.gridSize)
	return fmt.Sprintf("nearby:%.4f,%.4f:%d:%t", cell.Lat, cell.Lng, req.RadiusMeters, req.OpenNow)
}
