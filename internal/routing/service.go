package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/provider"
)

const (
	defaultFreshFor     = 2 * time.Minute
	defaultStaleIfError = 10 * time.Minute
	// About 11m at Chennai's latitude.
	defaultPrecision = 0.0001
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// FreshFor is how long a response is reused without asking the provider.
	FreshFor time.Duration
	// StaleIfError is how long after fetching a response may still stand in
	// for a failed provider call. Entries older than this are swept.
	StaleIfError time.Duration
	// Precision is the grid, in degrees, that origin and destination are
	// snapped to before keying the cache.
	Precision float64

	Now func() time.Time
}

// Service puts a small stale-if-error cache in front of a directions
// provider. Concurrent misses for one key share a single upstream call.
type Service struct {
	provider     Provider
	logger       zerolog.Logger
	freshFor     time.Duration
	staleIfError time.Duration
	precision    float64
	now          func() time.Time

	flight singleflight.Group

	mu        sync.RWMutex
	entries   map[string]cacheEntry
	lastSweep time.Time
}

type cacheEntry struct {
	resp     *DirectionsResponse
	storedAt time.Time
}

// NewService creates a routing service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:     cfg.Provider,
		logger:       cfg.Logger,
		freshFor:     cfg.FreshFor,
		staleIfError: cfg.StaleIfError,
		precision:    cfg.Precision,
		now:          cfg.Now,
		entries:      make(map[string]cacheEntry),
	}
	if s.freshFor <= 0 {
		s.freshFor = defaultFreshFor
	}
	if s.staleIfError <= 0 {
		s.staleIfError = defaultStaleIfError
	}
	if s.staleIfError < s.freshFor {
		s.staleIfError = s.freshFor
	}
	if s.precision <= 0 {
		s.precision = defaultPrecision
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Name reports the wrapped provider, so the service can stand in for it.
func (s *Service) Name() string {
	return s.provider.Name()
}

var _ Provider = (*Service)(nil)

// GetDirections returns the alternatives between two points. An empty
// result is ErrNoRouteFound and is never cached.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := s.key(req)
	if e, ok := s.lookup(key); ok && s.age(e) < s.freshFor {
		s.logger.Debug().Str("cache_key", key).Msg("directions cache hit")
		return e.resp, nil
	}

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.fetch(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("cache_key", key).Msg("joined in-flight directions fetch")
	}

	resp := v.(*DirectionsResponse)
	if len(resp.Routes) == 0 {
		return nil, ErrNoRouteFound
	}
	return resp, nil
}

func (s *Service) validate(req DirectionsRequest) error {
	check := func(p geo.LatLng, code, which string) error {
		if p.Valid() {
			return nil
		}
		return &provider.Error{
			Provider:  s.provider.Name(),
			Operation: "directions",
			Code:      code,
			Message:   "invalid " + which + " coordinates",
			Err:       ErrInvalidCoordinates,
		}
	}
	if err := check(req.Origin, "INVALID_ORIGIN", "origin"); err != nil {
		return err
	}
	return check(req.Destination, "INVALID_DESTINATION", "destination")
}

func (s *Service) fetch(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	log := s.logger.With().
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Str("mode", string(req.Mode)).
		Logger()

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		if e, ok := s.lookup(key); ok && s.age(e) < s.staleIfError {
			log.Warn().Err(err).
				Time("fetched_at", e.storedAt).
				Msg("directions provider failed, serving stale routes")
			return e.resp, nil
		}
		log.Error().Err(err).Msg("directions provider failed")
		return nil, err
	}

	if len(resp.Routes) > 0 {
		s.store(key, resp)
		log.Debug().Int("routes", len(resp.Routes)).Msg("directions cached")
	}
	return resp, nil
}

// key is {mode}:{origin cell}:{destination cell}.
func (s *Service) key(req DirectionsRequest) string {
	o := req.Origin.Snap(s.precision)
	d := req.Destination.Snap(s.precision)
	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f", req.Mode, o.Lat, o.Lng, d.Lat, d.Lng)
}

func (s *Service) age(e cacheEntry) time.Duration {
	return s.now().Sub(e.storedAt)
}

func (s *Service) lookup(key string) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// store saves resp and, at most once per stale window, drops entries too
// old to serve even on error.
func (s *Service) store(key string, resp *DirectionsResponse) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{resp: resp, storedAt: now}

	if now.Sub(s.lastSweep) < s.staleIfError {
		return
	}
	s.lastSweep = now
	swept := 0
	for k, e := range s.entries {
		if now.Sub(e.storedAt) >= s.staleIfError {
			delete(s.entries, k)
			swept++
		}
	}
	if swept > 0 {
		s.logger.Debug().Int("swept", swept).Msg("expired directions dropped")
	}
}
