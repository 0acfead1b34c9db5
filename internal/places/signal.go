package places

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saferoute/saferoute/internal/geo"
)

const (
	// DefaultRadius is used when a step has no distance.
	DefaultRadius = 100
	// MinRadius and MaxRadius bound the search radius in meters.
	MinRadius = 50
	MaxRadius = 300

	defaultQueryTimeout = 5 * time.Second
)

// SearchRadius derives the search radius for a step of the given length:
// half the distance, rounded, or DefaultRadius when that is zero, then
// clamped to [MinRadius, MaxRadius].
func SearchRadius(distanceMeters float64) int {
	if math.IsNaN(distanceMeters) || math.IsInf(distanceMeters, 0) {
		return DefaultRadius
	}
	r := int(math.Round(distanceMeters / 2))
	if r == 0 {
		r = DefaultRadius
	}
	if r > MaxRadius {
		r = MaxRadius
	}
	if r < MinRadius {
		r = MinRadius
	}
	return r
}

// SignalFetcherConfig configures a SignalFetcher.
type SignalFetcherConfig struct {
	Searcher Searcher
	Logger   zerolog.Logger

	// QueryTimeout bounds each nearby search (default: 5s).
	QueryTimeout time.Duration

	// OnFailure is called once per failed fetch. Optional.
	OnFailure func(ctx context.Context)
}

// SignalFetcher turns nearby searches into POI and open-business counts.
type SignalFetcher struct {
	searcher  Searcher
	logger    zerolog.Logger
	timeout   time.Duration
	onFailure func(ctx context.Context)
}

// NewSignalFetcher creates a SignalFetcher.
func NewSignalFetcher(cfg SignalFetcherConfig) *SignalFetcher {
	timeout := cfg.QueryTimeout
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	return &SignalFetcher{
		searcher:  cfg.Searcher,
		logger:    cfg.Logger,
		timeout:   timeout,
		onFailure: cfg.OnFailure,
	}
}

// FetchSignals runs an unfiltered and an open-now search at loc. The counts
// are the result list lengths. If either search fails or times out both
// counts are zero; the error is logged and never returned.
func (f *SignalFetcher) FetchSignals(ctx context.Context, loc geo.LatLng, distanceMeters float64) Signal {
	radius := SearchRadius(distanceMeters)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var all, open []Place
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = f.searcher.NearbySearch(gctx, NearbyRequest{Location: loc, RadiusMeters: radius})
		return err
	})
	g.Go(func() error {
		var err error
		open, err = f.searcher.NearbySearch(gctx, NearbyRequest{Location: loc, RadiusMeters: radius, OpenNow: true})
		return err
	})

	if err := g.Wait(); err != nil {
		f.logger.Warn().Err(err).
			Str("location", loc.String()).
			Int("radius", radius).
			Msg("place signal lookup failed, using zero counts")
		if f.onFailure != nil {
			f.onFailure(ctx)
		}
		return Signal{}
	}

	return Signal{POICount: len(all), OpenPlaces: len(open)}
}
