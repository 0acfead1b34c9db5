package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/provider"
)

// ErrBillingRequired is returned by Geocode when billing is disabled upstream
// and the address has no fallback entry.
var ErrBillingRequired = errors.New("places provider requires billing to be enabled; " +
	"fallback coordinates exist for avadi, ambattur, chennai and bangalore")

type fallbackLocation struct {
	location geo.LatLng
	address  string
}

// fallbackLocations resolve common addresses while billing is disabled.
var fallbackLocations = map[string]fallbackLocation{
	"avadi":     {geo.LatLng{Lat: 13.1157, Lng: 80.1018}, "Avadi, Chennai, Tamil Nadu, India"},
	"ambattur":  {geo.LatLng{Lat: 13.0982, Lng: 80.1614}, "Ambattur, Chennai, Tamil Nadu, India"},
	"chennai":   {geo.LatLng{Lat: 13.0827, Lng: 80.2707}, "Chennai, Tamil Nadu, India"},
	"bangalore": {geo.LatLng{Lat: 12.9716, Lng: 77.5946}, "Bangalore, Karnataka, India"},
}

// ServiceConfig holds configuration for the places service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Service serves place lookups for the search box.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new places service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{provider: cfg.Provider, logger: cfg.Logger, now: now}
}

// Autocomplete returns suggestions for a partial address.
func (s *Service) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	predictions, err := s.provider.Autocomplete(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Str("input", input).Msg("autocomplete failed")
		return nil, err
	}
	return predictions, nil
}

// Details returns a place by id.
func (s *Service) Details(ctx context.Context, placeID string) (*Details, error) {
	details, err := s.provider.Details(ctx, placeID)
	if err != nil {
		s.logger.Error().Err(err).Str("place_id", placeID).Msg("place details failed")
		return nil, err
	}
	return details, nil
}

// Geocode resolves an address to coordinates using the first autocomplete
// prediction and its details. Returns ErrNoResults when nothing matches.
func (s *Service) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	result, err := s.geocode(ctx, address)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, provider.ErrBillingDisabled) {
		key := strings.ToLower(strings.TrimSpace(address))
		if fb, ok := fallbackLocations[key]; ok {
			s.logger.Warn().Str("address", address).Msg("billing not enabled, using fallback coordinates")
			return &GeocodeResult{
				PlaceID:     fmt.Sprintf("fallback_%s_%d", key, s.now().UnixMilli()),
				Description: fb.address,
				Location:    fb.location,
				Fallback:    true,
			}, nil
		}
		s.logger.Error().Err(err).Str("address", address).Msg("geocoding needs billing and no fallback exists")
		return nil, fmt.Errorf("%w: %w", ErrBillingRequired, err)
	}

	if !errors.Is(err, ErrNoResults) {
		s.logger.Error().Err(err).Str("address", address).Msg("geocoding failed")
	}
	return nil, err
}

func (s *Service) geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	predictions, err := s.provider.Autocomplete(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, ErrNoResults
	}

	first := predictions[0]
	details, err := s.provider.Details(ctx, first.PlaceID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, ErrNoResults
		}
		return nil, err
	}
	if details == nil {
		return nil, ErrNoResults
	}

	description := details.FormattedAddress
	if description == "" {
		description = first.Description
	}
	placeID := details.PlaceID
	if placeID == "" {
		placeID = first.PlaceID
	}

	return &GeocodeResult{
		PlaceID:     placeID,
		Description: description,
		Location:    details.Location,
	}, nil
}
