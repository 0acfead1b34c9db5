package googlemaps

import (
	"context"
	"net/url"
	"time"

	"github.com/saferoute/saferoute/internal/routing"
)

type directionsResponse struct {
	Routes []routing.Route `json:"routes"`
}

var _ routing.Provider = (*Client)(nil)

// GetDirections fetches route alternatives between two points.
// ZERO_RESULTS yields an empty route list.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = routing.ModeWalking
	}

	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())
	params.Set("mode", string(mode))
	if req.Alternatives {
		params.Set("alternatives", "true")
	}

	c.logger.Debug().
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Str("mode", string(mode)).
		Msg("requesting directions from google maps")

	var resp directionsResponse
	if err := c.get(ctx, "directions", "directions", params, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("route_count", len(resp.Routes)).
		Msg("received directions from google maps")

	return &routing.DirectionsResponse{
		Routes:    resp.Routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}, nil
}
