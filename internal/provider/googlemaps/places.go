package googlemaps

import (
	"context"
	"net/url"
	"strconv"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/places"
)

var _ places.Provider = (*Client)(nil)

type geometry struct {
	Location geo.LatLng `json:"location"`
}

type nearbyResponse struct {
	Results []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Geometry geometry `json:"geometry"`
		Types    []string `json:"types"`
	} `json:"results"`
}

type autocompleteResponse struct {
	Predictions []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

type detailsResponse struct {
	Result *struct {
		PlaceID          string    `json:"place_id"`
		Name             string    `json:"name"`
		FormattedAddress string    `json:"formatted_address"`
		Geometry         *geometry `json:"geometry"`
	} `json:"result"`
}

// NearbySearch lists places within a radius. Only the first result page is
// read; callers count results, so paging would only add latency.
func (c *Client) NearbySearch(ctx context.Context, req places.NearbyRequest) ([]places.Place, error) {
	params := url.Values{}
	params.Set("location", req.Location.String())
	params.Set("radius", strconv.Itoa(req.RadiusMeters))
	if req.OpenNow {
		params.Set("opennow", "true")
	}

	var resp nearbyResponse
	if err := c.get(ctx, "nearby_search", "place/nearbysearch", params, &resp); err != nil {
		return nil, err
	}

	out := make([]places.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, places.Place{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Location: r.Geometry.Location,
			Types:    r.Types,
		})
	}
	return out, nil
}

// Autocomplete returns suggestions restricted to the configured country.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]places.Prediction, error) {
	params := url.Values{}
	params.Set("input", input)
	params.Set("components", "country:"+c.country)

	var resp autocompleteResponse
	if err := c.get(ctx, "autocomplete", "place/autocomplete", params, &resp); err != nil {
		return nil, err
	}

	out := make([]places.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, places.Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

// Details fetches a place by id. A missing result maps to provider.ErrNotFound.
func (c *Client) Details(ctx context.Context, placeID string) (*places.Details, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,geometry")

	var resp detailsResponse
	if err := c.get(ctx, "place_details", "place/details", params, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil || resp.Result.Geometry == nil {
		return nil, notFound("place_details", placeID)
	}

	return &places.Details{
		PlaceID:          resp.Result.PlaceID,
		Name:             resp.Result.Name,
		FormattedAddress: resp.Result.FormattedAddress,
		Location:         resp.Result.Geometry.Location,
	}, nil
}
