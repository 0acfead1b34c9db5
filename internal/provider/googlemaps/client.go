// Package googlemaps provides a client for the Google Maps Directions and
// Places web services.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in errors, logs and the registry.
	ProviderName = "google-maps"

	// DefaultBaseURL is the Google Maps web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultCountry restricts autocomplete suggestions.
	DefaultCountry = "in"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Google web service status values.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusRequestDenied  = "REQUEST_DENIED"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusInvalidRequest = "INVALID_REQUEST"
	statusNotFound       = "NOT_FOUND"
	statusMaxRouteLength = "MAX_ROUTE_LENGTH_EXCEEDED"
)

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Google Maps API key. Calls fail with
	// provider.ErrAuthentication when it is empty.
	APIKey string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// Country restricts autocomplete (default: "in").
	Country string

	// HTTPClient overrides the resilient client built from Timeout and Registry.
	HTTPClient resilience.HTTPDoer

	Timeout  time.Duration
	Registry *resilience.Registry
	Logger   zerolog.Logger
}

// Client is a Google Maps API client. It implements routing.Provider and
// places.Provider.
type Client struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Maps client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	country := cfg.Country
	if country == "" {
		country = DefaultCountry
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		country:    country,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// statusEnvelope is embedded in every web service response.
type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// get calls {baseURL}/{path}/json with params plus the key and decodes the
// body into out. Non-OK statuses are mapped to provider errors; ZERO_RESULTS
// is not an error.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return &provider.Error{
			Provider:  ProviderName,
			Operation: operation,
			Code:      "MISSING_KEY",
			Message:   "GOOGLE_MAPS_API_KEY is not configured",
			Err:       provider.ErrAuthentication,
		}
	}

	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/%s/json?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.Error{
			Provider:  ProviderName,
			Operation: operation,
			Code:      "REQUEST_FAILED",
			Message:   "failed to reach Google Maps",
			Err:       fmt.Errorf("%w: %w", provider.ErrUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &provider.Error{
			Provider:  ProviderName,
			Operation: operation,
			Code:      fmt.Sprintf("SERVER_%d", resp.StatusCode),
			Message:   "Google Maps is temporarily unavailable",
			Err:       provider.ErrUnavailable,
		}
	}

	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &provider.Error{
			Provider:  ProviderName,
			Operation: operation,
			Code:      fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:   "undecodable response",
			Err:       fmt.Errorf("%w: %w", provider.ErrUnavailable, err),
		}
	}

	if err := statusError(operation, env); err != nil {
		c.logger.Warn().
			Str("operation", operation).
			Str("status", env.Status).
			Str("error_message", env.ErrorMessage).
			Msg("google maps returned an error status")
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", operation, err)
	}
	return nil
}

// statusError maps a web service status to a provider error.
func statusError(operation string, env statusEnvelope) error {
	var sentinel error
	switch env.Status {
	case statusOK, statusZeroResults:
		return nil
	case statusRequestDenied:
		sentinel = provider.ErrAuthentication
		if strings.Contains(strings.ToLower(env.ErrorMessage), "billing") {
			sentinel = provider.ErrBillingDisabled
		}
	case statusOverQueryLimit:
		sentinel = provider.ErrRateLimited
	case statusInvalidRequest, statusMaxRouteLength:
		sentinel = provider.ErrInvalidRequest
	case statusNotFound:
		sentinel = provider.ErrNotFound
	default:
		sentinel = provider.ErrUnavailable
	}

	msg := env.ErrorMessage
	if msg == "" {
		msg = "request failed with status " + env.Status
	}
	return &provider.Error{
		Provider:  ProviderName,
		Operation: operation,
		Code:      env.Status,
		Message:   msg,
		Err:       sentinel,
	}
}

func notFound(operation, id string) error {
	return &provider.Error{
		Provider:  ProviderName,
		Operation: operation,
		Code:      statusNotFound,
		Message:   "no result for " + id,
		Err:       provider.ErrNotFound,
	}
}
