package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/places"
	"github.com/saferoute/saferoute/internal/provider"
	"github.com/saferoute/saferoute/internal/routing"
)

// mockHTTPClient forwards to the test server without retries or breaking.
type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

type mockFailingClient struct{}

func (m *mockFailingClient) Do(_ *http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	body, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return body
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})
}

func statusServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

var chennaiRequest = routing.DirectionsRequest{
	Origin:       geo.LatLng{Lat: 13.08, Lng: 80.27},
	Destination:  geo.LatLng{Lat: 13.09, Lng: 80.28},
	Mode:         routing.ModeWalking,
	Alternatives: true,
}

func TestClient_GetDirections_Success(t *testing.T) {
	respBody := fixture(t, "directions_response.json")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/directions/json" {
			t.Errorf("expected path /directions/json, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "mock123" {
			t.Errorf("expected key 'mock123', got '%s'", q.Get("key"))
		}
		if q.Get("origin") != "13.080000,80.270000" {
			t.Errorf("unexpected origin %s", q.Get("origin"))
		}
		if q.Get("mode") != "walking" {
			t.Errorf("expected walking mode, got %s", q.Get("mode"))
		}
		if q.Get("alternatives") != "true" {
			t.Errorf("expected alternatives=true, got %s", q.Get("alternatives"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	resp, err := newTestClient(server).GetDirections(context.Background(), chennaiRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Provider != ProviderName {
		t.Errorf("expected provider %s, got %s", ProviderName, resp.Provider)
	}
	if len(resp.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(resp.Routes))
	}

	route := resp.Routes[0]
	if route.Summary != "Mint St" {
		t.Errorf("expected summary 'Mint St', got '%s'", route.Summary)
	}
	if route.Legs[0].Distance == nil || route.Legs[0].Distance.Text != "1.6 km" {
		t.Errorf("expected leg distance '1.6 km', got %+v", route.Legs[0].Distance)
	}

	steps := route.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[1].HTMLInstructions != "Turn <b>right</b> onto <b>Mint Street</b>" {
		t.Errorf("unexpected instruction %q", steps[1].HTMLInstructions)
	}
	if steps[1].Distance.Value != 1211 {
		t.Errorf("expected step distance 1211, got %d", steps[1].Distance.Value)
	}
	if steps[1].StartLocation != (geo.LatLng{Lat: 13.0837, Lng: 80.2712}) {
		t.Errorf("unexpected start location %+v", steps[1].StartLocation)
	}
	if steps[1].Maneuver != "turn-right" {
		t.Errorf("expected maneuver turn-right, got %s", steps[1].Maneuver)
	}
}

func TestClient_GetDirections_DrivingMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") != "driving" {
			t.Errorf("expected driving mode, got %s", r.URL.Query().Get("mode"))
		}
		_, _ = w.Write([]byte(`{"routes":[],"status":"ZERO_RESULTS"}`))
	}))
	defer server.Close()

	req := chennaiRequest
	req.Mode = routing.ModeFor(routing.TwoWheeler)

	resp, err := newTestClient(server).GetDirections(context.Background(), req)
	if err != nil {
		t.Fatalf("ZERO_RESULTS should not be an error: %v", err)
	}
	if len(resp.Routes) != 0 {
		t.Errorf("expected no routes, got %d", len(resp.Routes))
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"request denied", `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, provider.ErrAuthentication},
		{"billing", `{"status":"REQUEST_DENIED","error_message":"You must enable Billing on the Google Cloud Project"}`, provider.ErrBillingDisabled},
		{"quota", `{"status":"OVER_QUERY_LIMIT"}`, provider.ErrRateLimited},
		{"invalid", `{"status":"INVALID_REQUEST"}`, provider.ErrInvalidRequest},
		{"not found", `{"status":"NOT_FOUND"}`, provider.ErrNotFound},
		{"unknown", `{"status":"UNKNOWN_ERROR"}`, provider.ErrUnavailable},
		{"garbage", `<html>oops</html>`, provider.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := statusServer(tt.body)
			defer server.Close()

			_, err := newTestClient(server).GetDirections(context.Background(), chennaiRequest)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var providerErr *provider.Error
			if !errors.As(err, &providerErr) {
				t.Fatalf("expected provider.Error, got %T", err)
			}
			if providerErr.Provider != ProviderName {
				t.Errorf("expected provider %s, got %s", ProviderName, providerErr.Provider)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetDirections(context.Background(), chennaiRequest)
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient(ClientConfig{
		APIKey:     "mock123",
		HTTPClient: &mockFailingClient{},
		Logger:     zerolog.Nop(),
	})

	_, err := client.NearbySearch(context.Background(), places.NearbyRequest{RadiusMeters: 100})
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	var providerErr *provider.Error
	if errors.As(err, &providerErr) && !providerErr.IsRetryable() {
		t.Error("network errors should be retryable")
	}
}

func TestClient_MissingKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.Autocomplete(context.Background(), "avadi")
	if !errors.Is(err, provider.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
	if called {
		t.Error("no request should be sent without a key")
	}
}

func TestClient_NearbySearch(t *testing.T) {
	respBody := fixture(t, "nearby_response.json")

	var sawOpenNow []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/place/nearbysearch/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("radius") != "150" {
			t.Errorf("expected radius 150, got %s", r.URL.Query().Get("radius"))
		}
		sawOpenNow = append(sawOpenNow, r.URL.Query().Get("opennow"))
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	client := newTestClient(server)
	req := places.NearbyRequest{Location: geo.LatLng{Lat: 13.0827, Lng: 80.2707}, RadiusMeters: 150}

	results, err := client.NearbySearch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 places, got %d", len(results))
	}
	if results[0].Name != "Central Station" || results[0].Location.Lat != 13.0827 {
		t.Errorf("unexpected first place %+v", results[0])
	}

	req.OpenNow = true
	if _, err := client.NearbySearch(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sawOpenNow) != 2 || sawOpenNow[0] != "" || sawOpenNow[1] != "true" {
		t.Errorf("opennow should only be sent when requested, got %v", sawOpenNow)
	}
}

func TestClient_Autocomplete(t *testing.T) {
	respBody := fixture(t, "autocomplete_response.json")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("components") != "country:in" {
			t.Errorf("expected country:in restriction, got %s", r.URL.Query().Get("components"))
		}
		if r.URL.Query().Get("input") != "avadi" {
			t.Errorf("expected input avadi, got %s", r.URL.Query().Get("input"))
		}
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	preds, err := newTestClient(server).Autocomplete(context.Background(), "avadi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0].PlaceID != "ChIJavadi" || preds[0].MainText != "Avadi" {
		t.Errorf("unexpected prediction %+v", preds[0])
	}
}

func TestClient_Details(t *testing.T) {
	respBody := fixture(t, "details_response.json")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "ChIJavadi" {
			t.Errorf("unexpected place_id %s", r.URL.Query().Get("place_id"))
		}
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	d, err := newTestClient(server).Details(context.Background(), "ChIJavadi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FormattedAddress != "Avadi, Tamil Nadu 600054, India" {
		t.Errorf("unexpected address %s", d.FormattedAddress)
	}
	if d.Location != (geo.LatLng{Lat: 13.1067, Lng: 80.0970}) {
		t.Errorf("unexpected location %+v", d.Location)
	}
}

func TestClient_Details_NoResult(t *testing.T) {
	server := statusServer(`{"status":"OK"}`)
	defer server.Close()

	_, err := newTestClient(server).Details(context.Background(), "missing")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Name(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "test", Logger: zerolog.Nop()})
	if client.Name() != ProviderName {
		t.Errorf("expected name %s, got %s", ProviderName, client.Name())
	}
}
