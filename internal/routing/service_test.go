package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/provider"
)

type fakeDirections struct {
	mu    sync.Mutex
	resp  *DirectionsResponse
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeDirections) GetDirections(_ context.Context, _ DirectionsRequest) (*DirectionsResponse, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeDirections) Name() string { return "google-directions" }

func (f *fakeDirections) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func annaSalai() *DirectionsResponse {
	return &DirectionsResponse{
		Provider: "google-directions",
		Routes: []Route{{
			Summary: "Anna Salai",
			Legs: []Leg{{
				Distance: &TextValue{Text: "12.3 km", Value: 12345},
				Steps:    []Step{{HTMLInstructions: "Head <b>north</b> on Mount Road"}},
			}},
		}},
	}
}

var (
	chennaiCentral = geo.LatLng{Lat: 13.08268, Lng: 80.27072}
	ambattur       = geo.LatLng{Lat: 13.09824, Lng: 80.16143}
)

func walk() DirectionsRequest {
	return DirectionsRequest{Origin: chennaiCentral, Destination: ambattur, Mode: ModeWalking, Alternatives: true}
}

func newTestService(p Provider, c *clock) *Service {
	return NewService(ServiceConfig{Provider: p, Logger: zerolog.Nop(), Now: c.now})
}

func TestService_CachesFreshResponses(t *testing.T) {
	up := &fakeDirections{resp: annaSalai()}
	c := &clock{t: time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)}
	svc := newTestService(up, c)

	first, err := svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)
	require.Len(t, first.Routes, 1)
	assert.Equal(t, "Anna Salai", first.Routes[0].Summary)

	c.advance(time.Minute)
	second, err := svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), up.calls.Load())

	c.advance(90 * time.Second)
	_, err = svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.calls.Load(), "entry past FreshFor must be refetched")
}

func TestService_KeySnapsToGrid(t *testing.T) {
	up := &fakeDirections{resp: annaSalai()}
	svc := newTestService(up, &clock{t: time.Now()})

	req := walk()
	_, err := svc.GetDirections(context.Background(), req)
	require.NoError(t, err)

	// A few meters away lands in the same cell.
	req.Origin.Lat -= 0.00003
	_, err = svc.GetDirections(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.calls.Load())

	req.Origin.Lat += 0.001
	_, err = svc.GetDirections(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestService_ModeIsPartOfKey(t *testing.T) {
	up := &fakeDirections{resp: annaSalai()}
	svc := newTestService(up, &clock{t: time.Now()})

	drive := walk()
	drive.Mode = ModeDriving

	_, _ = svc.GetDirections(context.Background(), walk())
	_, _ = svc.GetDirections(context.Background(), drive)

	assert.Equal(t, int32(2), up.calls.Load())
	assert.Equal(t, "walking:13.0826,80.2707:13.0982,80.1614", svc.key(walk()))
	assert.Equal(t, "driving:13.0826,80.2707:13.0982,80.1614", svc.key(drive))
}

func TestService_StaleIfError(t *testing.T) {
	up := &fakeDirections{resp: annaSalai()}
	c := &clock{t: time.Now()}
	svc := newTestService(up, c)

	cached, err := svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)

	upstreamErr := errors.New("maps unavailable")
	up.fail(upstreamErr)

	c.advance(5 * time.Minute)
	got, err := svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)
	assert.Same(t, cached, got)

	c.advance(6 * time.Minute)
	_, err = svc.GetDirections(context.Background(), walk())
	assert.ErrorIs(t, err, upstreamErr)
}

func TestService_ErrorWithoutCache(t *testing.T) {
	upstreamErr := errors.New("REQUEST_DENIED")
	svc := newTestService(&fakeDirections{err: upstreamErr}, &clock{t: time.Now()})

	_, err := svc.GetDirections(context.Background(), walk())
	assert.ErrorIs(t, err, upstreamErr)
}

func TestService_EmptyResultNotCached(t *testing.T) {
	up := &fakeDirections{resp: &DirectionsResponse{Provider: "google-directions"}}
	svc := newTestService(up, &clock{t: time.Now()})

	for i := 0; i < 2; i++ {
		_, err := svc.GetDirections(context.Background(), walk())
		require.ErrorIs(t, err, ErrNoRouteFound)
	}
	assert.Equal(t, int32(2), up.calls.Load())
	assert.Empty(t, svc.entries)
}

func TestService_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*DirectionsRequest)
		wantCode string
	}{
		{"origin latitude", func(r *DirectionsRequest) { r.Origin.Lat = 91 }, "INVALID_ORIGIN"},
		{"origin longitude", func(r *DirectionsRequest) { r.Origin.Lng = -181 }, "INVALID_ORIGIN"},
		{"destination", func(r *DirectionsRequest) { r.Destination.Lat = -95 }, "INVALID_DESTINATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeDirections{resp: annaSalai()}
			svc := newTestService(up, &clock{t: time.Now()})
			req := walk()
			tt.mutate(&req)

			_, err := svc.GetDirections(context.Background(), req)

			require.ErrorIs(t, err, ErrInvalidCoordinates)
			var perr *provider.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantCode, perr.Code)
			assert.Zero(t, up.calls.Load())
		})
	}
}

func TestService_ConcurrentMissesShareOneCall(t *testing.T) {
	up := &fakeDirections{resp: annaSalai(), delay: 50 * time.Millisecond}
	svc := NewService(ServiceConfig{Provider: up, Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.GetDirections(context.Background(), walk())
			assert.NoError(t, err)
			assert.Len(t, resp.Routes, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
}

func TestService_SweepsExpiredEntries(t *testing.T) {
	up := &fakeDirections{resp: annaSalai()}
	c := &clock{t: time.Now()}
	svc := newTestService(up, c)

	_, err := svc.GetDirections(context.Background(), walk())
	require.NoError(t, err)

	c.advance(11 * time.Minute)
	drive := walk()
	drive.Mode = ModeDriving
	_, err = svc.GetDirections(context.Background(), drive)
	require.NoError(t, err)

	require.Len(t, svc.entries, 1)
	_, kept := svc.entries[svc.key(drive)]
	assert.True(t, kept)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(ServiceConfig{Provider: &fakeDirections{}})
	assert.Equal(t, 2*time.Minute, svc.freshFor)
	assert.Equal(t, 10*time.Minute, svc.staleIfError)
	assert.InDelta(t, 0.0001, svc.precision, 1e-12)
	assert.Equal(t, "google-directions", svc.Name())

	long := NewService(ServiceConfig{Provider: &fakeDirections{}, FreshFor: time.Hour})
	assert.Equal(t, time.Hour, long.staleIfError)
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeDriving, ModeFor("two-wheeler"))
	for _, m := range []string{"walking", "car", "Two-Wheeler", ""} {
		assert.Equal(t, ModeWalking, ModeFor(m), m)
	}
}

func TestRoute_Steps(t *testing.T) {
	assert.Nil(t, Route{}.Steps())

	r := Route{Legs: []Leg{
		{Steps: []Step{{HTMLInstructions: "a"}, {HTMLInstructions: "b"}}},
		{Steps: []Step{{HTMLInstructions: "c"}}},
	}}
	assert.Len(t, r.Steps(), 2, "only the first leg is scored")
}
