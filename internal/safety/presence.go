package safety

import (
	"context"

	"github.com/saferoute/saferoute/internal/geo"
)

// PresenceSource reports how many travellers are currently near a point.
type PresenceSource interface {
	ActiveUsers(ctx context.Context, loc geo.LatLng) int
}

// NoPresence reports zero active users everywhere. No live presence feed
// exists yet.
type NoPresence struct{}

// ActiveUsers implements PresenceSource.
func (NoPresence) ActiveUsers(context.Context, geo.LatLng) int { return 0 }
