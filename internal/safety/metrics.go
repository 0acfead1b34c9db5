package safety

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/saferoute/saferoute/internal/safety"

// Metrics holds the scoring instruments.
type Metrics struct {
	segmentsScored metric.Int64Counter
	mlFallbacks    metric.Int64Counter
	placeFailures  metric.Int64Counter
	routeScore     metric.Int64Histogram
}

// NewMetrics creates the scoring instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	segmentsScored, err := meter.Int64Counter(
		"safety.segments.scored",
		metric.WithDescription("Number of route segments scored"),
		metric.WithUnit("{segment}"),
	)
	if err != nil {
		return nil, err
	}

	mlFallbacks, err := meter.Int64Counter(
		"safety.ml.fallbacks",
		metric.WithDescription("Predict batches answered with the fallback score"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	placeFailures, err := meter.Int64Counter(
		"safety.places.failures",
		metric.WithDescription("Segments whose place lookup failed"),
		metric.WithUnit("{segment}"),
	)
	if err != nil {
		return nil, err
	}

	routeScore, err := meter.Int64Histogram(
		"safety.route.score",
		metric.WithDescription("Distribution of route safety scores"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		segmentsScored: segmentsScored,
		mlFallbacks:    mlFallbacks,
		placeFailures:  placeFailures,
		routeScore:     routeScore,
	}, nil
}

// RecordRoute records one scored route. Safe on a nil receiver.
func (m *Metrics) RecordRoute(ctx context.Context, mode string, rs RouteSafety) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("travel.mode", mode))
	m.segmentsScored.Add(ctx, int64(len(rs.Segments)), attrs)
	m.routeScore.Record(ctx, int64(rs.RouteSafetyScore), attrs)
}

// RecordMLFallback counts a predict batch that fell back. Safe on a nil receiver.
func (m *Metrics) RecordMLFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.mlFallbacks.Add(ctx, 1)
}

// RecordPlacesFailure counts a failed place lookup. Safe on a nil receiver.
func (m *Metrics) RecordPlacesFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.placeFailures.Add(ctx, 1)
}
