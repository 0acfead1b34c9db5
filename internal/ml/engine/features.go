package engine

import (
	"strings"
	"time"
)

// Feature values for unknown or missing inputs.
const neutral = 0.5

var lightingValues = map[string]float64{
	"well-lit": 1.0,
	"partial":  0.5,
	"poor":     0.0,
}

var activityValues = map[string]float64{
	"busy":     1.0,
	"moderate": 0.5,
	"isolated": 0.0,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// Encode maps a context to the feature vector [lighting, activity, time].
func Encode(c Context) []float64 {
	lighting, ok := lightingValues[c.Lighting]
	if !ok {
		lighting = neutral
	}
	activity, ok := activityValues[c.Activity]
	if !ok {
		activity = neutral
	}
	return []float64{lighting, activity, timeFeature(c.Timestamp)}
}

// timeFeature scores the hour of an ISO timestamp: day 1, evening 0.5,
// night 0. A value without a 'T' is treated as midday; anything
// unparseable is neutral.
func timeFeature(ts string) float64 {
	if ts == "" {
		return neutral
	}

	hour := 12
	if strings.Contains(ts, "T") {
		t, ok := parseTimestamp(ts)
		if !ok {
			return neutral
		}
		hour = t.Hour()
	}

	switch {
	case hour >= 6 && hour < 18:
		return 1.0
	case hour >= 18 && hour < 22:
		return 0.5
	default:
		return 0.0
	}
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
