package safety

import "time"

// Time-of-day factors.
const (
	DayFactor     = 1.0
	EveningFactor = 0.7
	NightFactor   = 0.4
)

// TimeFactor maps the hour of now, in now's location, to a factor:
// [6,18) is day, [18,22) is evening, anything else is night.
func TimeFactor(now time.Time) float64 {
	switch h := now.Hour(); {
	case h >= 6 && h < 18:
		return DayFactor
	case h >= 18 && h < 22:
		return EveningFactor
	default:
		return NightFactor
	}
}
