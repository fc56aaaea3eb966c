// README: Risk feature extraction from a route, the wall clock and named contextual inputs.
package risk

import (
	"time"

	"ridesafe/internal/modules/route"
)

type Features struct {
	DistanceKm          float64 `json:"distance_km"`
	DurationMin         float64 `json:"duration_min"`
	IntersectionDensity float64 `json:"intersection_density"`
	IsNight             bool    `json:"is_night"`
	WeatherStressIndex  float64 `json:"weather_stress_index"`
	FatigueScore        float64 `json:"fatigue_score"`
	ShiftDurationHours  float64 `json:"shift_duration_hours"`
}

// Input supplies one contextual feature. Inputs must be pure: same route and
// time, same value.
type Input func(r route.Result, now time.Time) float64

// Static is an Input that ignores its arguments.
func Static(v float64) Input {
	return func(route.Result, time.Time) float64 { return v }
}

// Placeholder values used until real telemetry exists for each input.
const (
	PlaceholderIntersectionDensity = 1.5
	PlaceholderWeatherStress       = 0.5
	PlaceholderFatigueScore        = 3
	PlaceholderShiftHours          = 6
)

// Extractor holds the contextual inputs by name so each can be swapped for a
// real source without touching the rest of the pipeline.
type Extractor struct {
	IntersectionDensity Input
	WeatherStress       Input
	Fatigue             Input
	ShiftDuration       Input
	// Location is the rider's local zone for the night check. Nil keeps now's zone.
	Location *time.Location
}

func NewExtractor(loc *time.Location) Extractor {
	return Extractor{
		IntersectionDensity: Static(PlaceholderIntersectionDensity),
		WeatherStress:       Static(PlaceholderWeatherStress),
		Fatigue:             Static(PlaceholderFatigueScore),
		ShiftDuration:       Static(PlaceholderShiftHours),
		Location:            loc,
	}
}

func (x Extractor) Extract(r route.Result, now time.Time) Features {
	if x.Location != nil {
		now = now.In(x.Location)
	}
	return Features{
		DistanceKm:          r.DistanceKm,
		DurationMin:         r.DurationMin,
		IntersectionDensity: value(x.IntersectionDensity, PlaceholderIntersectionDensity, r, now),
		IsNight:             IsNight(now),
		WeatherStressIndex:  value(x.WeatherStress, PlaceholderWeatherStress, r, now),
		FatigueScore:        value(x.Fatigue, PlaceholderFatigueScore, r, now),
		ShiftDurationHours:  value(x.ShiftDuration, PlaceholderShiftHours, r, now),
	}
}

func value(in Input, def float64, r route.Result, now time.Time) float64 {
	if in == nil {
		return def
	}
	return in(r, now)
}

// IsNight reports whether t's local hour is in [19,24) or [0,6).
func IsNight(t time.Time) bool {
	h := t.Hour()
	return h >= 19 || h < 6
}
