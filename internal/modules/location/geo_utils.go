// Package location: geo_utils holds pure geographic helpers for fix plausibility.
package location

import "time"

// maxPlausibleSpeedKmh bounds the implied speed between two consecutive fixes.
// Anything faster is GPS noise for a two-wheeler.
const maxPlausibleSpeedKmh = 200.0

// speedKmh returns the speed implied by moving from prev to next. A
// non-positive interval yields 0 so that duplicate timestamps never reject.
func speedKmh(prev, next Fix) float64 {
	dt := next.RecordedAt.Sub(prev.RecordedAt)
	if dt <= 0 {
		return 0
	}
	return prev.Position.DistanceKm(next.Position) / dt.Hours()
}

func plausible(prev, next Fix) bool {
	if prev.Permission == PermissionDenied || prev.RecordedAt.IsZero() {
		return true
	}
	// a rider who waited long enough can be anywhere
	if next.RecordedAt.Sub(prev.RecordedAt) > time.Hour {
		return true
	}
	return speedKmh(prev, next) <= maxPlausibleSpeedKmh
}
