// README: Rider position fixes as reported by the rider's device.
package location

import (
	"time"

	"ridesafe/internal/types"
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Fix is one device position report. A fix with PermissionDenied carries no
// usable position; it records that the rider declined location access.
type Fix struct {
	RiderID    types.ID         `json:"rider_id"`
	Position   types.Coordinate `json:"position"`
	AccuracyM  float64          `json:"accuracy_m,omitempty"`
	Permission Permission       `json:"permission"`
	RecordedAt time.Time        `json:"recorded_at"`
}
