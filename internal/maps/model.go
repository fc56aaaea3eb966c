// README: Wire-neutral results shared by the geocoding and routing adapters.
package maps

import (
	"errors"

	"ridesafe/internal/types"
)

// ErrNoRoute is returned when a routing backend answers successfully but has
// no path between the two points.
var ErrNoRoute = errors.New("no route between points")

// Place is one geocoding hit.
type Place struct {
	Name       string           `json:"name"`
	Coordinate types.Coordinate `json:"coordinate"`
}

// Path is one routing alternative. Points are always in lat,lon order,
// whatever order the backend used on the wire.
type Path struct {
	DistanceMeters  float64
	DurationSeconds float64
	Points          []types.Coordinate
}
