// README: Shared value types: identifiers and WGS84 coordinates in lat/lon order.
package types

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

type ID string

// Coordinate is a WGS84 position. Latitude always comes first; wire formats
// that use lon,lat must be converted at the adapter boundary.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon}
}

// Valid reports whether the coordinate is finite and inside -90..90 / -180..180.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.LatLng().IsValid()
}

func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

// DistanceKm is the great-circle distance to other.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	const earthRadiusKm = 6371.0088
	return c.LatLng().Distance(other.LatLng()).Radians() * earthRadiusKm
}

// String renders "lat,lon" with six decimals, the form routing APIs take.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Label renders "lat, lon" with six decimals. Stored incident locations use
// this form.
func (c Coordinate) Label() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}
