package types

import (
	"math"
	"testing"
)

func TestCoordinateValid(t *testing.T) {
	cases := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"bengaluru", NewCoordinate(12.9716, 77.5946), true},
		{"north pole", NewCoordinate(90, 0), true},
		{"antimeridian", NewCoordinate(0, -180), true},
		{"lat too large", NewCoordinate(90.1, 0), false},
		{"lon too large", NewCoordinate(0, 180.5), false},
		{"swapped order", NewCoordinate(77.5946, 12.9716), true},
		{"swapped out of range", NewCoordinate(151.2, -33.8), false},
		{"nan", NewCoordinate(math.NaN(), 0), false},
		{"inf", NewCoordinate(0, math.Inf(1)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.Valid(); got != tc.want {
				t.Errorf("Valid(%v) = %v, want %v", tc.c, got, tc.want)
			}
		})
	}
}

func TestDistanceKm(t *testing.T) {
	a := NewCoordinate(12.9716, 77.5946)
	b := NewCoordinate(12.9816, 77.6046)
	d := a.DistanceKm(b)
	if d < 1.4 || d > 1.7 {
		t.Errorf("DistanceKm = %f, want about 1.55", d)
	}
	if a.DistanceKm(a) != 0 {
		t.Errorf("distance to self should be zero")
	}
}

func TestCoordinateString(t *testing.T) {
	c := NewCoordinate(12.9716, 77.5946)
	if got := c.String(); got != "12.971600,77.594600" {
		t.Errorf("String() = %q", got)
	}
	if got := c.Label(); got != "12.971600, 77.594600" {
		t.Errorf("Label() = %q", got)
	}
	if got := NewCoordinate(-33.8688, 151.2093).Label(); got != "-33.868800, 151.209300" {
		t.Errorf("Label() = %q", got)
	}
}
