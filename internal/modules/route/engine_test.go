package route

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"ridesafe/internal/maps"
	"ridesafe/internal/types"
)

type stubRouter struct {
	paths []maps.Path
	err   error
}

func (s stubRouter) Route(context.Context, types.Coordinate, types.Coordinate) ([]maps.Path, error) {
	return s.paths, s.err
}

var (
	origin = types.NewCoordinate(12.9716, 77.5946)
	dest   = types.NewCoordinate(12.9816, 77.6046)
)

func TestComputeOverOSRM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":3200,"duration":900,
			"geometry":{"type":"LineString","coordinates":[[77.5946,12.9716],[77.5990,12.9760],[77.6046,12.9816]]}}]}`))
	}))
	defer srv.Close()

	e := NewEngine(maps.NewOSRMRouter(srv.URL, "bike"))
	res, err := e.Compute(context.Background(), Query{Origin: origin, Destination: dest})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(res.DistanceKm-3.2) > 1e-9 {
		t.Errorf("distanceKm = %f, want 3.2", res.DistanceKm)
	}
	if math.Abs(res.DurationMin-15) > 1e-9 {
		t.Errorf("durationMin = %f, want 15", res.DurationMin)
	}
	if len(res.Polyline) != 3 {
		t.Fatalf("polyline len = %d", len(res.Polyline))
	}
	// wire order is lon,lat; the model must be lat,lon
	if res.Polyline[0] != origin || res.Polyline[2] != dest {
		t.Errorf("polyline endpoints = %v .. %v, want %v .. %v", res.Polyline[0], res.Polyline[2], origin, dest)
	}
	for _, p := range res.Polyline {
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			t.Errorf("point out of range: %v", p)
		}
	}
}

func TestComputePicksPrimaryRoute(t *testing.T) {
	e := NewEngine(stubRouter{paths: []maps.Path{
		{DistanceMeters: 1000, DurationSeconds: 120, Points: []types.Coordinate{origin, dest}},
		{DistanceMeters: 900, DurationSeconds: 60, Points: []types.Coordinate{origin, dest}},
	}})
	res, err := e.Compute(context.Background(), Query{Origin: origin, Destination: dest})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.DistanceKm != 1 || res.DurationMin != 2 {
		t.Errorf("got %v km / %v min, want the first route", res.DistanceKm, res.DurationMin)
	}
}

func TestComputeBoundingBox(t *testing.T) {
	e := NewEngine(stubRouter{paths: []maps.Path{{
		DistanceMeters: 10, DurationSeconds: 10,
		// the path swings outside the box; the box only frames the endpoints
		Points: []types.Coordinate{origin, types.NewCoordinate(13.5, 78.0), dest},
	}}})
	// destination south-west of origin
	res, err := e.Compute(context.Background(), Query{Origin: dest, Destination: origin})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := BoundingBox{SouthWest: origin, NorthEast: dest}
	if res.BoundingBox != want {
		t.Errorf("box = %+v, want %+v", res.BoundingBox, want)
	}
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name    string
		router  Router
		q       Query
		wantErr error
	}{
		{"no route", stubRouter{err: maps.ErrNoRoute}, Query{origin, dest}, ErrNoRouteFound},
		{"empty paths", stubRouter{}, Query{origin, dest}, ErrNoRouteFound},
		{"transport", stubRouter{err: errors.New("dial tcp: refused")}, Query{origin, dest}, ErrRoutingService},
		{"negative distance", stubRouter{paths: []maps.Path{{DistanceMeters: -1}}}, Query{origin, dest}, ErrRoutingService},
		{"nan duration", stubRouter{paths: []maps.Path{{DurationSeconds: math.NaN()}}}, Query{origin, dest}, ErrRoutingService},
		{"unnormalized geometry", stubRouter{paths: []maps.Path{{Points: []types.Coordinate{types.NewCoordinate(151.2, -33.8)}}}}, Query{origin, dest}, ErrRoutingService},
		{"bad origin", stubRouter{}, Query{types.NewCoordinate(91, 0), dest}, ErrInvalidCoordinate},
		{"bad destination", stubRouter{}, Query{origin, types.NewCoordinate(0, 181)}, ErrInvalidCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.router).Compute(context.Background(), tt.q)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputeDoesNotShareGeometry(t *testing.T) {
	points := []types.Coordinate{origin, dest}
	e := NewEngine(stubRouter{paths: []maps.Path{{DistanceMeters: 1, DurationSeconds: 1, Points: points}}})
	res, err := e.Compute(context.Background(), Query{origin, dest})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	points[0] = types.NewCoordinate(0, 0)
	if res.Polyline[0] != origin {
		t.Error("result aliases the router's slice")
	}
}
