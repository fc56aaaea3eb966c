// README: Route engine: picks the primary path, converts units and validates geometry.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"

	"ridesafe/internal/maps"
	"ridesafe/internal/types"
)

var (
	ErrNoRouteFound      = errors.New("no route found")
	ErrRoutingService    = errors.New("routing service error")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

type Router interface {
	Route(ctx context.Context, from, to types.Coordinate) ([]maps.Path, error)
}

// BoundingBox frames origin and destination only. The polyline may leave it.
type BoundingBox struct {
	SouthWest types.Coordinate `json:"south_west"`
	NorthEast types.Coordinate `json:"north_east"`
}

type Query struct {
	Origin      types.Coordinate `json:"origin"`
	Destination types.Coordinate `json:"destination"`
}

// Result is a finished route. A new Query produces a new Result; results are
// never updated in place.
type Result struct {
	Polyline    []types.Coordinate `json:"polyline"`
	DistanceKm  float64            `json:"distance_km"`
	DurationMin float64            `json:"duration_min"`
	BoundingBox BoundingBox        `json:"bounding_box"`
}

type Engine struct {
	router Router
}

func NewEngine(router Router) *Engine {
	return &Engine{router: router}
}

func (e *Engine) Compute(ctx context.Context, q Query) (Result, error) {
	if !q.Origin.Valid() {
		return Result{}, fmt.Errorf("%w: origin %v", ErrInvalidCoordinate, q.Origin)
	}
	if !q.Destination.Valid() {
		return Result{}, fmt.Errorf("%w: destination %v", ErrInvalidCoordinate, q.Destination)
	}

	paths, err := e.router.Route(ctx, q.Origin, q.Destination)
	if err != nil {
		if errors.Is(err, maps.ErrNoRoute) {
			return Result{}, ErrNoRouteFound
		}
		return Result{}, fmt.Errorf("%w: %v", ErrRoutingService, err)
	}
	if len(paths) == 0 {
		return Result{}, ErrNoRouteFound
	}

	primary := paths[0]
	if err := validatePath(primary); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRoutingService, err)
	}

	polyline := make([]types.Coordinate, len(primary.Points))
	copy(polyline, primary.Points)

	return Result{
		Polyline:    polyline,
		DistanceKm:  primary.DistanceMeters / 1000,
		DurationMin: primary.DurationSeconds / 60,
		BoundingBox: boundingBox(q.Origin, q.Destination),
	}, nil
}

func validatePath(p maps.Path) error {
	if !finiteNonNegative(p.DistanceMeters) {
		return fmt.Errorf("bad distance %v", p.DistanceMeters)
	}
	if !finiteNonNegative(p.DurationSeconds) {
		return fmt.Errorf("bad duration %v", p.DurationSeconds)
	}
	for i, pt := range p.Points {
		if !pt.Valid() {
			return fmt.Errorf("geometry point %d out of range: %v", i, pt)
		}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func boundingBox(a, b types.Coordinate) BoundingBox {
	return BoundingBox{
		SouthWest: types.NewCoordinate(math.Min(a.Latitude, b.Latitude), math.Min(a.Longitude, b.Longitude)),
		NorthEast: types.NewCoordinate(math.Max(a.Latitude, b.Latitude), math.Max(a.Longitude, b.Longitude)),
	}
}
