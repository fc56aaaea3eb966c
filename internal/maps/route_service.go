package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"ridesafe/internal/types"
)

// RouteService handles interactions with Google Maps Directions API.
type RouteService struct {
	client *maps.Client
	mode   maps.Mode
}

// NewRouteService creates a new RouteService with the given API Key. profile
// uses OSRM naming (bike, car, foot) so both routers share one setting.
func NewRouteService(apiKey, profile string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, mode: travelMode(profile)}, nil
}

func travelMode(profile string) maps.Mode {
	switch profile {
	case "car", "driving":
		return maps.TravelModeDriving
	case "foot", "walking":
		return maps.TravelModeWalking
	default:
		return maps.TravelModeBicycling
	}
}

func (s *RouteService) Route(ctx context.Context, from, to types.Coordinate) ([]Path, error) {
	r := &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        s.mode,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") || strings.Contains(err.Error(), "NOT_FOUND") {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	paths := make([]Path, 0, len(routes))
	for _, route := range routes {
		var p Path
		for _, leg := range route.Legs {
			p.DistanceMeters += float64(leg.Distance.Meters)
			p.DurationSeconds += leg.Duration.Seconds()
		}
		decoded, err := route.OverviewPolyline.Decode()
		if err != nil {
			return nil, fmt.Errorf("maps api error: decode polyline: %w", err)
		}
		p.Points = make([]types.Coordinate, len(decoded))
		for i, ll := range decoded {
			p.Points[i] = types.NewCoordinate(ll.Lat, ll.Lng)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
