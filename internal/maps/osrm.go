// README: OSRM routing adapter; converts GeoJSON lon,lat geometry to lat,lon.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ridesafe/internal/types"
)

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

type OSRMRouter struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewOSRMRouter(baseURL, profile string) *OSRMRouter {
	if profile == "" {
		profile = "bike"
	}
	return &OSRMRouter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *OSRMRouter) Route(ctx context.Context, from, to types.Coordinate) ([]Path, error) {
	u := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		r.baseURL, r.profile, from.Longitude, from.Latitude, to.Longitude, to.Latitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm: build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm: do request: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	// OSRM reports unroutable pairs as 400 with a NoRoute/NoSegment code.
	if decodeErr == nil && (body.Code == "NoRoute" || body.Code == "NoSegment") {
		return nil, ErrNoRoute
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("osrm: status %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("osrm: decode response: %w", decodeErr)
	}
	if body.Code != "" && body.Code != "Ok" {
		return nil, fmt.Errorf("osrm: code %s: %s", body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	paths := make([]Path, 0, len(body.Routes))
	for _, rt := range body.Routes {
		points := make([]types.Coordinate, len(rt.Geometry.Coordinates))
		for i, lonLat := range rt.Geometry.Coordinates {
			points[i] = types.NewCoordinate(lonLat[1], lonLat[0])
		}
		paths = append(paths, Path{
			DistanceMeters:  rt.Distance,
			DurationSeconds: rt.Duration,
			Points:          points,
		})
	}
	return paths, nil
}
