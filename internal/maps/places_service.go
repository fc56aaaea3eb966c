package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"ridesafe/internal/types"
)

// PlacesService geocodes free text through the Google Places Text Search API.
type PlacesService struct {
	client   *maps.Client
	language string
	region   string
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey, language, region string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, language: language, region: region}, nil
}

// Search returns up to limit places matching query, in API ranking order.
func (s *PlacesService) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: s.language,
		Region:   s.region,
	})
	if err != nil {
		// the client library reports an empty result set as a status error
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, nil
		}
		return nil, fmt.Errorf("places api error: %w", err)
	}

	var results []Place
	for _, r := range resp.Results {
		c := types.NewCoordinate(r.Geometry.Location.Lat, r.Geometry.Location.Lng)
		if !c.Valid() {
			continue
		}
		name := r.Name
		if r.FormattedAddress != "" && r.FormattedAddress != r.Name {
			name = r.Name + ", " + r.FormattedAddress
		}
		results = append(results, Place{Name: name, Coordinate: c})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
