// README: HTTP geocoding adapter for Nominatim-style "/search?q=&limit=" services.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ridesafe/internal/types"
)

// flexFloat accepts both JSON numbers and numeric strings; Nominatim sends
// coordinates as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("empty coordinate")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type searchHit struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	City        string     `json:"city"`
	Country     string     `json:"country"`
	Lat         *flexFloat `json:"lat"`
	Lon         *flexFloat `json:"lon"`
}

func (h searchHit) displayName() string {
	if h.DisplayName != "" {
		return h.DisplayName
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{h.Name, h.City, h.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type HTTPGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns at most limit places in service order. Hits with missing or
// out-of-range coordinates are dropped rather than trusted.
func (g *HTTPGeocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocoder: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoder: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var hits []searchHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("geocoder: decode response: %w", err)
	}

	places := make([]Place, 0, len(hits))
	for _, h := range hits {
		if h.Lat == nil || h.Lon == nil {
			continue
		}
		c := types.NewCoordinate(float64(*h.Lat), float64(*h.Lon))
		name := h.displayName()
		if !c.Valid() || name == "" {
			continue
		}
		places = append(places, Place{Name: name, Coordinate: c})
		if len(places) == limit {
			break
		}
	}
	return places, nil
}
