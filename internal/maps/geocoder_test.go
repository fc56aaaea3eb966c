package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPGeocoderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "mg road" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"MG Road","city":"Bengaluru","country":"India","lat":12.9756,"lon":77.6066},
			{"display_name":"MG Road Metro, Bengaluru","lat":"12.9755","lon":"77.6069"},
			{"name":"Broken","lat":191.0,"lon":77.0},
			{"name":"No coords"}
		]`))
	}))
	defer srv.Close()

	g := NewHTTPGeocoder(srv.URL + "/")
	places, err := g.Search(context.Background(), "mg road", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("len = %d, want 2 (invalid hits dropped): %+v", len(places), places)
	}
	if places[0].Name != "MG Road, Bengaluru, India" {
		t.Errorf("name = %q", places[0].Name)
	}
	if places[0].Coordinate.Latitude != 12.9756 || places[0].Coordinate.Longitude != 77.6066 {
		t.Errorf("coordinate = %+v", places[0].Coordinate)
	}
	if places[1].Coordinate.Latitude != 12.9755 {
		t.Errorf("string coordinates not parsed: %+v", places[1].Coordinate)
	}
}

func TestHTTPGeocoderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPGeocoder(srv.URL).Search(context.Background(), "x", 5); err == nil {
		t.Fatal("expected error for 503")
	}

	srv.Close()
	if _, err := NewHTTPGeocoder(srv.URL).Search(context.Background(), "x", 5); err == nil {
		t.Fatal("expected error for closed server")
	}
}
