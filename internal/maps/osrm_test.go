package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ridesafe/internal/types"
)

func TestOSRMRouteNormalizesLonLat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/route/v1/bike/77.594600,12.971600;77.604600,12.981600"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if r.URL.Query().Get("overview") != "full" || r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[
			{"distance":3200,"duration":900,"geometry":{"type":"LineString","coordinates":[[77.5946,12.9716],[77.6000,12.9770],[77.6046,12.9816]]}},
			{"distance":4100,"duration":1100,"geometry":{"type":"LineString","coordinates":[[77.5946,12.9716],[77.6046,12.9816]]}}
		]}`))
	}))
	defer srv.Close()

	paths, err := NewOSRMRouter(srv.URL, "bike").Route(context.Background(),
		types.NewCoordinate(12.9716, 77.5946), types.NewCoordinate(12.9816, 77.6046))
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("len = %d, want 2", len(paths))
	}
	first := paths[0]
	if first.DistanceMeters != 3200 || first.DurationSeconds != 900 {
		t.Errorf("metrics = %+v", first)
	}
	want := []types.Coordinate{
		types.NewCoordinate(12.9716, 77.5946),
		types.NewCoordinate(12.9770, 77.6000),
		types.NewCoordinate(12.9816, 77.6046),
	}
	for i, p := range first.Points {
		if p != want[i] {
			t.Errorf("point %d = %+v, want %+v (lat first)", i, p, want[i])
		}
	}
}

func TestOSRMRouteErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNoRte bool
	}{
		{"no route code", http.StatusBadRequest, `{"code":"NoRoute","message":"Impossible route"}`, true},
		{"no segment code", http.StatusBadRequest, `{"code":"NoSegment"}`, true},
		{"empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"malformed", http.StatusOK, `{"routes":`, false},
		{"other code", http.StatusOK, `{"code":"TooBig"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOSRMRouter(srv.URL, "").Route(context.Background(), types.NewCoordinate(0, 0), types.NewCoordinate(1, 1))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNoRoute); got != tt.wantNoRte {
				t.Errorf("errors.Is(ErrNoRoute) = %v, want %v (err %v)", got, tt.wantNoRte, err)
			}
			if !tt.wantNoRte && !strings.HasPrefix(err.Error(), "osrm:") {
				t.Errorf("err = %v, want osrm-prefixed transport error", err)
			}
		})
	}
}
