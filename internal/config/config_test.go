package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Search.Debounce != 400*time.Millisecond {
		t.Errorf("debounce = %s, want 400ms", cfg.Search.Debounce)
	}
	if cfg.Search.Limit != 5 {
		t.Errorf("limit = %d, want 5", cfg.Search.Limit)
	}
	if cfg.Routing.Profile != "bike" {
		t.Errorf("profile = %q, want bike", cfg.Routing.Profile)
	}
	if cfg.Location.Timeout != 5*time.Second {
		t.Errorf("location timeout = %s", cfg.Location.Timeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RIDESAFE_SEARCH_DEBOUNCE", "250ms")
	t.Setenv("RIDESAFE_RISK_TIMEOUT", "2s")
	t.Setenv("RIDESAFE_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Search.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Search.Debounce)
	}
	if cfg.Risk.Timeout != 2*time.Second {
		t.Errorf("risk timeout = %s", cfg.Risk.Timeout)
	}
	if cfg.HTTP.RateLimit != 20 {
		t.Errorf("malformed rate limit should fall back to default, got %d", cfg.HTTP.RateLimit)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"location timeout too short", map[string]string{"RIDESAFE_LOCATION_TIMEOUT": "1s"}, "RIDESAFE_LOCATION_TIMEOUT"},
		{"location timeout too long", map[string]string{"RIDESAFE_LOCATION_TIMEOUT": "30s"}, "RIDESAFE_LOCATION_TIMEOUT"},
		{"submit timeout", map[string]string{"RIDESAFE_SUBMIT_LOCATION_TIMEOUT": "10s"}, "RIDESAFE_SUBMIT_LOCATION_TIMEOUT"},
		{"unknown geocoder", map[string]string{"RIDESAFE_GEOCODER": "bing"}, "RIDESAFE_GEOCODER"},
		{"google router without key", map[string]string{"RIDESAFE_ROUTER": "google"}, "GOOGLE_MAPS_API_KEY"},
		{"gemini without key", map[string]string{"RIDESAFE_ANALYSIS": "gemini"}, "GEMINI_API_KEY"},
		{"firestore without project", map[string]string{"RIDESAFE_STORE": "firestore"}, "RIDESAFE_FIREBASE_PROJECT_ID"},
		{"firebase location without url", map[string]string{"RIDESAFE_LOCATION_SOURCE": "firebase", "RIDESAFE_FIREBASE_PROJECT_ID": "p"}, "RIDESAFE_FIREBASE_DB_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
