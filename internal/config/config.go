// README: Config loader with env defaults for HTTP, backends, external services and timeouts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type SearchConfig struct {
	Geocoder    string
	GeocoderURL string
	Debounce    time.Duration
	Limit       int
	CacheTTL    time.Duration
}

type RoutingConfig struct {
	Router    string
	RouterURL string
	Profile   string
}

type RiskConfig struct {
	URL        string
	Path       string
	Timeout    time.Duration
	FatigueURL string
	Timezone   string
}

type LocationConfig struct {
	Source        string
	Timeout       time.Duration
	SubmitTimeout time.Duration
	FixMaxAge     time.Duration
}

type IncidentConfig struct {
	Analysis        string
	AnalysisURL     string
	AnalysisTimeout time.Duration
	Store           string
	SQLitePath      string
}

type Config struct {
	HTTP struct {
		Addr      string
		RateLimit int
	}
	Logging struct {
		Level string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
		DatabaseURL     string
	}
	Google struct {
		MapsKey   string
		GeminiKey string
	}
	Search   SearchConfig
	Routing  RoutingConfig
	Risk     RiskConfig
	Location LocationConfig
	Incident IncidentConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("RIDESAFE_HTTP_ADDR", ":8080")
	cfg.HTTP.RateLimit = envOrDefaultInt("RIDESAFE_RATE_LIMIT", 20)
	cfg.Logging.Level = envOrDefault("RIDESAFE_LOG_LEVEL", "info")
	cfg.DB.DSN = os.Getenv("RIDESAFE_DB_DSN")
	cfg.Redis.Addr = envOrDefault("RIDESAFE_REDIS_ADDR", "localhost:6379")

	cfg.Firebase.ProjectID = os.Getenv("RIDESAFE_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("RIDESAFE_FIREBASE_CREDENTIALS")
	cfg.Firebase.DatabaseURL = os.Getenv("RIDESAFE_FIREBASE_DB_URL")

	cfg.Google.MapsKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Google.GeminiKey = os.Getenv("GEMINI_API_KEY")

	cfg.Search = SearchConfig{
		Geocoder:    envOrDefault("RIDESAFE_GEOCODER", "http"),
		GeocoderURL: envOrDefault("RIDESAFE_GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		Debounce:    envOrDefaultDuration("RIDESAFE_SEARCH_DEBOUNCE", 400*time.Millisecond),
		Limit:       envOrDefaultInt("RIDESAFE_SEARCH_LIMIT", 5),
		CacheTTL:    envOrDefaultDuration("RIDESAFE_SEARCH_CACHE_TTL", 10*time.Minute),
	}
	cfg.Routing = RoutingConfig{
		Router:    envOrDefault("RIDESAFE_ROUTER", "osrm"),
		RouterURL: envOrDefault("RIDESAFE_ROUTER_URL", "https://router.project-osrm.org"),
		Profile:   envOrDefault("RIDESAFE_ROUTE_PROFILE", "bike"),
	}
	cfg.Risk = RiskConfig{
		URL:        envOrDefault("RIDESAFE_RISK_URL", "http://127.0.0.1:8000"),
		Path:       envOrDefault("RIDESAFE_RISK_PATH", "/risk/route"),
		Timeout:    envOrDefaultDuration("RIDESAFE_RISK_TIMEOUT", 5*time.Second),
		FatigueURL: os.Getenv("RIDESAFE_FATIGUE_URL"),
		Timezone:   envOrDefault("RIDESAFE_TIMEZONE", "Local"),
	}
	cfg.Location = LocationConfig{
		Source:        envOrDefault("RIDESAFE_LOCATION_SOURCE", "redis"),
		Timeout:       envOrDefaultDuration("RIDESAFE_LOCATION_TIMEOUT", 5*time.Second),
		SubmitTimeout: envOrDefaultDuration("RIDESAFE_SUBMIT_LOCATION_TIMEOUT", 3*time.Second),
		FixMaxAge:     envOrDefaultDuration("RIDESAFE_FIX_MAX_AGE", 2*time.Minute),
	}
	cfg.Incident = IncidentConfig{
		Analysis:        envOrDefault("RIDESAFE_ANALYSIS", "http"),
		AnalysisURL:     envOrDefault("RIDESAFE_ANALYSIS_URL", "http://127.0.0.1:8000/api"),
		AnalysisTimeout: envOrDefaultDuration("RIDESAFE_ANALYSIS_TIMEOUT", 60*time.Second),
		Store:           envOrDefault("RIDESAFE_STORE", "sqlite"),
		SQLitePath:      envOrDefault("RIDESAFE_SQLITE_PATH", "./data/incidents.db"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Location.Timeout < 5*time.Second || c.Location.Timeout > 10*time.Second {
		return fmt.Errorf("RIDESAFE_LOCATION_TIMEOUT must be between 5s and 10s, got %s", c.Location.Timeout)
	}
	if c.Location.SubmitTimeout < 3*time.Second || c.Location.SubmitTimeout > 5*time.Second {
		return fmt.Errorf("RIDESAFE_SUBMIT_LOCATION_TIMEOUT must be between 3s and 5s, got %s", c.Location.SubmitTimeout)
	}
	if c.Search.Debounce <= 0 {
		return fmt.Errorf("RIDESAFE_SEARCH_DEBOUNCE must be positive")
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("RIDESAFE_SEARCH_LIMIT must be positive")
	}
	if c.Risk.Timeout <= 0 {
		return fmt.Errorf("RIDESAFE_RISK_TIMEOUT must be positive")
	}
	if c.HTTP.RateLimit <= 0 {
		return fmt.Errorf("RIDESAFE_RATE_LIMIT must be positive")
	}

	switch c.Search.Geocoder {
	case "http":
	case "google":
		if c.Google.MapsKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google geocoder")
		}
	default:
		return fmt.Errorf("unknown RIDESAFE_GEOCODER %q", c.Search.Geocoder)
	}
	switch c.Routing.Router {
	case "osrm":
	case "google":
		if c.Google.MapsKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google router")
		}
	default:
		return fmt.Errorf("unknown RIDESAFE_ROUTER %q", c.Routing.Router)
	}
	switch c.Incident.Analysis {
	case "http":
	case "gemini":
		if c.Google.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for gemini analysis")
		}
	default:
		return fmt.Errorf("unknown RIDESAFE_ANALYSIS %q", c.Incident.Analysis)
	}
	switch c.Incident.Store {
	case "sqlite", "firestore":
	default:
		return fmt.Errorf("unknown RIDESAFE_STORE %q", c.Incident.Store)
	}
	switch c.Location.Source {
	case "redis", "firebase":
	default:
		return fmt.Errorf("unknown RIDESAFE_LOCATION_SOURCE %q", c.Location.Source)
	}
	if (c.Incident.Store == "firestore" || c.Location.Source == "firebase") && c.Firebase.ProjectID == "" {
		return fmt.Errorf("RIDESAFE_FIREBASE_PROJECT_ID is required for firebase backends")
	}
	if c.Location.Source == "firebase" && c.Firebase.DatabaseURL == "" {
		return fmt.Errorf("RIDESAFE_FIREBASE_DB_URL is required for the firebase location source")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
