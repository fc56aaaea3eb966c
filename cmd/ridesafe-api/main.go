// README: Entry point; loads config, wires services, starts HTTP server and background sweepers.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ridesafe/internal/config"
	httptransport "ridesafe/internal/http"
	"ridesafe/internal/infra"
	"ridesafe/internal/logging"
	"ridesafe/internal/maps"
	"ridesafe/internal/modules/audio"
	"ridesafe/internal/modules/incident"
	"ridesafe/internal/modules/location"
	"ridesafe/internal/modules/risk"
	"ridesafe/internal/modules/route"
	"ridesafe/internal/modules/search"
	"ridesafe/internal/service"
)

const (
	searchSessionIdle    = 15 * time.Minute
	recordingSessionIdle = 10 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var fb *infra.Firebase
	if cfg.Incident.Store == "firestore" || cfg.Location.Source == "firebase" {
		fb, err = infra.NewFirebase(ctx, infra.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			DatabaseURL:     cfg.Firebase.DatabaseURL,
		})
		if err != nil {
			logging.Fatalf("firebase init: %v", err)
		}
		defer fb.Close()
	}

	// Location
	var fixes location.FixSource
	switch cfg.Location.Source {
	case "firebase":
		rtdb, err := fb.Database(ctx)
		if err != nil {
			logging.Fatalf("%v", err)
		}
		fixes = location.NewFirebaseSource(rtdb)
	default:
		fixes = location.NewStore(redisClient)
	}
	locationSvc := location.NewService(fixes, location.Options{
		Timeout:   cfg.Location.Timeout,
		FixMaxAge: cfg.Location.FixMaxAge,
	})

	// Search
	var geocoder search.Geocoder
	switch cfg.Search.Geocoder {
	case "google":
		places, err := maps.NewPlacesService(cfg.Google.MapsKey, "en", "")
		if err != nil {
			logging.Fatalf("places: %v", err)
		}
		geocoder = places
	default:
		geocoder = maps.NewHTTPGeocoder(cfg.Search.GeocoderURL)
	}
	geocoder = search.NewCachedGeocoder(geocoder, redisClient, cfg.Search.CacheTTL)
	searches := search.NewRegistry(geocoder, cfg.Search.Debounce, cfg.Search.Limit)

	// Routing and risk
	var router route.Router
	switch cfg.Routing.Router {
	case "google":
		directions, err := maps.NewRouteService(cfg.Google.MapsKey, cfg.Routing.Profile)
		if err != nil {
			logging.Fatalf("directions: %v", err)
		}
		router = directions
	default:
		router = maps.NewOSRMRouter(cfg.Routing.RouterURL, cfg.Routing.Profile)
	}

	tz, err := time.LoadLocation(cfg.Risk.Timezone)
	if err != nil {
		logging.Fatalf("timezone %q: %v", cfg.Risk.Timezone, err)
	}

	var recorder risk.Recorder = risk.NopRecorder{}
	var pool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		pool, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			logging.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		assessmentLog, err := risk.NewPostgresLog(ctx, pool)
		if err != nil {
			logging.Fatalf("%v", err)
		}
		recorder = assessmentLog
	} else {
		slog.Info("RIDESAFE_DB_DSN not set; assessments are not logged")
	}

	plannerOpts := service.PlannerOptions{Recorder: recorder}
	if cfg.Risk.FatigueURL != "" {
		plannerOpts.Fatigue = risk.NewFatigueClient(cfg.Risk.FatigueURL, cfg.Risk.Timeout)
		plannerOpts.FatigueProfile = risk.DefaultFatigueProfile
	}
	planner := service.NewSafetyPlanner(
		locationSvc,
		route.NewEngine(router),
		risk.NewExtractor(tz),
		risk.NewClient(cfg.Risk.URL, cfg.Risk.Path, cfg.Risk.Timeout),
		plannerOpts,
	)

	// Incidents
	var store incident.Store
	switch cfg.Incident.Store {
	case "firestore":
		fs, err := fb.Firestore(ctx)
		if err != nil {
			logging.Fatalf("%v", err)
		}
		store = incident.NewFirestoreStore(fs)
	default:
		var sqliteDB *sql.DB
		sqliteDB, err = infra.NewSQLite(cfg.Incident.SQLitePath)
		if err != nil {
			logging.Fatalf("sqlite: %v", err)
		}
		defer sqliteDB.Close()
		store, err = incident.NewSQLiteStore(sqliteDB)
		if err != nil {
			logging.Fatalf("%v", err)
		}
	}

	httpAnalyzer := incident.NewHTTPAnalyzer(cfg.Incident.AnalysisURL, cfg.Incident.AnalysisTimeout)
	var voice incident.VoiceAnalyzer = httpAnalyzer
	if cfg.Incident.Analysis == "gemini" {
		gemini, err := incident.NewGeminiAnalyzer(ctx, cfg.Google.GeminiKey)
		if err != nil {
			logging.Fatalf("gemini: %v", err)
		}
		defer gemini.Close()
		voice = gemini
	}
	incidents := incident.NewCoordinator(
		voice,
		httpAnalyzer,
		store,
		incident.NewRedisOutbox(redisClient),
		locationSvc,
		incident.Options{LocationTimeout: cfg.Location.SubmitTimeout},
	)

	recordings := audio.NewRegistry(nil)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Search:     searches,
		Planner:    planner,
		Location:   locationSvc,
		Recordings: recordings,
		Incidents:  incidents,
		RateLimit:  cfg.HTTP.RateLimit,
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := searches.Prune(searchSessionIdle); n > 0 {
					slog.Debug("pruned idle search sessions", "count", n)
				}
				if n := recordings.Prune(recordingSessionIdle); n > 0 {
					slog.Info("closed abandoned recording sessions", "count", n)
				}
			}
		}
	})

	err = g.Wait()

	recordings.CloseAll()
	planner.Wait()

	if err != nil {
		logging.Fatalf("server: %v", err)
	}
	slog.Info("ridesafe api stopped")
}
