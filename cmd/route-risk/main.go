// README: One-shot route-risk CLI; computes a route between two points, classifies it and prints JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ridesafe/internal/config"
	"ridesafe/internal/logging"
	"ridesafe/internal/maps"
	"ridesafe/internal/modules/risk"
	"ridesafe/internal/modules/route"
	"ridesafe/internal/service"
	"ridesafe/internal/types"
)

func main() {
	_ = godotenv.Load()

	from := pflag.String("from", "", "origin as lat,lon")
	to := pflag.String("to", "", "destination as lat,lon")
	at := pflag.String("at", "", "departure time (RFC3339), defaults to now")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	origin, err := parseCoordinate(*from)
	if err != nil {
		logging.Fatalf("--from: %v", err)
	}
	dest, err := parseCoordinate(*to)
	if err != nil {
		logging.Fatalf("--to: %v", err)
	}
	now := time.Now()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			logging.Fatalf("--at: %v", err)
		}
	}

	tz, err := time.LoadLocation(cfg.Risk.Timezone)
	if err != nil {
		logging.Fatalf("timezone %q: %v", cfg.Risk.Timezone, err)
	}

	var router route.Router = maps.NewOSRMRouter(cfg.Routing.RouterURL, cfg.Routing.Profile)
	if cfg.Routing.Router == "google" {
		directions, err := maps.NewRouteService(cfg.Google.MapsKey, cfg.Routing.Profile)
		if err != nil {
			logging.Fatalf("directions: %v", err)
		}
		router = directions
	}

	opts := service.PlannerOptions{}
	if cfg.Risk.FatigueURL != "" {
		opts.Fatigue = risk.NewFatigueClient(cfg.Risk.FatigueURL, cfg.Risk.Timeout)
		opts.FatigueProfile = risk.DefaultFatigueProfile
	}
	planner := service.NewSafetyPlanner(
		nil,
		route.NewEngine(router),
		risk.NewExtractor(tz),
		risk.NewClient(cfg.Risk.URL, cfg.Risk.Path, cfg.Risk.Timeout),
		opts,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	plan, err := planner.Plan(ctx, service.PlanRequest{
		Origin:      &origin,
		Destination: dest,
		Now:         now,
	})
	planner.Wait()
	if err != nil {
		logging.Fatalf("plan: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		logging.Fatalf("encode: %v", err)
	}
}

func parseCoordinate(s string) (types.Coordinate, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return types.Coordinate{}, fmt.Errorf("want lat,lon, got %q", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return types.Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return types.Coordinate{}, fmt.Errorf("longitude: %w", err)
	}
	c := types.NewCoordinate(la, lo)
	if !c.Valid() {
		return types.Coordinate{}, fmt.Errorf("out of range: %q", s)
	}
	return c, nil
}
