// README: Route-risk pipeline. Resolves the origin, computes the route, extracts features and classifies.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ridesafe/internal/modules/location"
	"ridesafe/internal/modules/risk"
	"ridesafe/internal/modules/route"
	"ridesafe/internal/types"
)

type Locator interface {
	CurrentLocation(ctx context.Context, riderID types.ID) (types.Coordinate, error)
}

type RouteComputer interface {
	Compute(ctx context.Context, q route.Query) (route.Result, error)
}

type Assessor interface {
	Assess(ctx context.Context, f risk.Features) risk.Assessment
}

type FatigueScorer interface {
	Score(ctx context.Context, p risk.FatigueProfile) (float64, error)
}

type PlanRequest struct {
	RiderID     types.ID
	Origin      *types.Coordinate
	Destination types.Coordinate
	Now         time.Time
}

type Plan struct {
	Origin      types.Coordinate `json:"origin"`
	Destination types.Coordinate `json:"destination"`
	Route       route.Result     `json:"route"`
	Features    risk.Features    `json:"features"`
	Assessment  risk.Assessment  `json:"assessment"`
}

type PlannerOptions struct {
	// Fatigue, when set, replaces the static fatigue placeholder per request.
	Fatigue        FatigueScorer
	FatigueProfile risk.FatigueProfile
	Recorder       risk.Recorder
	Now            func() time.Time
}

// SafetyPlanner runs one route-risk computation per call. Calls are
// independent; a newer plan for the same rider does not abort an older one.
type SafetyPlanner struct {
	locator   Locator
	routes    RouteComputer
	extractor risk.Extractor
	assessor  Assessor
	opts      PlannerOptions

	logs sync.WaitGroup
}

func NewSafetyPlanner(locator Locator, routes RouteComputer, extractor risk.Extractor, assessor Assessor, opts PlannerOptions) *SafetyPlanner {
	if opts.Recorder == nil {
		opts.Recorder = risk.NopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FatigueProfile == (risk.FatigueProfile{}) {
		opts.FatigueProfile = risk.DefaultFatigueProfile
	}
	return &SafetyPlanner{
		locator:   locator,
		routes:    routes,
		extractor: extractor,
		assessor:  assessor,
		opts:      opts,
	}
}

// Plan returns location.ErrLocationUnavailable (or ErrPermissionDenied) when
// no origin was given and none could be resolved; the caller must then ask
// for one. Routing errors are returned as is. Classification never fails.
func (p *SafetyPlanner) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	now := req.Now
	if now.IsZero() {
		now = p.opts.Now()
	}

	origin, err := p.origin(ctx, req)
	if err != nil {
		return Plan{}, err
	}

	result, err := p.routes.Compute(ctx, route.Query{Origin: origin, Destination: req.Destination})
	if err != nil {
		return Plan{}, err
	}

	extractor := p.extractor
	if p.opts.Fatigue != nil {
		score, ferr := p.opts.Fatigue.Score(ctx, p.opts.FatigueProfile)
		if ferr != nil {
			slog.Warn("fatigue score unavailable, using placeholder", "rider_id", req.RiderID, "error", ferr)
		} else {
			extractor.Fatigue = risk.Static(score)
		}
	}
	features := extractor.Extract(result, now)
	assessment := p.assessor.Assess(ctx, features)

	p.record(features, assessment)

	return Plan{
		Origin:      origin,
		Destination: req.Destination,
		Route:       result,
		Features:    features,
		Assessment:  assessment,
	}, nil
}

// Wait blocks until pending assessment log writes finish.
func (p *SafetyPlanner) Wait() {
	p.logs.Wait()
}

func (p *SafetyPlanner) origin(ctx context.Context, req PlanRequest) (types.Coordinate, error) {
	if req.Origin != nil {
		return *req.Origin, nil
	}
	if p.locator == nil || req.RiderID == "" {
		return types.Coordinate{}, fmt.Errorf("%w: no origin and no rider to locate", location.ErrLocationUnavailable)
	}
	return p.locator.CurrentLocation(ctx, req.RiderID)
}

// record logs asynchronously; the caller already has its verdict.
func (p *SafetyPlanner) record(f risk.Features, a risk.Assessment) {
	p.logs.Add(1)
	go func() {
		defer p.logs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.opts.Recorder.Record(ctx, f, a); err != nil {
			slog.Warn("failed to save risk assessment log", "error", err)
		}
	}()
}
